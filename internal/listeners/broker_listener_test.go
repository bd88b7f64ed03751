package listeners

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"maintenance-service/internal/events"
	"maintenance-service/pkg/constants"
	"maintenance-service/pkg/eventbus"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	args := m.Called(ctx, subject, payload)
	return args.Error(0)
}

func (m *mockPublisher) Close() {}

func TestBrokerListener_ForwardsStatusChanged(t *testing.T) {
	pub := new(mockPublisher)
	bus := eventbus.New(zap.NewNop())
	NewBrokerListener(pub, zap.NewNop()).Register(bus)

	event := events.MaintenanceStatusChangedEvent{
		EquipmentID: 5, MaintenanceStatusCabID: 11,
		FromStatusID: constants.MaintenanceStatusOperationID,
		ToStatusID:   constants.MaintenanceStatusScheduledID,
		UserID:       1, ChangedAt: time.Now(),
	}
	pub.On("Publish", mock.Anything, constants.EventMaintenanceStatusChanged, event).Return(nil).Once()

	bus.Publish(context.Background(), event)
	bus.Wait()

	pub.AssertExpectations(t)
}

func TestBrokerListener_ForwardsOverdueAndReportsError(t *testing.T) {
	pub := new(mockPublisher)
	listener := NewBrokerListener(pub, zap.NewNop())

	event := events.MaintenanceScheduleOverdueEvent{EquipmentID: 3, ScheduledMaintenanceID: 8}
	pub.On("Publish", mock.Anything, constants.EventMaintenanceScheduleOverdue, event).Return(errors.New("нет соединения"))

	err := listener.handleScheduleOverdue(context.Background(), event)
	assert.EqualError(t, err, "нет соединения")
}

func TestBrokerListener_NilPublisherOnlyLogs(t *testing.T) {
	listener := NewBrokerListener(nil, zap.NewNop())
	err := listener.handleStatusChanged(context.Background(), events.MaintenanceStatusChangedEvent{EquipmentID: 1})
	assert.NoError(t, err)

	err = listener.handleStatusChanged(context.Background(), events.MaintenanceScheduleOverdueEvent{})
	assert.Error(t, err)
}
