package listeners

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maintenance-service/internal/events"
	"maintenance-service/pkg/constants"
	"maintenance-service/pkg/eventbus"
	"maintenance-service/pkg/telegram"
)

type sentMessage struct {
	chatID int64
	text   string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string, _ ...telegram.MessageOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{chatID, text})
	return nil
}

func TestTelegramListener(t *testing.T) {
	sender := &recordingSender{}
	bus := eventbus.New(zap.NewNop())
	NewTelegramListener(sender, -42, zap.NewNop()).Register(bus)

	ctx := context.Background()
	bus.Publish(ctx, events.MaintenanceScheduleOverdueEvent{
		EquipmentID:   7,
		ScheduledDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	bus.Publish(ctx, events.MaintenanceStatusChangedEvent{
		EquipmentID:  8,
		FromStatusID: constants.MaintenanceStatusOperationID,
		ToStatusID:   constants.MaintenanceStatusMaintenanceID,
	})
	bus.Publish(ctx, events.MaintenanceStatusChangedEvent{
		EquipmentID: 9,
		ToStatusID:  constants.MaintenanceStatusOperationID,
	})
	bus.Wait()

	require.Len(t, sender.sent, 2)
	texts := []string{sender.sent[0].text, sender.sent[1].text}
	assert.Contains(t, texts[0]+texts[1], "2025-01-10")
	assert.Contains(t, texts[0]+texts[1], "Оборудование 8 выведено на обслуживание (было: OPERATION)")
	assert.Equal(t, int64(-42), sender.sent[0].chatID)
}

func TestTelegramListener_FirstStatusHasNoPrevious(t *testing.T) {
	sender := &recordingSender{}
	bus := eventbus.New(zap.NewNop())
	NewTelegramListener(sender, -42, zap.NewNop()).Register(bus)

	bus.Publish(context.Background(), events.MaintenanceStatusChangedEvent{
		EquipmentID: 11,
		ToStatusID:  constants.MaintenanceStatusMaintenanceID,
	})
	bus.Wait()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "🔧 Оборудование 11 выведено на обслуживание (было: нет статуса)", sender.sent[0].text)
	assert.NotContains(t, sender.sent[0].text, "UNKNOWN")
}
