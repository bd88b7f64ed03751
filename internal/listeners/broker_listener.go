package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"maintenance-service/internal/events"
	"maintenance-service/pkg/broker"
	"maintenance-service/pkg/constants"
	"maintenance-service/pkg/eventbus"
)

// BrokerListener пересылает доменные события во внешний брокер.
// Если publisher == nil, события только логируются.
type BrokerListener struct {
	publisher broker.Publisher
	logger    *zap.Logger
}

func NewBrokerListener(publisher broker.Publisher, logger *zap.Logger) *BrokerListener {
	return &BrokerListener{publisher: publisher, logger: logger}
}

func (l *BrokerListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(constants.EventMaintenanceStatusChanged, l.handleStatusChanged)
	bus.Subscribe(constants.EventMaintenanceScheduleOverdue, l.handleScheduleOverdue)
	l.logger.Info("BrokerListener подписан на события обслуживания")
}

func (l *BrokerListener) handleStatusChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.MaintenanceStatusChangedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", event)
	}
	l.logger.Info("Статус обслуживания изменён",
		zap.Uint64("equipmentID", e.EquipmentID),
		zap.String("from", constants.MaintenanceStatusCode(e.FromStatusID)),
		zap.String("to", constants.MaintenanceStatusCode(e.ToStatusID)),
		zap.Uint64("userID", e.UserID),
	)
	return l.forward(ctx, e)
}

func (l *BrokerListener) handleScheduleOverdue(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.MaintenanceScheduleOverdueEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", event)
	}
	l.logger.Warn("Плановое обслуживание просрочено",
		zap.Uint64("equipmentID", e.EquipmentID),
		zap.Time("scheduledDate", e.ScheduledDate),
	)
	return l.forward(ctx, e)
}

func (l *BrokerListener) forward(ctx context.Context, event eventbus.Event) error {
	if l.publisher == nil {
		return nil
	}
	return l.publisher.Publish(ctx, event.Name(), event)
}
