package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"maintenance-service/internal/events"
	"maintenance-service/pkg/constants"
	"maintenance-service/pkg/eventbus"
)

type Broadcaster interface {
	Broadcast(messageType string, equipmentID uint64, payload interface{}) error
}

// FeedListener транслирует события обслуживания в WebSocket-ленту.
type FeedListener struct {
	hub    Broadcaster
	logger *zap.Logger
}

func NewFeedListener(hub Broadcaster, logger *zap.Logger) *FeedListener {
	return &FeedListener{hub: hub, logger: logger}
}

func (l *FeedListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(constants.EventMaintenanceStatusChanged, l.handle)
	bus.Subscribe(constants.EventMaintenanceScheduleOverdue, l.handle)
}

func (l *FeedListener) handle(_ context.Context, event eventbus.Event) error {
	var equipmentID uint64
	switch e := event.(type) {
	case events.MaintenanceStatusChangedEvent:
		equipmentID = e.EquipmentID
	case events.MaintenanceScheduleOverdueEvent:
		equipmentID = e.EquipmentID
	default:
		return fmt.Errorf("неожиданный тип события %T", event)
	}
	return l.hub.Broadcast(event.Name(), equipmentID, event)
}
