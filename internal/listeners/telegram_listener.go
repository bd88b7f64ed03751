package listeners

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"maintenance-service/internal/events"
	"maintenance-service/pkg/constants"
	"maintenance-service/pkg/eventbus"
	"maintenance-service/pkg/telegram"
	"maintenance-service/pkg/utils"
)

// TelegramListener шлёт в дежурный чат просрочки плановых дат и
// вывод оборудования на обслуживание.
type TelegramListener struct {
	sender telegram.Sender
	chatID int64
	logger *zap.Logger
}

func NewTelegramListener(sender telegram.Sender, chatID int64, logger *zap.Logger) *TelegramListener {
	return &TelegramListener{sender: sender, chatID: chatID, logger: logger}
}

func (l *TelegramListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(constants.EventMaintenanceScheduleOverdue, l.handleScheduleOverdue)
	bus.Subscribe(constants.EventMaintenanceStatusChanged, l.handleStatusChanged)
}

func (l *TelegramListener) handleScheduleOverdue(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.MaintenanceScheduleOverdueEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", event)
	}
	text := fmt.Sprintf("⚠️ <b>Просрочено плановое обслуживание</b>\nОборудование: %d\nПлановая дата: %s",
		e.EquipmentID, html.EscapeString(e.ScheduledDate.Format(utils.DateLayout)))
	return l.sender.SendMessage(ctx, l.chatID, text, telegram.WithHTML())
}

func (l *TelegramListener) handleStatusChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.MaintenanceStatusChangedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", event)
	}
	if e.ToStatusID != constants.MaintenanceStatusMaintenanceID {
		return nil
	}
	text := fmt.Sprintf("🔧 Оборудование %d выведено на обслуживание (было: %s)",
		e.EquipmentID, previousStatusLabel(e.FromStatusID))
	return l.sender.SendMessage(ctx, l.chatID, text, telegram.WithSilent())
}

// previousStatusLabel: 0 - у оборудования статуса ещё не было.
func previousStatusLabel(id uint64) string {
	if id == 0 {
		return "нет статуса"
	}
	return constants.MaintenanceStatusCode(id)
}
