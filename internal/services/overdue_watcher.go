package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"maintenance-service/internal/events"
	"maintenance-service/internal/repositories"
	"maintenance-service/pkg/metrics"
)

// OverdueWatcher периодически ищет планы обслуживания, день которых уже
// прошёл, а оборудование всё ещё в статусе SCHEDULED. Статусы не меняет:
// обновляет метрику и один раз на план публикует событие о просрочке.
type OverdueWatcher struct {
	scheduler    gocron.Scheduler
	scheduleRepo repositories.ScheduledMaintenanceRepositoryInterface
	events       EventPublisher
	metrics      *metrics.Recorder
	now          func() time.Time
	logger       *zap.Logger
}

func NewOverdueWatcher(
	scheduleRepo repositories.ScheduledMaintenanceRepositoryInterface,
	publisher EventPublisher,
	recorder *metrics.Recorder,
	locker gocron.Locker,
	logger *zap.Logger,
) (*OverdueWatcher, error) {
	var opts []gocron.SchedulerOption
	if locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(locker))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать планировщик gocron: %w", err)
	}
	return &OverdueWatcher{
		scheduler:    s,
		scheduleRepo: scheduleRepo,
		events:       publisher,
		metrics:      recorder,
		now:          time.Now,
		logger:       logger,
	}, nil
}

// Start регистрирует задачу с интервалом interval и запускает планировщик.
// Первая проверка выполняется сразу.
func (w *OverdueWatcher) Start(interval time.Duration) error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := w.Check(ctx); err != nil {
				w.logger.Error("Проверка просроченных планов завершилась ошибкой", zap.Error(err))
			}
		}),
		gocron.WithName("maintenance-overdue-watcher"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("не удалось зарегистрировать задачу проверки планов: %w", err)
	}
	w.scheduler.Start()
	w.logger.Info("Наблюдатель просроченных планов запущен", zap.Duration("interval", interval))
	return nil
}

func (w *OverdueWatcher) Stop() error {
	return w.scheduler.Shutdown()
}

// Check выполняет одну проверку и возвращает число просроченных планов.
// План просрочен, когда его день (UTC) закончился.
func (w *OverdueWatcher) Check(ctx context.Context) (int, error) {
	now := w.now()
	overdue, err := w.scheduleRepo.FindOverdue(ctx, startOfDay(now))
	if err != nil {
		return 0, err
	}

	w.metrics.SetOverdueSchedules(len(overdue))
	for _, s := range overdue {
		if s.NotifiedAt != nil {
			continue
		}
		claimed, err := w.scheduleRepo.MarkOverdueNotified(ctx, s.ID, now)
		if err != nil {
			w.logger.Error("Не удалось отметить оповещение о просрочке", zap.Uint64("scheduleID", s.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		w.logger.Warn("Плановое обслуживание просрочено",
			zap.Uint64("equipmentID", s.EquipmentID),
			zap.Uint64("scheduleID", s.ID),
			zap.Time("scheduledDate", s.ScheduledDate),
		)
		if w.events != nil {
			w.events.Publish(ctx, events.MaintenanceScheduleOverdueEvent{
				EquipmentID:            s.EquipmentID,
				ScheduledMaintenanceID: s.ID,
				ScheduledDate:          s.ScheduledDate,
				DetectedAt:             now,
			})
		}
	}
	return len(overdue), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
