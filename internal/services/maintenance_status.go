package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/entities"
	"maintenance-service/internal/events"
	"maintenance-service/internal/repositories"
	"maintenance-service/pkg/constants"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/eventbus"
	"maintenance-service/pkg/metrics"
	"maintenance-service/pkg/utils"
)

// EventPublisher - то, что сервису нужно от шины событий.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

type MaintenanceStatusServiceInterface interface {
	// GetCurrentStatus возвращает nil без ошибки, если статуса у оборудования ещё нет.
	GetCurrentStatus(ctx context.Context, equipmentID uint64) (*dto.CurrentStatusDTO, error)
	QueryStatuses(ctx context.Context, filter dto.MaintenanceStatusFilter) ([]dto.MaintenanceStatusRecordDTO, error)
	ChangeStatus(ctx context.Context, userID uint64, payload dto.ChangeMaintenanceStatusDTO) (uint64, error)
	GetHistory(ctx context.Context, equipmentID uint64, filter dto.MaintenanceHistoryFilterDTO) ([]dto.MaintenanceHistoryDTO, error)
}

type MaintenanceStatusService struct {
	txManager     repositories.TxManagerInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	statusRepo    repositories.MaintenanceStatusRepositoryInterface
	scheduleRepo  repositories.ScheduledMaintenanceRepositoryInterface
	locker        repositories.EquipmentLockerInterface
	events        EventPublisher
	metrics       *metrics.Recorder
	logger        *zap.Logger
}

// NewMaintenanceStatusService: locker, events и metrics могут быть nil.
func NewMaintenanceStatusService(
	txManager repositories.TxManagerInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	statusRepo repositories.MaintenanceStatusRepositoryInterface,
	scheduleRepo repositories.ScheduledMaintenanceRepositoryInterface,
	locker repositories.EquipmentLockerInterface,
	publisher EventPublisher,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) MaintenanceStatusServiceInterface {
	return &MaintenanceStatusService{
		txManager:     txManager,
		equipmentRepo: equipmentRepo,
		statusRepo:    statusRepo,
		scheduleRepo:  scheduleRepo,
		locker:        locker,
		events:        publisher,
		metrics:       recorder,
		logger:        logger,
	}
}

func (s *MaintenanceStatusService) GetCurrentStatus(ctx context.Context, equipmentID uint64) (*dto.CurrentStatusDTO, error) {
	if equipmentID == 0 {
		return nil, apperrors.NewValidation("equipment_id должен быть положительным числом")
	}

	header, err := s.statusRepo.GetCurrentHeader(ctx, nil, equipmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewPersistence("не удалось получить текущий статус", err)
	}

	return &dto.CurrentStatusDTO{
		MaintenanceStatusCabID: header.ID,
		EquipmentID:            header.EquipmentID,
		MaintenanceStatusID:    header.StatusID,
		Code:                   constants.MaintenanceStatusCode(header.StatusID),
		CreatedAt:              utils.FormatDateTime(header.CreatedAt),
		AllowedNextStatusIDs:   AllowedNextStatuses(header.StatusID),
	}, nil
}

func (s *MaintenanceStatusService) QueryStatuses(ctx context.Context, filter dto.MaintenanceStatusFilter) ([]dto.MaintenanceStatusRecordDTO, error) {
	if filter.EquipmentID != nil && *filter.EquipmentID == 0 {
		return nil, apperrors.NewValidation("equipment_id должен быть положительным числом")
	}
	records, err := s.statusRepo.QueryStatuses(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistence("не удалось получить статусы обслуживания", err)
	}
	if records == nil {
		records = make([]dto.MaintenanceStatusRecordDTO, 0)
	}
	return records, nil
}

// ChangeStatus переводит оборудование в новый статус и возвращает id новой шапки.
// Все проверки идут до первой записи; записи выполняются в одной транзакции
// под блокировкой оборудования (Redis между экземплярами, FOR UPDATE в БД).
func (s *MaintenanceStatusService) ChangeStatus(ctx context.Context, userID uint64, payload dto.ChangeMaintenanceStatusDTO) (uint64, error) {
	start := time.Now()
	change, err := s.changeStatus(ctx, userID, payload)

	result := "ok"
	if err != nil {
		result = string(apperrors.KindOf(err))
	}
	s.metrics.ObserveStatusChange(statusLabel(change.fromStatusID), statusLabel(payload.MaintenanceStatusID), result, time.Since(start))

	logger := s.logger.With(
		zap.Uint64("equipmentID", payload.EquipmentID),
		zap.Uint64("statusID", payload.MaintenanceStatusID),
		zap.Uint64("userID", userID),
	)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindPersistence) {
			logger.Error("Не удалось сменить статус обслуживания", zap.Error(err))
		} else {
			logger.Warn("Смена статуса обслуживания отклонена", zap.Error(err))
		}
		return 0, err
	}

	logger.Info("Статус обслуживания изменён", zap.Uint64("headerID", change.headerID), zap.Uint64("fromStatusID", change.fromStatusID))

	if s.events != nil {
		s.events.Publish(ctx, events.MaintenanceStatusChangedEvent{
			EquipmentID:            payload.EquipmentID,
			MaintenanceStatusCabID: change.headerID,
			FromStatusID:           change.fromStatusID,
			ToStatusID:             payload.MaintenanceStatusID,
			UserID:                 userID,
			ScheduledDate:          change.scheduledAt,
			ChangedAt:              time.Now(),
		})
	}
	return change.headerID, nil
}

// statusChange - результат changeStatus; fromStatusID заполняется и при ошибке перехода.
type statusChange struct {
	fromStatusID uint64
	headerID     uint64
	scheduledAt  *time.Time
}

func (s *MaintenanceStatusService) changeStatus(ctx context.Context, userID uint64, payload dto.ChangeMaintenanceStatusDTO) (statusChange, error) {
	var change statusChange
	equipmentID := payload.EquipmentID
	statusID := payload.MaintenanceStatusID

	if equipmentID == 0 {
		return change, apperrors.NewValidation("equipment_id должен быть положительным числом")
	}
	if statusID == 0 {
		return change, apperrors.NewValidation("maintenance_status_id должен быть положительным числом")
	}
	if userID == 0 {
		return change, apperrors.NewValidation("user_id должен быть положительным числом")
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, equipmentID)
		if err != nil {
			if errors.Is(err, repositories.ErrLockNotAcquired) {
				return change, apperrors.NewConflict("оборудование сейчас изменяется другим запросом, повторите позже", err)
			}
			return change, apperrors.NewPersistence("не удалось заблокировать оборудование", err)
		}
		defer unlock()
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.equipmentRepo.LockActive(ctx, tx, equipmentID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFound("оборудование не найдено")
			}
			return apperrors.NewPersistence("не удалось проверить оборудование", err)
		}

		if !constants.IsKnownMaintenanceStatus(statusID) {
			return apperrors.NewNotFound("статус не найден")
		}
		if _, err := s.statusRepo.FindStatus(ctx, tx, statusID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFound("статус не найден")
			}
			return apperrors.NewPersistence("не удалось проверить статус", err)
		}

		if statusID == constants.MaintenanceStatusScheduledID {
			if payload.ScheduledDate == nil || strings.TrimSpace(*payload.ScheduledDate) == "" {
				return apperrors.NewValidation("для статуса %s требуется scheduled_date", constants.MaintenanceStatusScheduledCode)
			}
			date, err := utils.ParseMaintenanceDate(*payload.ScheduledDate)
			if err != nil {
				return apperrors.NewValidation("некорректная scheduled_date: %v", err)
			}
			change.scheduledAt = &date
		}

		current, err := s.statusRepo.GetCurrentHeader(ctx, tx, equipmentID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewPersistence("не удалось получить текущий статус", err)
		}
		if current != nil {
			change.fromStatusID = current.StatusID
			if err := ValidateTransition(current.StatusID, statusID); err != nil {
				return err
			}
		}

		// Проверки пройдены, дальше только записи.
		if change.scheduledAt != nil {
			if _, err := s.scheduleRepo.DeactivateActive(ctx, tx, equipmentID); err != nil {
				return apperrors.NewPersistence("не удалось закрыть прежний план обслуживания", err)
			}
			if _, err := s.scheduleRepo.Create(ctx, tx, equipmentID, *change.scheduledAt); err != nil {
				return apperrors.NewPersistence("не удалось создать план обслуживания", err)
			}
		} else if change.fromStatusID == constants.MaintenanceStatusScheduledID {
			if _, err := s.scheduleRepo.DeactivateActive(ctx, tx, equipmentID); err != nil {
				return apperrors.NewPersistence("не удалось закрыть план обслуживания", err)
			}
		}

		closed, err := s.statusRepo.DeactivateCurrent(ctx, tx, equipmentID)
		if err != nil {
			return apperrors.NewPersistence("не удалось деактивировать текущий статус", err)
		}
		if current != nil && closed != 1 {
			return apperrors.NewPersistence("текущий статус изменился во время операции", nil)
		}

		id, err := s.statusRepo.CreateHeader(ctx, tx, equipmentID, statusID)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return apperrors.NewConflict("у оборудования уже есть активный статус", err)
			}
			return apperrors.NewPersistence("не удалось создать статус", err)
		}

		if _, err := s.statusRepo.CreateDetail(ctx, tx, entities.MaintenanceStatusDetail{
			HeaderID:    id,
			EquipmentID: equipmentID,
			StatusID:    statusID,
			UserID:      userID,
		}); err != nil {
			return apperrors.NewPersistence("не удалось записать журнал статуса", err)
		}

		change.headerID = id
		return nil
	})
	if err != nil && apperrors.KindOf(err) == "" {
		err = apperrors.NewPersistence("не удалось сохранить смену статуса", err)
	}
	return change, err
}

func (s *MaintenanceStatusService) GetHistory(ctx context.Context, equipmentID uint64, filter dto.MaintenanceHistoryFilterDTO) ([]dto.MaintenanceHistoryDTO, error) {
	if equipmentID == 0 {
		return nil, apperrors.NewValidation("equipment_id должен быть положительным числом")
	}

	from, err := parseHistoryBound(filter.From, false)
	if err != nil {
		return nil, err
	}
	to, err := parseHistoryBound(filter.To, true)
	if err != nil {
		return nil, err
	}

	if _, err := s.equipmentRepo.FindByID(ctx, nil, equipmentID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("оборудование не найдено")
		}
		return nil, apperrors.NewPersistence("не удалось проверить оборудование", err)
	}

	history, err := s.statusRepo.GetHistory(ctx, equipmentID, from, to)
	if err != nil {
		return nil, apperrors.NewPersistence("не удалось получить историю статусов", err)
	}
	if history == nil {
		history = make([]dto.MaintenanceHistoryDTO, 0)
	}
	return history, nil
}

// parseHistoryBound: верхняя граница в виде даты без времени включает весь день.
func parseHistoryBound(raw *string, upper bool) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := utils.ParseMaintenanceDate(*raw)
	if err != nil {
		return nil, apperrors.NewValidation("некорректная граница периода: %v", err)
	}
	if upper && len(strings.TrimSpace(*raw)) == len(utils.DateLayout) {
		t = t.Add(24 * time.Hour)
	}
	return &t, nil
}

func statusLabel(id uint64) string {
	if id == 0 {
		return "NONE"
	}
	return constants.MaintenanceStatusCode(id)
}
