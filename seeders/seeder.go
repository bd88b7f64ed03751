package seeders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/entities"
	"maintenance-service/internal/repositories"
	"maintenance-service/internal/services"
	"maintenance-service/pkg/constants"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/utils"
)

// SeedAdmin создаёт пользователя, если его ещё нет, и возвращает его ID.
func SeedAdmin(ctx context.Context, db *pgxpool.Pool, email, fullName, password string, logger *zap.Logger) (uint64, error) {
	userRepo := repositories.NewUserRepository(db, logger)
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := userRepo.FindByEmail(ctx, email)
	if err == nil {
		logger.Info("Пользователь уже существует, пропускаем", zap.String("email", email))
		return existing.ID, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return 0, fmt.Errorf("ошибка при проверке пользователя %s: %w", email, err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return 0, err
	}
	id, err := userRepo.Create(ctx, nil, entities.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Active:       true,
	})
	if err != nil {
		return 0, fmt.Errorf("не удалось создать пользователя %s: %w", email, err)
	}

	logger.Info("Пользователь создан", zap.String("email", email), zap.Uint64("userID", id))
	return id, nil
}

// SeedDemoEquipment добавляет демонстрационное оборудование, пропуская уже
// существующие серийные номера, и возвращает ID добавленных записей.
func SeedDemoEquipment(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) ([]uint64, error) {
	equipmentRepo := repositories.NewEquipmentRepository(db, logger)
	txManager := repositories.NewTxManager(db)

	var created []uint64
	err := txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		for _, item := range demoEquipments {
			var exists bool
			if err := tx.QueryRow(ctx,
				"SELECT EXISTS (SELECT 1 FROM equipments WHERE serial = $1)", item.Serial,
			).Scan(&exists); err != nil {
				return fmt.Errorf("ошибка проверки оборудования %s: %w", item.Serial, err)
			}
			if exists {
				logger.Debug("Оборудование уже есть, пропускаем", zap.String("serial", item.Serial))
				continue
			}

			id, err := equipmentRepo.Create(ctx, tx, item)
			if err != nil {
				return fmt.Errorf("не удалось добавить оборудование %s: %w", item.Serial, err)
			}
			created = append(created, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Демонстрационное оборудование добавлено", zap.Int("count", len(created)))
	return created, nil
}

// SeedInitialStatuses переводит оборудование без статуса в OPERATION от имени userID.
// Смена идёт через сервис, поэтому заголовок, деталь и история создаются как при обычном запросе.
func SeedInitialStatuses(ctx context.Context, db *pgxpool.Pool, userID uint64, equipmentIDs []uint64, logger *zap.Logger) error {
	equipmentRepo := repositories.NewEquipmentRepository(db, logger)
	statusRepo := repositories.NewMaintenanceStatusRepository(db, nil, 0, logger)
	scheduleRepo := repositories.NewScheduledMaintenanceRepository(db, logger)
	statusService := services.NewMaintenanceStatusService(
		repositories.NewTxManager(db), equipmentRepo, statusRepo, scheduleRepo,
		nil, nil, nil, logger,
	)

	for _, equipmentID := range equipmentIDs {
		current, err := statusService.GetCurrentStatus(ctx, equipmentID)
		if err != nil {
			return err
		}
		if current != nil {
			continue
		}
		if _, err := statusService.ChangeStatus(ctx, userID, dto.ChangeMaintenanceStatusDTO{
			EquipmentID:         equipmentID,
			MaintenanceStatusID: constants.MaintenanceStatusOperationID,
		}); err != nil {
			return fmt.Errorf("не удалось задать начальный статус оборудованию %d: %w", equipmentID, err)
		}
	}
	return nil
}
