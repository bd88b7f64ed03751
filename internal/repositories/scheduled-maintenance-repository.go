package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"maintenance-service/internal/entities"
	"maintenance-service/pkg/constants"
	apperrors "maintenance-service/pkg/errors"
)

const (
	scheduledTable  = "scheduled_maintenances"
	scheduledFields = "scheduled_maintenance_id, equipment_id, scheduled_date, active, created_at, closed_at, notified_at"
)

// ScheduledMaintenanceRepositoryInterface: у оборудования не больше одного
// активного плана. Новый план вытесняет старый, старый закрывается (closed_at).
type ScheduledMaintenanceRepositoryInterface interface {
	FindActive(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.ScheduledMaintenance, error)
	// DeactivateActive закрывает активный план; отсутствие плана не ошибка.
	DeactivateActive(ctx context.Context, tx pgx.Tx, equipmentID uint64) (int64, error)
	Create(ctx context.Context, tx pgx.Tx, equipmentID uint64, scheduledDate time.Time) (uint64, error)
	// FindOverdue - активные планы с датой раньше before у активного оборудования,
	// которое всё ещё SCHEDULED. Уже оповещённые планы тоже возвращаются.
	FindOverdue(ctx context.Context, before time.Time) ([]entities.ScheduledMaintenance, error)
	// MarkOverdueNotified отмечает оповещение о просрочке. false - план уже
	// отмечен (другим экземпляром) или больше не активен.
	MarkOverdueNotified(ctx context.Context, scheduleID uint64, at time.Time) (bool, error)
}

type scheduledMaintenanceRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewScheduledMaintenanceRepository(storage *pgxpool.Pool, logger *zap.Logger) ScheduledMaintenanceRepositoryInterface {
	return &scheduledMaintenanceRepository{storage: storage, logger: logger}
}

func (r *scheduledMaintenanceRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanSchedule(row pgx.Row) (*entities.ScheduledMaintenance, error) {
	var s entities.ScheduledMaintenance
	err := row.Scan(&s.ID, &s.EquipmentID, &s.ScheduledDate, &s.Active, &s.CreatedAt, &s.ClosedAt, &s.NotifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования scheduled_maintenances: %w", err)
	}
	return &s, nil
}

func (r *scheduledMaintenanceRepository) FindActive(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.ScheduledMaintenance, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE equipment_id = $1 AND active`, scheduledFields, scheduledTable)
	return scanSchedule(r.getQuerier(tx).QueryRow(ctx, query, equipmentID))
}

func (r *scheduledMaintenanceRepository) DeactivateActive(ctx context.Context, tx pgx.Tx, equipmentID uint64) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET active = FALSE, closed_at = NOW() WHERE equipment_id = $1 AND active`, scheduledTable)
	result, err := tx.Exec(ctx, query, equipmentID)
	if err != nil {
		return 0, fmt.Errorf("ошибка закрытия плана обслуживания: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *scheduledMaintenanceRepository) Create(ctx context.Context, tx pgx.Tx, equipmentID uint64, scheduledDate time.Time) (uint64, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(scheduledTable).
		Columns("equipment_id", "scheduled_date", "active", "created_at").
		Values(equipmentID, scheduledDate, true, sq.Expr("NOW()")).
		Suffix("RETURNING scheduled_maintenance_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса Create: %w", err)
	}

	var id uint64
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("у оборудования уже есть активный план: %w", apperrors.ErrConflict)
		}
		return 0, fmt.Errorf("ошибка создания плана обслуживания: %w", err)
	}
	return id, nil
}

func (r *scheduledMaintenanceRepository) FindOverdue(ctx context.Context, before time.Time) ([]entities.ScheduledMaintenance, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("sm.scheduled_maintenance_id", "sm.equipment_id", "sm.scheduled_date", "sm.active", "sm.created_at", "sm.closed_at", "sm.notified_at").
		From(scheduledTable+" sm").
		Join(equipmentTable+" e ON e.equipment_id = sm.equipment_id AND e.active").
		Join(statusHeaderTable+" cab ON cab.equipment_id = sm.equipment_id AND cab.active").
		Where(sq.Eq{"sm.active": true, "cab.maintenance_status_id": constants.MaintenanceStatusScheduledID}).
		Where(sq.Lt{"sm.scheduled_date": before}).
		OrderBy("sm.scheduled_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindOverdue: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска просроченных планов: %w", err)
	}
	defer rows.Close()

	list := make([]entities.ScheduledMaintenance, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения просроченных планов: %w", err)
	}
	return list, nil
}

func (r *scheduledMaintenanceRepository) MarkOverdueNotified(ctx context.Context, scheduleID uint64, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET notified_at = $2
		WHERE scheduled_maintenance_id = $1 AND active AND notified_at IS NULL`, scheduledTable)
	result, err := r.storage.Exec(ctx, query, scheduleID, at)
	if err != nil {
		return false, fmt.Errorf("ошибка отметки оповещения о просрочке: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
