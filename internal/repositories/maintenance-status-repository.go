package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/entities"
	"maintenance-service/pkg/constants"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/utils"
)

const (
	maintenanceStatusTable = "maintenance_statuses"
	statusHeaderTable      = "maintenance_status_cab"
	statusDetailTable      = "maintenance_status_det"
	statusHeaderFields     = "maintenance_status_cab_id, equipment_id, maintenance_status_id, active, created_at, valid_to"
)

type MaintenanceStatusRepositoryInterface interface {
	// FindStatus читает строку справочника; неактивная строка считается отсутствующей.
	FindStatus(ctx context.Context, tx pgx.Tx, id uint64) (*entities.MaintenanceStatus, error)
	// GetCurrentHeader возвращает активную шапку или apperrors.ErrNotFound.
	GetCurrentHeader(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.MaintenanceStatusHeader, error)
	// DeactivateCurrent закрывает активную шапку и её детали. Возвращает число закрытых шапок.
	DeactivateCurrent(ctx context.Context, tx pgx.Tx, equipmentID uint64) (int64, error)
	CreateHeader(ctx context.Context, tx pgx.Tx, equipmentID, statusID uint64) (uint64, error)
	CreateDetail(ctx context.Context, tx pgx.Tx, d entities.MaintenanceStatusDetail) (uint64, error)
	QueryStatuses(ctx context.Context, filter dto.MaintenanceStatusFilter) ([]dto.MaintenanceStatusRecordDTO, error)
	GetHistory(ctx context.Context, equipmentID uint64, from, to *time.Time) ([]dto.MaintenanceHistoryDTO, error)
}

type maintenanceStatusRepository struct {
	storage  *pgxpool.Pool
	cache    CacheRepositoryInterface
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewMaintenanceStatusRepository: cache может быть nil, тогда справочник всегда читается из БД.
func NewMaintenanceStatusRepository(storage *pgxpool.Pool, cache CacheRepositoryInterface, cacheTTL time.Duration, logger *zap.Logger) MaintenanceStatusRepositoryInterface {
	return &maintenanceStatusRepository{storage: storage, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func (r *maintenanceStatusRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func (r *maintenanceStatusRepository) FindStatus(ctx context.Context, tx pgx.Tx, id uint64) (*entities.MaintenanceStatus, error) {
	cacheKey := fmt.Sprintf(constants.CacheKeyMaintenanceStatus, id)
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, cacheKey); err == nil {
			var status entities.MaintenanceStatus
			if jsonErr := json.Unmarshal([]byte(raw), &status); jsonErr == nil {
				return &status, nil
			}
		} else if !errors.Is(err, ErrCacheMiss) {
			r.logger.Warn("кеш справочника статусов недоступен", zap.Error(err))
		}
	}

	query := fmt.Sprintf(`SELECT maintenance_status_id, code, name, active FROM %s WHERE maintenance_status_id = $1 AND active`, maintenanceStatusTable)
	var status entities.MaintenanceStatus
	err := r.getQuerier(tx).QueryRow(ctx, query, id).Scan(&status.ID, &status.Code, &status.Name, &status.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения справочника статусов: %w", err)
	}

	if r.cache != nil {
		if raw, err := json.Marshal(status); err == nil {
			if err := r.cache.Set(ctx, cacheKey, raw, r.cacheTTL); err != nil {
				r.logger.Warn("не удалось записать статус в кеш", zap.Uint64("statusID", id), zap.Error(err))
			}
		}
	}
	return &status, nil
}

func (r *maintenanceStatusRepository) GetCurrentHeader(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.MaintenanceStatusHeader, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE equipment_id = $1 AND active`, statusHeaderFields, statusHeaderTable)

	var h entities.MaintenanceStatusHeader
	err := r.getQuerier(tx).QueryRow(ctx, query, equipmentID).Scan(
		&h.ID, &h.EquipmentID, &h.StatusID, &h.Active, &h.CreatedAt, &h.ValidTo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения текущего статуса: %w", err)
	}
	return &h, nil
}

func (r *maintenanceStatusRepository) DeactivateCurrent(ctx context.Context, tx pgx.Tx, equipmentID uint64) (int64, error) {
	headerQuery := fmt.Sprintf(`
		UPDATE %s SET active = FALSE, valid_to = NOW()
		WHERE equipment_id = $1 AND active
		RETURNING maintenance_status_cab_id`, statusHeaderTable)

	rows, err := tx.Query(ctx, headerQuery, equipmentID)
	if err != nil {
		return 0, fmt.Errorf("ошибка деактивации шапки статуса: %w", err)
	}
	headerIDs, err := pgx.CollectRows(rows, pgx.RowTo[uint64])
	if err != nil {
		return 0, fmt.Errorf("ошибка деактивации шапки статуса: %w", err)
	}
	if len(headerIDs) == 0 {
		return 0, nil
	}

	detailQuery, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Update(statusDetailTable).
		Set("active", false).
		Where(sq.Eq{"maintenance_status_cab_id": headerIDs, "active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса деактивации деталей: %w", err)
	}
	if _, err := tx.Exec(ctx, detailQuery, args...); err != nil {
		return 0, fmt.Errorf("ошибка деактивации деталей статуса: %w", err)
	}
	return int64(len(headerIDs)), nil
}

func (r *maintenanceStatusRepository) CreateHeader(ctx context.Context, tx pgx.Tx, equipmentID, statusID uint64) (uint64, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(statusHeaderTable).
		Columns("equipment_id", "maintenance_status_id", "active", "created_at").
		Values(equipmentID, statusID, true, sq.Expr("NOW()")).
		Suffix("RETURNING maintenance_status_cab_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса CreateHeader: %w", err)
	}

	var id uint64
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("у оборудования уже есть активный статус: %w", apperrors.ErrConflict)
		}
		return 0, fmt.Errorf("ошибка создания шапки статуса: %w", err)
	}
	return id, nil
}

func (r *maintenanceStatusRepository) CreateDetail(ctx context.Context, tx pgx.Tx, d entities.MaintenanceStatusDetail) (uint64, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(statusDetailTable).
		Columns("maintenance_status_cab_id", "equipment_id", "maintenance_status_id", "user_id", "active", "created_at").
		Values(d.HeaderID, d.EquipmentID, d.StatusID, d.UserID, true, sq.Expr("NOW()")).
		Suffix("RETURNING maintenance_status_det_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса CreateDetail: %w", err)
	}

	var id uint64
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("ошибка создания детали статуса: %w", err)
	}
	return id, nil
}

func (r *maintenanceStatusRepository) QueryStatuses(ctx context.Context, filter dto.MaintenanceStatusFilter) ([]dto.MaintenanceStatusRecordDTO, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(
			"cab.maintenance_status_cab_id", "det.maintenance_status_det_id",
			"e.equipment_id", "e.description", "e.serial", "e.model",
			"ms.maintenance_status_id", "ms.name", "det.user_id", "cab.created_at",
			"sm.scheduled_date",
		).
		From(statusHeaderTable+" cab").
		Join(statusDetailTable+" det ON det.maintenance_status_cab_id = cab.maintenance_status_cab_id AND det.active").
		Join(equipmentTable+" e ON e.equipment_id = cab.equipment_id AND e.active").
		Join(maintenanceStatusTable+" ms ON ms.maintenance_status_id = cab.maintenance_status_id AND ms.active").
		LeftJoin(scheduledTable+" sm ON sm.equipment_id = cab.equipment_id AND sm.active AND cab.maintenance_status_id = ?",
			constants.MaintenanceStatusScheduledID).
		Where(sq.Eq{"cab.active": true}).
		OrderBy("cab.equipment_id ASC")

	if filter.EquipmentID != nil {
		builder = builder.Where(sq.Eq{"cab.equipment_id": *filter.EquipmentID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса QueryStatuses: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статусов обслуживания: %w", err)
	}
	defer rows.Close()

	records := make([]dto.MaintenanceStatusRecordDTO, 0)
	for rows.Next() {
		var rec dto.MaintenanceStatusRecordDTO
		var createdAt time.Time
		if err := rows.Scan(
			&rec.MaintenanceStatusCabID, &rec.MaintenanceStatusDetID,
			&rec.EquipmentID, &rec.Description, &rec.Serial, &rec.Model,
			&rec.MaintenanceStatusID, &rec.StatusName, &rec.UserID, &createdAt,
			&rec.ScheduledDate,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статуса обслуживания: %w", err)
		}
		rec.CreatedAt = utils.FormatDateTime(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения статусов обслуживания: %w", err)
	}
	return records, nil
}

// GetHistory возвращает все версии статуса оборудования, новые сверху.
// План привязан к версии по created_at: шапка и план создаются в одной
// транзакции и получают одинаковое NOW().
func (r *maintenanceStatusRepository) GetHistory(ctx context.Context, equipmentID uint64, from, to *time.Time) ([]dto.MaintenanceHistoryDTO, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(
			"cab.maintenance_status_cab_id", "cab.maintenance_status_id", "ms.name",
			"det.user_id", "cab.active", "cab.created_at", "cab.valid_to", "sm.scheduled_date",
		).
		From(statusHeaderTable+" cab").
		Join(maintenanceStatusTable+" ms ON ms.maintenance_status_id = cab.maintenance_status_id").
		LeftJoin(statusDetailTable+" det ON det.maintenance_status_cab_id = cab.maintenance_status_cab_id").
		LeftJoin(scheduledTable+" sm ON sm.equipment_id = cab.equipment_id AND sm.created_at = cab.created_at AND cab.maintenance_status_id = ?",
			constants.MaintenanceStatusScheduledID).
		Where(sq.Eq{"cab.equipment_id": equipmentID}).
		OrderBy("cab.created_at DESC", "cab.maintenance_status_cab_id DESC")

	if from != nil {
		builder = builder.Where(sq.GtOrEq{"cab.created_at": *from})
	}
	if to != nil {
		builder = builder.Where(sq.Lt{"cab.created_at": *to})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса GetHistory: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории статусов: %w", err)
	}
	defer rows.Close()

	history := make([]dto.MaintenanceHistoryDTO, 0)
	for rows.Next() {
		var h dto.MaintenanceHistoryDTO
		var createdAt time.Time
		if err := rows.Scan(
			&h.MaintenanceStatusCabID, &h.MaintenanceStatusID, &h.StatusName,
			&h.UserID, &h.Active, &createdAt, &h.ValidTo, &h.ScheduledDate,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования истории статусов: %w", err)
		}
		h.CreatedAt = utils.FormatDateTime(createdAt)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения истории статусов: %w", err)
	}
	return history, nil
}
