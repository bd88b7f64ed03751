package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"maintenance-service/internal/entities"
	db "maintenance-service/internal/infrastructure/bd"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/types"
)

const (
	equipmentTable  = "equipments"
	locationTable   = "locations"
	equipmentFields = "e.equipment_id, e.description, e.location_id, l.zone_name, e.serial, e.model, e.image, e.active, e.created_at, e.updated_at"
	equipmentFrom   = equipmentTable + " e LEFT JOIN " + locationTable + " l ON l.location_id = e.location_id"
	// текущий статус: активная шапка -> активная деталь -> активный статус справочника
	equipmentStatusFields = "ms.maintenance_status_id, ms.code, ms.name"
	equipmentStatusJoin   = statusHeaderTable + " cab ON cab.equipment_id = e.equipment_id AND cab.active " +
		"LEFT JOIN " + statusDetailTable + " det ON det.maintenance_status_cab_id = cab.maintenance_status_cab_id AND det.active " +
		"LEFT JOIN " + maintenanceStatusTable + " ms ON ms.maintenance_status_id = det.maintenance_status_id AND ms.active"
)

// allowedEquipmentFilters - белый список полей для filter[...] и sort[...].
var allowedEquipmentFilters = map[string]string{
	"equipment_id": "e.equipment_id",
	"location_id":  "e.location_id",
	"serial":       "e.serial",
	"model":        "e.model",
	"active":       "e.active",
	"created_at":   "e.created_at",
	"updated_at":   "e.updated_at",
}

var equipmentSearchColumns = []string{"e.description", "e.serial", "e.model", "l.zone_name"}

type EquipmentRepositoryInterface interface {
	// GetEquipments при withStatus добавляет к строкам текущий статус обслуживания.
	GetEquipments(ctx context.Context, filter types.Filter, withStatus bool) ([]entities.EquipmentWithStatus, uint64, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	// LockActive берёт строку активного оборудования FOR UPDATE; tx обязателен.
	LockActive(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	Create(ctx context.Context, tx pgx.Tx, e entities.Equipment) (uint64, error)
	Update(ctx context.Context, tx pgx.Tx, id uint64, e entities.Equipment) error
	Deactivate(ctx context.Context, tx pgx.Tx, id uint64) error
}

type equipmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEquipmentRepository(storage *pgxpool.Pool, logger *zap.Logger) EquipmentRepositoryInterface {
	return &equipmentRepository{storage: storage, logger: logger}
}

func (r *equipmentRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func equipmentDest(e *entities.Equipment) []interface{} {
	return []interface{}{
		&e.ID, &e.Description, &e.LocationID, &e.Location, &e.Serial, &e.Model, &e.Image,
		&e.Active, &e.CreatedAt, &e.UpdatedAt,
	}
}

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var e entities.Equipment
	if err := row.Scan(equipmentDest(&e)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования equipments: %w", err)
	}
	return &e, nil
}

func (r *equipmentRepository) GetEquipments(ctx context.Context, filter types.Filter, withStatus bool) ([]entities.EquipmentWithStatus, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	base := psql.Select(equipmentFields).From(equipmentFrom)
	if withStatus {
		base = base.Column(equipmentStatusFields).LeftJoin(equipmentStatusJoin)
	}
	base = db.ApplySearch(base, filter.Search, equipmentSearchColumns)
	builder := db.ApplyListParams(base, filter, allowedEquipmentFilters)
	if len(filter.Sort) == 0 {
		builder = builder.OrderBy("e.equipment_id ASC")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса GetEquipments: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка оборудования: %w", err)
	}
	defer rows.Close()

	list := make([]entities.EquipmentWithStatus, 0)
	for rows.Next() {
		var item entities.EquipmentWithStatus
		dest := equipmentDest(&item.Equipment)
		if withStatus {
			dest = append(dest, &item.StatusID, &item.StatusCode, &item.StatusName)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования equipments: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения списка оборудования: %w", err)
	}

	countBuilder := psql.Select("COUNT(*)").From(equipmentFrom)
	countBuilder = db.ApplySearch(countBuilder, filter.Search, equipmentSearchColumns)
	countBuilder = db.ApplyFilters(countBuilder, filter, allowedEquipmentFilters)
	countSQL, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса подсчёта оборудования: %w", err)
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта оборудования: %w", err)
	}

	return list, total, nil
}

func (r *equipmentRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(equipmentFields).
		From(equipmentFrom).
		Where(sq.Eq{"e.equipment_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindByID: %w", err)
	}
	return scanEquipment(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *equipmentRepository) LockActive(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE e.equipment_id = $1 AND e.active FOR UPDATE OF e`, equipmentFields, equipmentFrom)
	return scanEquipment(tx.QueryRow(ctx, query, id))
}

func (r *equipmentRepository) Create(ctx context.Context, tx pgx.Tx, e entities.Equipment) (uint64, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Insert(equipmentTable).
		Columns("description", "location_id", "serial", "model", "image", "active", "created_at", "updated_at").
		Values(e.Description, e.LocationID, e.Serial, e.Model, e.Image, true, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING equipment_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса Create: %w", err)
	}

	var newID uint64
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&newID); err != nil {
		return 0, fmt.Errorf("ошибка создания оборудования: %w", err)
	}
	return newID, nil
}

func (r *equipmentRepository) Update(ctx context.Context, tx pgx.Tx, id uint64, e entities.Equipment) error {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Update(equipmentTable).
		Set("description", e.Description).
		Set("location_id", e.LocationID).
		Set("serial", e.Serial).
		Set("model", e.Model).
		Set("image", e.Image).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"equipment_id": id, "active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Update: %w", err)
	}

	result, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления оборудования: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Deactivate - мягкое удаление, строки оборудования никогда не удаляются.
func (r *equipmentRepository) Deactivate(ctx context.Context, tx pgx.Tx, id uint64) error {
	query := fmt.Sprintf(`UPDATE %s SET active = FALSE, updated_at = NOW() WHERE equipment_id = $1 AND active`, equipmentTable)
	result, err := r.getQuerier(tx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка деактивации оборудования: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
