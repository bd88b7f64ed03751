package dto

import "github.com/aarondl/null/v8"

// ChangeMaintenanceStatusDTO - тело POST /maintenance-status. user_id берётся
// только из JWT, в теле его нет. scheduled_date проверяет сервис и только
// для статуса SCHEDULED, после проверок оборудования и статуса.
type ChangeMaintenanceStatusDTO struct {
	EquipmentID         uint64  `json:"equipment_id" validate:"required,gt=0"`
	MaintenanceStatusID uint64  `json:"maintenance_status_id" validate:"required,gt=0"`
	ScheduledDate       *string `json:"scheduled_date,omitempty"`
}

type ChangeMaintenanceStatusResultDTO struct {
	MaintenanceStatusCabID uint64 `json:"maintenance_status_cab_id"`
}

// MaintenanceStatusFilter - единственный поддерживаемый фильтр queryStatuses.
type MaintenanceStatusFilter struct {
	EquipmentID *uint64
}

type CurrentStatusDTO struct {
	MaintenanceStatusCabID uint64   `json:"maintenance_status_cab_id"`
	EquipmentID            uint64   `json:"equipment_id"`
	MaintenanceStatusID    uint64   `json:"maintenance_status_id"`
	Code                   string   `json:"code"`
	CreatedAt              string   `json:"created_at"`
	AllowedNextStatusIDs   []uint64 `json:"allowed_next_status_ids"`
}

// MaintenanceStatusRecordDTO - строка queryStatuses: шапка + деталь +
// оборудование + дата плана, если статус SCHEDULED.
type MaintenanceStatusRecordDTO struct {
	MaintenanceStatusCabID uint64    `json:"maintenance_status_cab_id"`
	MaintenanceStatusDetID uint64    `json:"maintenance_status_det_id"`
	EquipmentID            uint64    `json:"equipment_id"`
	Description            string    `json:"description"`
	Serial                 string    `json:"serial"`
	Model                  string    `json:"model"`
	MaintenanceStatusID    uint64    `json:"maintenance_status_id"`
	StatusName             string    `json:"status_name"`
	UserID                 uint64    `json:"user_id"`
	CreatedAt              string    `json:"created_at"`
	ScheduledDate          null.Time `json:"scheduled_date"`
}

type MaintenanceHistoryFilterDTO struct {
	From *string `query:"from" validate:"omitempty,maintenance_date"`
	To   *string `query:"to"   validate:"omitempty,maintenance_date"`
}

// MaintenanceHistoryDTO - одна версия статуса, включая вытесненные.
type MaintenanceHistoryDTO struct {
	MaintenanceStatusCabID uint64      `json:"maintenance_status_cab_id"`
	MaintenanceStatusID    uint64      `json:"maintenance_status_id"`
	StatusName             string      `json:"status_name"`
	UserID                 null.Uint64 `json:"user_id"`
	Active                 bool        `json:"active"`
	CreatedAt              string      `json:"created_at"`
	ValidTo                null.Time   `json:"valid_to"`
	ScheduledDate          null.Time   `json:"scheduled_date"`
}
