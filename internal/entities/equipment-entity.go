package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

type Equipment struct {
	ID          uint64      `json:"equipment_id" db:"equipment_id"`
	Description string      `json:"description" db:"description"`
	LocationID  uint64      `json:"location_id" db:"location_id"`
	Location    null.String `json:"location" db:"zone_name"`
	Serial      string      `json:"serial" db:"serial"`
	Model       string      `json:"model" db:"model"`
	Image       string      `json:"image" db:"image"`
	Active      bool        `json:"active" db:"active"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// EquipmentWithStatus - строка списка с all_info: оборудование и его текущий
// статус обслуживания, если он есть.
type EquipmentWithStatus struct {
	Equipment
	StatusID   null.Uint64 `db:"maintenance_status_id"`
	StatusCode null.String `db:"code"`
	StatusName null.String `db:"name"`
}
