package dto

type CreateEquipmentDTO struct {
	Description string `json:"description" validate:"required,max=255"`
	LocationID  uint64 `json:"location_id" validate:"required,gt=0"`
	Serial      string `json:"serial" validate:"required,max=100"`
	Model       string `json:"model" validate:"required,max=100"`
	Image       string `json:"image" validate:"omitempty,max=500"`
}

type UpdateEquipmentDTO struct {
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
	LocationID  *uint64 `json:"location_id,omitempty" validate:"omitempty,gt=0"`
	Serial      *string `json:"serial,omitempty"      validate:"omitempty,max=100"`
	Model       *string `json:"model,omitempty"       validate:"omitempty,max=100"`
	Image       *string `json:"image,omitempty"       validate:"omitempty,max=500"`
}

type EquipmentDTO struct {
	ID          uint64 `json:"equipment_id"`
	Description string `json:"description"`
	LocationID  uint64 `json:"location_id"`
	Location    string `json:"location"`
	Serial      string `json:"serial"`
	Model       string `json:"model"`
	Image       string `json:"image"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`

	// MaintenanceStatus заполняется только при all_info=true; nil - статуса нет.
	MaintenanceStatus *EquipmentStatusDTO `json:"maintenance_status,omitempty"`
}

type EquipmentStatusDTO struct {
	MaintenanceStatusID uint64 `json:"maintenance_status_id"`
	Code                string `json:"code"`
	Name                string `json:"name"`
}

// EquipmentListOptions - параметры списка сверх общего types.Filter.
type EquipmentListOptions struct {
	WithStatus bool
}
