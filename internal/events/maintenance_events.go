package events

import (
	"time"

	"maintenance-service/pkg/constants"
)

// MaintenanceStatusChangedEvent публикуется после коммита смены статуса.
// FromStatusID = 0, если у оборудования ещё не было статуса.
type MaintenanceStatusChangedEvent struct {
	EquipmentID            uint64     `json:"equipment_id"`
	MaintenanceStatusCabID uint64     `json:"maintenance_status_cab_id"`
	FromStatusID           uint64     `json:"from_status_id"`
	ToStatusID             uint64     `json:"to_status_id"`
	UserID                 uint64     `json:"user_id"`
	ScheduledDate          *time.Time `json:"scheduled_date,omitempty"`
	ChangedAt              time.Time  `json:"changed_at"`
}

func (e MaintenanceStatusChangedEvent) Name() string {
	return constants.EventMaintenanceStatusChanged
}

// MaintenanceScheduleOverdueEvent - плановая дата прошла, а оборудование всё ещё SCHEDULED.
type MaintenanceScheduleOverdueEvent struct {
	EquipmentID            uint64    `json:"equipment_id"`
	ScheduledMaintenanceID uint64    `json:"scheduled_maintenance_id"`
	ScheduledDate          time.Time `json:"scheduled_date"`
	DetectedAt             time.Time `json:"detected_at"`
}

func (e MaintenanceScheduleOverdueEvent) Name() string {
	return constants.EventMaintenanceScheduleOverdue
}
