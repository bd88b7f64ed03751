package entities

import "time"

type ScheduledMaintenance struct {
	ID            uint64     `db:"scheduled_maintenance_id"`
	EquipmentID   uint64     `db:"equipment_id"`
	ScheduledDate time.Time  `db:"scheduled_date"`
	Active        bool       `db:"active"`
	CreatedAt     time.Time  `db:"created_at"`
	ClosedAt      *time.Time `db:"closed_at"`
	NotifiedAt    *time.Time `db:"notified_at"` // когда о просрочке уже сообщили
}
