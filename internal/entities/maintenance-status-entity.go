package entities

import "time"

// MaintenanceStatus - строка справочника статусов обслуживания.
type MaintenanceStatus struct {
	ID     uint64 `json:"maintenance_status_id" db:"maintenance_status_id"`
	Code   string `json:"code" db:"code"`
	Name   string `json:"name" db:"name"`
	Active bool   `json:"active" db:"active"`
}

// MaintenanceStatusHeader (maintenance_status_cab) - текущий статус оборудования.
// Активной может быть только одна строка на оборудование; при смене статуса
// старая строка закрывается (active = false, valid_to), а не изменяется.
type MaintenanceStatusHeader struct {
	ID          uint64     `db:"maintenance_status_cab_id"`
	EquipmentID uint64     `db:"equipment_id"`
	StatusID    uint64     `db:"maintenance_status_id"`
	Active      bool       `db:"active"`
	CreatedAt   time.Time  `db:"created_at"`
	ValidTo     *time.Time `db:"valid_to"`
}

// MaintenanceStatusDetail (maintenance_status_det) - запись журнала: кто и когда
// установил статус. Деактивируется вместе со своей шапкой.
type MaintenanceStatusDetail struct {
	ID          uint64    `db:"maintenance_status_det_id"`
	HeaderID    uint64    `db:"maintenance_status_cab_id"`
	EquipmentID uint64    `db:"equipment_id"`
	StatusID    uint64    `db:"maintenance_status_id"`
	UserID      uint64    `db:"user_id"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
}
