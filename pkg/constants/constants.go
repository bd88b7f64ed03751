// pkg/constants/constants.go
package constants

//============== CACHE KEYS ==============

// Префиксы для ключей в Redis.
const (
	// Блокировка смены статуса обслуживания одного оборудования.
	// Формат: maintenance:lock:equipment:<equipmentID> -> uuid владельца
	CacheKeyEquipmentLock = "maintenance:lock:equipment:%d"

	// Кеш справочника статусов обслуживания.
	// Формат: maintenance:status:<statusID> -> JSON
	CacheKeyMaintenanceStatus = "maintenance:status:%d"

	// Блокировка задач планировщика между экземплярами сервиса.
	// Формат: maintenance:lock:job:<имя задачи> -> uuid владельца
	CacheKeyJobLock = "maintenance:lock:job:%s"
)

//============== EVENTS ==============

const (
	EventMaintenanceStatusChanged   = "maintenance.status.changed"
	EventMaintenanceScheduleOverdue = "maintenance.schedule.overdue"
)
