package constants

// ID статусов обслуживания. Набор закрытый, совпадает с таблицей maintenance_statuses.
const (
	MaintenanceStatusOperationID   uint64 = 1
	MaintenanceStatusMaintenanceID uint64 = 2
	MaintenanceStatusScheduledID   uint64 = 3
)

const (
	MaintenanceStatusOperationCode   = "OPERATION"
	MaintenanceStatusMaintenanceCode = "MAINTENANCE"
	MaintenanceStatusScheduledCode   = "SCHEDULED"
)

var MaintenanceStatusCodes = map[uint64]string{
	MaintenanceStatusOperationID:   MaintenanceStatusOperationCode,
	MaintenanceStatusMaintenanceID: MaintenanceStatusMaintenanceCode,
	MaintenanceStatusScheduledID:   MaintenanceStatusScheduledCode,
}

func IsKnownMaintenanceStatus(id uint64) bool {
	_, ok := MaintenanceStatusCodes[id]
	return ok
}

func MaintenanceStatusCode(id uint64) string {
	if code, ok := MaintenanceStatusCodes[id]; ok {
		return code
	}
	return "UNKNOWN"
}
