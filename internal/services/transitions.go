package services

import (
	"fmt"
	"sort"

	"maintenance-service/pkg/constants"
	apperrors "maintenance-service/pkg/errors"
)

// allowedTransitions - закрытая таблица переходов. Переход в тот же статус запрещён.
var allowedTransitions = map[uint64][]uint64{
	constants.MaintenanceStatusOperationID:   {constants.MaintenanceStatusMaintenanceID, constants.MaintenanceStatusScheduledID},
	constants.MaintenanceStatusMaintenanceID: {constants.MaintenanceStatusOperationID, constants.MaintenanceStatusScheduledID},
	constants.MaintenanceStatusScheduledID:   {constants.MaintenanceStatusOperationID, constants.MaintenanceStatusMaintenanceID},
}

func IsTransitionAllowed(from, to uint64) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition проверяет пару (текущий, новый). Вызывать только когда текущий статус есть.
func ValidateTransition(from, to uint64) error {
	if IsTransitionAllowed(from, to) {
		return nil
	}
	return apperrors.NewInvalidTransition(fmt.Sprintf(
		"переход из статуса %s в статус %s недопустим",
		constants.MaintenanceStatusCode(from), constants.MaintenanceStatusCode(to),
	))
}

// AllowedNextStatuses возвращает допустимые целевые статусы; для from = 0 (статуса ещё нет) - все.
func AllowedNextStatuses(from uint64) []uint64 {
	if from == 0 {
		all := make([]uint64, 0, len(constants.MaintenanceStatusCodes))
		for id := range constants.MaintenanceStatusCodes {
			all = append(all, id)
		}
		sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
		return all
	}
	return append([]uint64(nil), allowedTransitions[from]...)
}
