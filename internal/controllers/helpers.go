package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "maintenance-service/pkg/errors"
)

// parseIDParam читает положительный uint64 из параметра пути.
func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный формат "+name,
			err,
			map[string]interface{}{"param": raw},
		)
	}
	return id, nil
}

func internalError(err error, message string) error {
	return apperrors.ToHttpError(err, message)
}
