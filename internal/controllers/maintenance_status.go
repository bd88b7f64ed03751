package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/services"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MaintenanceStatusController struct {
	statusService services.MaintenanceStatusServiceInterface
	reportService services.MaintenanceReportServiceInterface
	logger        *zap.Logger
}

func NewMaintenanceStatusController(
	statusService services.MaintenanceStatusServiceInterface,
	reportService services.MaintenanceReportServiceInterface,
	logger *zap.Logger,
) *MaintenanceStatusController {
	return &MaintenanceStatusController{
		statusService: statusService,
		reportService: reportService,
		logger:        logger,
	}
}

// QueryStatuses - GET /maintenance-status[?equipment_id=]. Пустой результат
// отдаётся как 404 с пустым списком.
func (c *MaintenanceStatusController) QueryStatuses(ctx echo.Context) error {
	var filter dto.MaintenanceStatusFilter
	if raw := ctx.QueryParam("equipment_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return utils.ErrorResponse(ctx,
				apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат equipment_id", err, map[string]interface{}{"equipment_id": raw}),
				c.logger,
			)
		}
		filter.EquipmentID = &id
	}

	records, err := c.statusService.QueryStatuses(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, internalError(err, "Не удалось получить статусы обслуживания"), c.logger)
	}
	if len(records) == 0 {
		return ctx.JSON(http.StatusNotFound, &utils.HTTPResponse{
			Status:  false,
			Message: "Статусы обслуживания не найдены",
			Body:    records,
		})
	}
	return utils.SuccessResponse(ctx, records, "Статусы обслуживания успешно получены", http.StatusOK)
}

func (c *MaintenanceStatusController) ChangeStatus(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusUnauthorized, apperrors.ErrUnauthorized.Error(), err, nil), c.logger)
	}

	var payload dto.ChangeMaintenanceStatusDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("ChangeStatus: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", nil, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	headerID, err := c.statusService.ChangeStatus(reqCtx, userID, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, internalError(err, "Не удалось изменить статус обслуживания"), c.logger)
	}

	return utils.SuccessResponse(ctx,
		dto.ChangeMaintenanceStatusResultDTO{MaintenanceStatusCabID: headerID},
		"Статус обслуживания успешно изменён",
		http.StatusCreated,
	)
}

func (c *MaintenanceStatusController) GetCurrentStatus(ctx echo.Context) error {
	equipmentID, err := parseIDParam(ctx, "equipment_id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	current, err := c.statusService.GetCurrentStatus(ctx.Request().Context(), equipmentID)
	if err != nil {
		return utils.ErrorResponse(ctx, internalError(err, "Не удалось получить текущий статус"), c.logger)
	}
	if current == nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusNotFound, "У оборудования ещё нет статуса", nil, nil),
			c.logger,
		)
	}
	return utils.SuccessResponse(ctx, current, "Текущий статус успешно получен", http.StatusOK)
}

func (c *MaintenanceStatusController) historyFilter(ctx echo.Context) (uint64, dto.MaintenanceHistoryFilterDTO, error) {
	var filter dto.MaintenanceHistoryFilterDTO
	equipmentID, err := parseIDParam(ctx, "equipment_id")
	if err != nil {
		return 0, filter, err
	}
	if v := ctx.QueryParam("from"); v != "" {
		filter.From = &v
	}
	if v := ctx.QueryParam("to"); v != "" {
		filter.To = &v
	}
	if err := ctx.Validate(&filter); err != nil {
		return 0, filter, err
	}
	return equipmentID, filter, nil
}

func (c *MaintenanceStatusController) GetHistory(ctx echo.Context) error {
	equipmentID, filter, err := c.historyFilter(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	history, err := c.statusService.GetHistory(ctx.Request().Context(), equipmentID, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, internalError(err, "Не удалось получить историю статусов"), c.logger)
	}
	return utils.SuccessResponse(ctx, history, "История статусов успешно получена", http.StatusOK)
}

func (c *MaintenanceStatusController) ExportHistory(ctx echo.Context) error {
	equipmentID, filter, err := c.historyFilter(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var buf bytes.Buffer
	if err := c.reportService.WriteHistoryXLSX(ctx.Request().Context(), &buf, equipmentID, filter); err != nil {
		return utils.ErrorResponse(ctx, internalError(err, "Не удалось сформировать отчёт"), c.logger)
	}

	fileName := fmt.Sprintf("maintenance_history_%d_%s.xlsx", equipmentID, time.Now().Format(utils.DateLayout))
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
