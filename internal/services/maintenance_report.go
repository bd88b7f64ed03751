package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/pkg/constants"
	"maintenance-service/pkg/utils"
)

const historySheet = "История статусов"

var historyHeaders = []interface{}{
	"ID статуса", "Статус", "Код", "Пользователь", "Установлен", "Действовал до", "Плановая дата", "Активен",
}

type MaintenanceReportServiceInterface interface {
	// WriteHistoryXLSX пишет историю статусов оборудования в w в формате XLSX.
	WriteHistoryXLSX(ctx context.Context, w io.Writer, equipmentID uint64, filter dto.MaintenanceHistoryFilterDTO) error
}

type MaintenanceReportService struct {
	statusService MaintenanceStatusServiceInterface
	logger        *zap.Logger
}

func NewMaintenanceReportService(statusService MaintenanceStatusServiceInterface, logger *zap.Logger) MaintenanceReportServiceInterface {
	return &MaintenanceReportService{statusService: statusService, logger: logger}
}

func historyRow(h dto.MaintenanceHistoryDTO) []interface{} {
	var userID, validTo, scheduled string
	if h.UserID.Valid {
		userID = fmt.Sprintf("%d", h.UserID.Uint64)
	}
	if h.ValidTo.Valid {
		validTo = utils.FormatDateTime(h.ValidTo.Time)
	}
	if h.ScheduledDate.Valid {
		scheduled = h.ScheduledDate.Time.Format(utils.DateLayout)
	}
	active := "нет"
	if h.Active {
		active = "да"
	}
	return []interface{}{
		h.MaintenanceStatusCabID, h.StatusName, constants.MaintenanceStatusCode(h.MaintenanceStatusID),
		userID, h.CreatedAt, validTo, scheduled, active,
	}
}

func (s *MaintenanceReportService) WriteHistoryXLSX(ctx context.Context, w io.Writer, equipmentID uint64, filter dto.MaintenanceHistoryFilterDTO) error {
	history, err := s.statusService.GetHistory(ctx, equipmentID, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("не удалось закрыть XLSX-файл", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("ошибка подготовки листа: %w", err)
	}
	if err := f.SetSheetRow(historySheet, "A1", &historyHeaders); err != nil {
		return fmt.Errorf("ошибка записи заголовка: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(historySheet, "A1", "H1", style)
	}

	for i, h := range history {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := historyRow(h)
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return fmt.Errorf("ошибка записи строки %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(historySheet, "B", "B", 25)
	_ = f.SetColWidth(historySheet, "E", "G", 22)

	s.logger.Debug("Сформирован XLSX истории статусов", zap.Uint64("equipmentID", equipmentID), zap.Int("rows", len(history)))
	return f.Write(w)
}
