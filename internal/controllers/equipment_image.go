package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"maintenance-service/internal/services"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/utils"
)

type EquipmentImageController struct {
	imageService services.EquipmentImageServiceInterface
	logger       *zap.Logger
}

func NewEquipmentImageController(imageService services.EquipmentImageServiceInterface, logger *zap.Logger) *EquipmentImageController {
	return &EquipmentImageController{imageService: imageService, logger: logger}
}

// UploadImage - POST /equipment/:id/image, multipart-поле "image".
func (c *EquipmentImageController) UploadImage(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Файл 'image' не передан", err, nil),
			c.logger,
		)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Не удалось прочитать файл", err, nil),
			c.logger,
		)
	}
	defer file.Close()

	res, err := c.imageService.UploadImage(ctx.Request().Context(), id, file, fileHeader.Size, fileHeader.Filename)
	if err != nil {
		return utils.ErrorResponse(ctx, internalError(err, "Не удалось загрузить изображение"), c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Изображение оборудования обновлено", http.StatusOK)
}
