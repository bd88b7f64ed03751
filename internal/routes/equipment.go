package routes

import (
	"github.com/labstack/echo/v4"

	"maintenance-service/internal/controllers"
)

func runEquipmentRouter(secureGroup *echo.Group, ctrl *controllers.EquipmentController, images *controllers.EquipmentImageController) {
	secureGroup.GET("/equipment", ctrl.GetEquipments)
	secureGroup.GET("/equipment/:id", ctrl.FindEquipment)
	secureGroup.POST("/equipment", ctrl.CreateEquipment)
	secureGroup.PUT("/equipment/:id", ctrl.UpdateEquipment)
	secureGroup.DELETE("/equipment/:id", ctrl.DeleteEquipment)
	secureGroup.POST("/equipment/:id/image", images.UploadImage)
}
