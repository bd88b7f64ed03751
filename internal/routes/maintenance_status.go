package routes

import (
	"github.com/labstack/echo/v4"

	"maintenance-service/internal/controllers"
)

func runMaintenanceStatusRouter(secureGroup *echo.Group, ctrl *controllers.MaintenanceStatusController, feed *controllers.StatusFeedController) {
	group := secureGroup.Group("/maintenance-status")
	group.GET("", ctrl.QueryStatuses)
	group.POST("", ctrl.ChangeStatus)
	group.GET("/current/:equipment_id", ctrl.GetCurrentStatus)
	group.GET("/history/:equipment_id", ctrl.GetHistory)
	group.GET("/history/:equipment_id/export", ctrl.ExportHistory)
	if feed != nil {
		group.GET("/feed", feed.Subscribe)
	}
}
