package routes

import (
	"github.com/labstack/echo/v4"

	"maintenance-service/internal/controllers"
	"maintenance-service/pkg/metrics"
)

func runSystemRouter(e *echo.Echo, health *controllers.HealthController, recorder *metrics.Recorder, uploadDir string) {
	e.GET("/health", health.Health)
	e.Static("/uploads", uploadDir)
	if recorder != nil {
		e.GET("/metrics", echo.WrapHandler(recorder.Handler()))
	}
}
