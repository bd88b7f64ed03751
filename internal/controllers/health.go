package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db     Pinger
	logger *zap.Logger
}

func NewHealthController(db Pinger, logger *zap.Logger) *HealthController {
	return &HealthController{db: db, logger: logger}
}

func (c *HealthController) Health(ctx echo.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
	defer cancel()

	if err := c.db.Ping(pingCtx); err != nil {
		c.logger.Error("Health: БД недоступна", zap.Error(err))
		return ctx.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": false, "message": "database unavailable"})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"status": true, "message": "ok"})
}
