package controllers

import (
	"net/http"
	"strconv"

	gws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/utils"
	"maintenance-service/pkg/websocket"
)

type StatusFeedController struct {
	hub      *websocket.Hub
	upgrader gws.Upgrader
	logger   *zap.Logger
}

// NewStatusFeedController: пустой allowedOrigins пропускает любой Origin.
func NewStatusFeedController(hub *websocket.Hub, allowedOrigins []string, logger *zap.Logger) *StatusFeedController {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &StatusFeedController{
		hub: hub,
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		logger: logger,
	}
}

// Subscribe - GET /maintenance-status/feed[?equipment_id=]. Держит соединение,
// пока клиент не отключится.
func (c *StatusFeedController) Subscribe(ctx echo.Context) error {
	var equipmentID uint64
	if raw := ctx.QueryParam("equipment_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return utils.ErrorResponse(ctx,
				apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат equipment_id", err, nil),
				c.logger,
			)
		}
		equipmentID = id
	}
	userID, _ := utils.GetUserIDFromCtx(ctx.Request().Context())

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// Upgrade уже ответил клиенту.
		c.logger.Warn("Subscribe: не удалось открыть WebSocket", zap.Error(err))
		return nil
	}

	client := websocket.NewClient(c.hub, conn, userID, equipmentID)
	if !c.hub.Register(client) {
		_ = conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseGoingAway, "server shutdown"))
		return conn.Close()
	}

	go client.WritePump()
	client.ReadPump()
	return nil
}
