package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type outgoing struct {
	equipmentID uint64
	data        []byte
}

// Hub рассылает события ленты статусов подключённым клиентам.
// Карта клиентов принадлежит горутине Run, остальные методы общаются с ней через каналы.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan outgoing
	done       chan struct{}
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outgoing, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обслуживает хаб до отмены ctx, после чего закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			h.logger.Info("WebSocket-хаб остановлен")
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.logger.Debug("Клиент ленты подключён",
				zap.Uint64("userID", client.UserID),
				zap.Uint64("equipmentID", client.EquipmentID),
				zap.Int("clients", len(h.clients)),
			)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("Клиент ленты отключён", zap.Uint64("userID", client.UserID))
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.EquipmentID != 0 && client.EquipmentID != msg.equipmentID {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					h.logger.Warn("Клиент ленты не успевает читать, соединение закрыто", zap.Uint64("userID", client.UserID))
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast ставит событие в очередь рассылки. При переполненной очереди
// событие отбрасывается с ошибкой: лента не должна тормозить смену статусов.
func (h *Hub) Broadcast(messageType string, equipmentID uint64, payload interface{}) error {
	data, err := json.Marshal(Envelope{
		Type:        messageType,
		EquipmentID: equipmentID,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации сообщения ленты: %w", err)
	}

	select {
	case <-h.done:
		return fmt.Errorf("хаб ленты остановлен")
	default:
	}

	select {
	case h.broadcast <- outgoing{equipmentID: equipmentID, data: data}:
		return nil
	default:
		return fmt.Errorf("очередь ленты переполнена, событие %s отброшено", messageType)
	}
}
