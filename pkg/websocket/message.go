package websocket

import "time"

// Envelope - конверт сообщения ленты. EquipmentID позволяет клиенту,
// подписанному на всё оборудование, разложить события по карточкам.
type Envelope struct {
	Type        string      `json:"type"`
	EquipmentID uint64      `json:"equipment_id"`
	Payload     interface{} `json:"payload"`
	Timestamp   time.Time   `json:"timestamp"`
}
