package websocket

// Broadcaster интерфейс для рассылки обновлений всем подписчикам комнаты
type Broadcaster interface {
	Broadcast(roomCode string, messageType string, payload interface{})
}
