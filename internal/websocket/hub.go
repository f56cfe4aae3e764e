package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/pkg/logger"
)

// Hub управляет WebSocket подключениями, сгруппированными по коду комнаты
type Hub struct {
	// Клиенты по комнатам
	rooms map[string]map[*Client]bool

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Канал для broadcast сообщений
	broadcast chan *Message

	// Mutex для защиты rooms map
	mu sync.RWMutex

	log *logger.Logger
}

// Message представляет WebSocket сообщение
type Message struct {
	RoomCode string      `json:"room_code"`
	Type     MessageType `json:"type"`
	Payload  interface{} `json:"payload"`
}

// MessageType тип сообщения
type MessageType string

const (
	MessageTypeUserJoined       MessageType = "user_joined"
	MessageTypeUserLeft         MessageType = "user_left"
	MessageTypeProblemAssigned  MessageType = "problem_assigned"
	MessageTypePlayerCount      MessageType = "player_count"
	MessageTypeGameStart        MessageType = "game_start"
	MessageTypeCodeChange       MessageType = "code_change"
	MessageTypeSubmissionResult MessageType = "submission_result"
	MessageTypeGameOver         MessageType = "game_over"
	MessageTypeRoomFull         MessageType = "room_full"
	MessageTypeSpectateInit     MessageType = "spectate_init"
	MessageTypeError            MessageType = "error"
	MessageTypePing             MessageType = "ping"
	MessageTypePong             MessageType = "pong"
)

// NewHub создаёт новый WebSocket hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		log:        log,
	}
}

// Run запускает hub в отдельной горутине
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient регистрирует клиента
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.roomCode] == nil {
		h.rooms[client.roomCode] = make(map[*Client]bool)
	}

	h.rooms[client.roomCode][client] = true

	h.log.Info("Client registered",
		zap.String("room_code", client.roomCode),
		zap.String("username", client.username),
	)
}

// unregisterClient отменяет регистрацию клиента
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[client.roomCode]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)

			// Удаляем пустую map комнаты
			if len(clients) == 0 {
				delete(h.rooms, client.roomCode)
			}

			h.log.Info("Client unregistered",
				zap.String("room_code", client.roomCode),
				zap.String("username", client.username),
			)
		}
	}
}

// broadcastMessage отправляет сообщение всем подписчикам комнаты
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[message.RoomCode]
	if !ok {
		return
	}

	// Сериализуем сообщение один раз
	data, err := json.Marshal(message)
	if err != nil {
		h.log.LogError("Failed to marshal message", err)
		return
	}

	// Отправляем всем подписчикам; медленных отключаем
	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.log.Info("Client send buffer full, disconnecting",
				zap.String("room_code", client.roomCode),
				zap.String("username", client.username),
			)
			close(client.send)
			delete(clients, client)
		}
	}

	h.log.Debug("Broadcast message sent",
		zap.String("room_code", message.RoomCode),
		zap.String("type", string(message.Type)),
		zap.Int("clients", len(clients)),
	)
}

// Broadcast отправляет сообщение в канал broadcast; реализует websocket.Broadcaster
func (h *Hub) Broadcast(roomCode string, messageType string, payload interface{}) {
	message := &Message{
		RoomCode: roomCode,
		Type:     MessageType(messageType),
		Payload:  payload,
	}

	select {
	case h.broadcast <- message:
	default:
		h.log.Error("Broadcast channel full, message dropped",
			zap.String("room_code", roomCode),
			zap.String("type", messageType),
		)
	}
}

// shutdown корректно завершает работу hub
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomCode, clients := range h.rooms {
		for client := range clients {
			close(client.send)
			delete(clients, client)
		}
		delete(h.rooms, roomCode)
	}

	h.log.Info("WebSocket hub shutdown complete")
}

// GetStats возвращает статистику hub
func (h *Hub) GetStats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalClients := 0
	for _, clients := range h.rooms {
		totalClients += len(clients)
	}

	return map[string]interface{}{
		"rooms":         len(h.rooms),
		"total_clients": totalClients,
	}
}
