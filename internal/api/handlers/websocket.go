package handlers

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/api/middleware"
	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/internal/domain/room"
	"github.com/strongfeels/bitbattle/internal/websocket"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		allowedOrigins := os.Getenv("WEBSOCKET_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		for _, allowed := range strings.Split(allowedOrigins, ",") {
			if strings.TrimSpace(allowed) == origin {
				return true
			}
		}
		return false
	},
}

const defaultRequiredPlayers = 2

// RoomSource создаёт или находит комнату по коду - используется обработчиком
// websocket-подключений для join-on-connect (C0)
type RoomSource interface {
	Get(code string) (*room.Room, bool)
	Create(code string, requiredPlayers int, gameMode domain.GameMode, problem *domain.Problem, public bool) (*room.Room, error)
}

// WebSocketHandler обрабатывает WebSocket подключения игроков и зрителей
type WebSocketHandler struct {
	hub   *websocket.Hub
	rooms RoomSource
	log   *logger.Logger
}

// NewWebSocketHandler создаёт новый WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub, rooms RoomSource, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, rooms: rooms, log: log}
}

// resolveRoom находит существующую комнату по коду или создаёт новую лениво,
// когда игрок подключается к коду, ещё не заведённому матчмейкером вручную.
func (h *WebSocketHandler) resolveRoom(r *http.Request) (*room.Room, error) {
	code := r.URL.Query().Get("room")
	if code == "" {
		return nil, errors.ErrInvalidInput.WithMessage("room is required")
	}

	if rm, ok := h.rooms.Get(code); ok {
		return rm, nil
	}

	players := defaultRequiredPlayers
	if raw := r.URL.Query().Get("players"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 2 && n <= 4 {
			players = n
		}
	}

	mode := domain.GameMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = domain.GameModeCasual
	}

	return h.rooms.Create(code, players, mode, nil, false)
}

// HandlePlay обрабатывает подключение игрока к комнате, присоединяя его к
// ростеру ещё до upgrade соединения и транслируя code_change дальше актору комнаты.
// WS /ws?room=&difficulty=&players=&mode=
func (h *WebSocketHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	rm, err := h.resolveRoom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		if userID, ok := middleware.GetUserID(r.Context()); ok {
			username = userID.String()
		} else {
			writeError(w, errors.ErrInvalidInput.WithMessage("username is required"))
			return
		}
	}

	var userID *uuid.UUID
	if id, ok := middleware.GetUserID(r.Context()); ok {
		userID = &id
	}

	outcome := rm.Join(username, userID)
	if !outcome.Accepted {
		writeError(w, errors.ErrAlreadyExists.WithMessage("room is full"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.LogError("failed to upgrade websocket connection", err, zap.String("room_code", rm.Code()))
		return
	}

	h.log.Info("websocket player connected", zap.String("room_code", rm.Code()), zap.String("username", username))

	inbound := func(msg websocket.Message) {
		if msg.Type != websocket.MessageTypeCodeChange {
			return
		}
		code, _ := msg.Payload.(string)
		rm.CodeChange(username, code)
	}

	client := websocket.NewClient(h.hub, conn, rm.Code(), username, false, inbound, h.log)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}

// HandleSpectate обрабатывает подключение зрителя: инициализирует его снимком
// текущего состояния, затем подписывает на общий поток трансляции комнаты.
// WS /ws/spectate?room=
func (h *WebSocketHandler) HandleSpectate(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	if code == "" {
		writeError(w, errors.ErrInvalidInput.WithMessage("room is required"))
		return
	}

	rm, ok := h.rooms.Get(code)
	if !ok {
		writeError(w, errors.ErrNotFound.WithMessage("room not found"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.LogError("failed to upgrade spectator connection", err, zap.String("room_code", code))
		return
	}

	client := websocket.NewClient(h.hub, conn, code, "spectator", true, nil, h.log)
	client.Register()

	snapshot := rm.AttachSpectator()
	initMsg := websocket.Message{RoomCode: code, Type: websocket.MessageTypeSpectateInit, Payload: snapshot}
	if err := conn.WriteJSON(initMsg); err != nil {
		h.log.LogError("failed to send spectate_init", err, zap.String("room_code", code))
	}

	go client.WritePump()
	go func() {
		client.ReadPump()
		rm.DetachSpectator()
	}()
}

// GetStats возвращает статистику WebSocket подключений
// GET /ws/stats
func (h *WebSocketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.hub.GetStats()
	writeJSON(w, http.StatusOK, stats)
}
