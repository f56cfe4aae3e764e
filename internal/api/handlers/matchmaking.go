package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/strongfeels/bitbattle/internal/api/middleware"
	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// MatchmakingQueue - очередь подбора матчей, используемая handler'ом (C5)
type MatchmakingQueue interface {
	Join(player domain.QueuedPlayer)
	Leave(connectionID string) (domain.QueuedPlayer, bool)
	Position(connectionID string) (int, bool)
	FindMatchFor(connectionID string) (*domain.Match, bool)
}

// MatchmakingHandler обрабатывает вход/выход из очереди и опрос статуса
type MatchmakingHandler struct {
	queue MatchmakingQueue
	log   *logger.Logger
}

// NewMatchmakingHandler создаёт новый matchmaking handler
func NewMatchmakingHandler(queue MatchmakingQueue, log *logger.Logger) *MatchmakingHandler {
	return &MatchmakingHandler{queue: queue, log: log}
}

type joinRequest struct {
	Username            string            `json:"username"`
	ConnectionID        string            `json:"connection_id"`
	Rating              int               `json:"rating"`
	PreferredDifficulty domain.Difficulty `json:"preferred_difficulty"`
	GameMode            domain.GameMode   `json:"game_mode"`
}

// Join ставит игрока в очередь подбора матча
// POST /matchmaking/join
func (h *MatchmakingHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ErrInvalidInput.WithError(err))
		return
	}
	if req.ConnectionID == "" {
		writeError(w, errors.ErrInvalidInput.WithMessage("connection_id is required"))
		return
	}

	if req.GameMode == domain.GameModeRanked {
		if _, ok := middleware.GetUserID(r.Context()); !ok {
			writeError(w, errors.ErrUnauthorized.WithMessage("ranked matchmaking requires authentication"))
			return
		}
	}

	player := domain.QueuedPlayer{
		Username:            req.Username,
		Rating:              req.Rating,
		PreferredDifficulty: req.PreferredDifficulty,
		GameMode:            req.GameMode,
		QueuedAt:            time.Now(),
		ConnectionID:        req.ConnectionID,
	}
	if id, ok := middleware.GetUserID(r.Context()); ok {
		player.UserID = &id
	}

	h.queue.Join(player)
	writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

type leaveRequest struct {
	ConnectionID string `json:"connection_id"`
}

// Leave убирает игрока из очереди
// POST /matchmaking/leave
func (h *MatchmakingHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ErrInvalidInput.WithError(err))
		return
	}

	_, ok := h.queue.Leave(req.ConnectionID)
	if !ok {
		writeError(w, errors.ErrNotFound.WithMessage("not in queue"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

type statusResponse struct {
	Status   string        `json:"status"`
	Position int           `json:"position,omitempty"`
	Match    *domain.Match `json:"match,omitempty"`
}

// Status возвращает позицию в очереди или готовый матч
// GET /matchmaking/status?connection_id=
func (h *MatchmakingHandler) Status(w http.ResponseWriter, r *http.Request) {
	connectionID := r.URL.Query().Get("connection_id")
	if connectionID == "" {
		writeError(w, errors.ErrInvalidInput.WithMessage("connection_id is required"))
		return
	}

	if match, ok := h.queue.FindMatchFor(connectionID); ok {
		writeJSON(w, http.StatusOK, statusResponse{Status: "matched", Match: match})
		return
	}

	if pos, ok := h.queue.Position(connectionID); ok {
		writeJSON(w, http.StatusOK, statusResponse{Status: "queued", Position: pos})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "not_queued"})
}
