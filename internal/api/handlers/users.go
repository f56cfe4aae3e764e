package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
)

// UserSource резолвит профиль пользователя по ID
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// UserStatsSource выдаёт статистику, личные рекорды и историю партий (C3)
type UserStatsSource interface {
	GetUserStats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error)
	GetPersonalBests(ctx context.Context, userID uuid.UUID) (map[string]int64, error)
	GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.GameResult, error)
	GetLeaderboard(ctx context.Context, difficulty domain.Difficulty, sortBy domain.LeaderboardSort, limit, offset int) ([]domain.LeaderboardEntry, error)
}

// UserHandler обрабатывает профиль, историю и таблицу лидеров
type UserHandler struct {
	users UserSource
	stats UserStatsSource
	log   *logger.Logger
}

// NewUserHandler создаёт новый user handler
func NewUserHandler(users UserSource, stats UserStatsSource, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, stats: stats, log: log}
}

type profileResponse struct {
	User          *domain.User      `json:"user"`
	Stats         *domain.UserStats `json:"stats"`
	PersonalBests map[string]int64  `json:"personal_bests"`
}

// Profile возвращает публичный профиль пользователя с агрегированной статистикой
// GET /users/:id/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.ErrInvalidInput.WithMessage("invalid user id"))
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.stats.GetUserStats(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	bests, err := h.stats.GetPersonalBests(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{User: user, Stats: stats, PersonalBests: bests})
}

// History возвращает последние сыгранные партии пользователя
// GET /users/:id/history?limit=
func (h *UserHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.ErrInvalidInput.WithMessage("invalid user id"))
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), defaultHistoryLimit, maxHistoryLimit)

	history, err := h.stats.GetHistory(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// Leaderboard возвращает ранжированный список игроков по заданной сложности
// GET /leaderboard?sort_by=&limit=&offset=
func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	difficulty := domain.Difficulty(q.Get("difficulty"))
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}

	sortBy := domain.LeaderboardSort(q.Get("sort_by"))
	if sortBy == "" {
		sortBy = domain.LeaderboardSortWins
	}

	limit := parseLimit(q.Get("limit"), defaultLeaderboardLimit, maxLeaderboardLimit)
	offset := 0
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}

	entries, err := h.stats.GetLeaderboard(r.Context(), difficulty, sortBy, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
