package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/strongfeels/bitbattle/internal/api/middleware"
	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/internal/domain/submission"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// SubmissionPipeline прогоняет одну посылку через песочницу и, если партия
// завершена победой, через пересчёт рейтинга (C6)
type SubmissionPipeline interface {
	Submit(ctx context.Context, req submission.Request) (*domain.SubmissionResult, error)
}

// SubmissionHandler обрабатывает приём решений игроков
type SubmissionHandler struct {
	pipeline SubmissionPipeline
	log      *logger.Logger
}

// NewSubmissionHandler создаёт новый submission handler
func NewSubmissionHandler(pipeline SubmissionPipeline, log *logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{pipeline: pipeline, log: log}
}

type submitRequest struct {
	Username  string  `json:"username"`
	ProblemID string  `json:"problem_id"`
	Code      string  `json:"code"`
	Language  string  `json:"language"`
	RoomCode  *string `json:"room_code,omitempty"`
}

// Submit прогоняет посланное решение в песочнице
// POST /submit
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ErrInvalidInput.WithError(err))
		return
	}

	var userID *uuid.UUID
	if id, ok := middleware.GetUserID(r.Context()); ok {
		userID = &id
	}

	result, err := h.pipeline.Submit(r.Context(), submission.Request{
		Username:  req.Username,
		ProblemID: req.ProblemID,
		Code:      req.Code,
		Language:  req.Language,
		RoomCode:  req.RoomCode,
		UserID:    userID,
	})
	if err != nil {
		h.log.LogError("submission failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
