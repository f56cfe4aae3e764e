package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// ProblemSource выдаёт каталог и отдельные задачи из реестра (C1)
type ProblemSource interface {
	Get(id string) (*domain.Problem, bool)
	List() []*domain.Problem
}

// ProblemHandler обрабатывает публичный каталог задач
type ProblemHandler struct {
	problems ProblemSource
	log      *logger.Logger
}

// NewProblemHandler создаёт новый problem handler
func NewProblemHandler(problems ProblemSource, log *logger.Logger) *ProblemHandler {
	return &ProblemHandler{problems: problems, log: log}
}

// List возвращает публичный каталог статических задач
// GET /problems
func (h *ProblemHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.problems.List())
}

// Get возвращает публичные поля одной задачи, без скрытых тестов
// GET /problems/:id
func (h *ProblemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	problem, ok := h.problems.Get(id)
	if !ok {
		writeError(w, errors.ErrNotFound.WithMessage("problem not found: "+id))
		return
	}

	writeJSON(w, http.StatusOK, problem.PublicFields())
}
