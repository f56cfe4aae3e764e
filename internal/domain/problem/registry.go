// Package problem реализует реестр задач: статический набор, скомпилированный
// в бинарь, объединённый с пулом AI-сгенерированных задач, хранящихся в Postgres.
package problem

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// AIPool даёт доступ к провалидированному пулу AI-сгенерированных задач.
type AIPool interface {
	FindUnseenByDifficulty(ctx context.Context, difficulty domain.Difficulty, playerIDs []uuid.UUID) (*domain.AIProblem, error)
	MarkUsed(ctx context.Context, problemID string) error
}

// History записывает, какие задачи уже видел игрок.
type History interface {
	Record(ctx context.Context, userID uuid.UUID, problemID string) error
}

// Registry - реестр задач: get(id) по статическому набору, random_by_difficulty
// по объединению статических и AI-задач.
type Registry struct {
	staticByID map[string]*domain.Problem
	byDiff     map[domain.Difficulty][]*domain.Problem
	aiPool     AIPool
	history    History
	log        *logger.Logger
}

// NewRegistry создаёт реестр задач со статическим набором plus AI-пулом.
func NewRegistry(aiPool AIPool, history History, log *logger.Logger) *Registry {
	r := &Registry{
		staticByID: make(map[string]*domain.Problem, len(staticProblems)),
		byDiff:     make(map[domain.Difficulty][]*domain.Problem),
		aiPool:     aiPool,
		history:    history,
		log:        log,
	}
	for i := range staticProblems {
		p := &staticProblems[i]
		r.staticByID[p.ID] = p
		r.byDiff[p.Difficulty] = append(r.byDiff[p.Difficulty], p)
	}
	return r
}

// Get возвращает статическую задачу по id. AI-задачи в реестре по id не ищутся:
// комната получает их только через RandomByDifficulty и дальше держит значение
// у себя, повторного обращения по id в жизненном цикле партии не требуется.
func (r *Registry) Get(id string) (*domain.Problem, bool) {
	p, ok := r.staticByID[id]
	return p, ok
}

// RandomByDifficulty выбирает случайную задачу нужной сложности, избегая тех,
// что уже видел кто-то из participantIDs. Если сложность "Any", выбирается
// случайная сложность. AI-пул предпочтительнее статического набора, когда там
// находится непросмотренная задача: она разнообразит повторяющиеся партии.
// При выборе AI-задачи счётчик использования увеличивается и история игроков
// обновляется; для статических задач история не ведётся, так как их конечный
// набор всё равно рано или поздно будет пройден полностью.
func (r *Registry) RandomByDifficulty(ctx context.Context, difficulty domain.Difficulty, participantIDs []uuid.UUID) (*domain.Problem, error) {
	diff := difficulty
	if diff == domain.DifficultyAny || diff == "" {
		choices := []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard}
		diff = choices[rand.Intn(len(choices))]
	}

	if r.aiPool != nil {
		ap, err := r.aiPool.FindUnseenByDifficulty(ctx, diff, participantIDs)
		if err == nil {
			r.markUsed(ctx, ap.ID, participantIDs)
			p := ap.Problem
			return &p, nil
		}
		if appErr := errors.GetAppError(err); appErr == nil || appErr.Code != errors.ErrNotFound.Code {
			r.log.Warn("ai problem pool lookup failed, falling back to static set", zap.Error(err))
		}
	}

	pool := r.byDiff[diff]
	if len(pool) == 0 {
		return nil, errors.ErrNotFound.WithMessage("no problem available for difficulty " + string(diff))
	}

	return pool[rand.Intn(len(pool))], nil
}

// List возвращает публичный каталог статических задач (GET /problems). AI-пул
// не перечисляется: его задачи выдаются только через RandomByDifficulty.
func (r *Registry) List() []*domain.Problem {
	out := make([]*domain.Problem, 0, len(staticProblems))
	for i := range staticProblems {
		out = append(out, staticProblems[i].PublicFields())
	}
	return out
}

func (r *Registry) markUsed(ctx context.Context, problemID string, participantIDs []uuid.UUID) {
	if err := r.aiPool.MarkUsed(ctx, problemID); err != nil {
		r.log.Warn("failed to mark ai problem used", zap.String("problem_id", problemID), zap.Error(err))
	}
	if r.history == nil {
		return
	}
	for _, uid := range participantIDs {
		if err := r.history.Record(ctx, uid, problemID); err != nil {
			r.log.Warn("failed to record player problem history", zap.String("user_id", uid.String()), zap.String("problem_id", problemID), zap.Error(err))
		}
	}
}
