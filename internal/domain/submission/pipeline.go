// Package submission реализует приём посылки: валидацию, прогон решения в
// песочнице, попытку перевода комнаты в состояние завершённой партии и
// обновление рейтинга участников.
package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/internal/domain/room"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
	"github.com/strongfeels/bitbattle/pkg/validator"
)

// Request - входные данные одной посылки. UserID заполняется только для
// авторизованных игроков (из bearer-токена); гости его не несут.
type Request struct {
	Username  string
	ProblemID string
	Code      string
	Language  string
	RoomCode  *string
	UserID    *uuid.UUID
}

// ProblemResolver разрешает задачу по id (C1)
type ProblemResolver interface {
	Get(id string) (*domain.Problem, bool)
}

// Executor прогоняет решение в песочнице (C2)
type Executor interface {
	Execute(ctx context.Context, problem *domain.Problem, language, code string) (*domain.SubmissionResult, error)
}

// RoomResolver находит живую комнату по коду (C4)
type RoomResolver interface {
	Get(code string) (*room.Room, bool)
}

// RatingProcessor пересчитывает рейтинг и персистентную статистику игроков (C3)
type RatingProcessor interface {
	ProcessGameResult(ctx context.Context, winnerID uuid.UUID, loserIDs []uuid.UUID, difficulty domain.Difficulty, gameMode domain.GameMode, problemID string, winnerSolveMs *int64) (domain.RatingChange, map[uuid.UUID]domain.RatingChange, error)
}

// GameOverPayload - сообщение, рассылаемое комнате при завершении партии.
type GameOverPayload struct {
	Winner        string                          `json:"winner"`
	SolveTimeMs   *int64                          `json:"solve_time_ms,omitempty"`
	ProblemID     string                          `json:"problem_id"`
	Difficulty    domain.Difficulty               `json:"difficulty"`
	GameMode      domain.GameMode                 `json:"game_mode"`
	Players       []string                        `json:"players"`
	RatingChanges map[string]domain.RatingChange  `json:"rating_changes"`
}

// Pipeline реализует полный приём посылки (C6)
type Pipeline struct {
	problems ProblemResolver
	executor Executor
	rooms    RoomResolver
	ratings  RatingProcessor
	log      *logger.Logger
}

func NewPipeline(problems ProblemResolver, executor Executor, rooms RoomResolver, ratings RatingProcessor, log *logger.Logger) *Pipeline {
	return &Pipeline{
		problems: problems,
		executor: executor,
		rooms:    rooms,
		ratings:  ratings,
		log:      log,
	}
}

// Submit прогоняет один присланный запрос через весь конвейер: валидация,
// резолюция задачи, выполнение в песочнице, попытка завершить партию и
// пересчёт рейтинга. Ошибка завершения партии или рейтинга не срывает сам
// вердикт решения - он уже вычислен и будет возвращён вызывающему.
func (p *Pipeline) Submit(ctx context.Context, req Request) (*domain.SubmissionResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	problem, ok := p.problems.Get(req.ProblemID)
	if !ok {
		return nil, errors.ErrNotFound.WithMessage("problem not found: " + req.ProblemID)
	}

	result, err := p.executor.Execute(ctx, problem, req.Language, req.Code)
	if err != nil {
		return nil, err
	}
	result.Username = req.Username
	result.ProblemID = req.ProblemID
	result.SubmittedAt = time.Now()

	if result.Passed && req.RoomCode != nil {
		p.handleGameOver(ctx, *req.RoomCode, req, result)
	}

	return result, nil
}

// handleGameOver пытается перевести комнату в ENDED по факту прошедшей
// посылки; ошибки здесь только логируются, так как SubmissionResult уже
// посчитан и будет доставлен вызывающему независимо от исхода.
func (p *Pipeline) handleGameOver(ctx context.Context, roomCode string, req Request, result *domain.SubmissionResult) {
	r, ok := p.rooms.Get(roomCode)
	if !ok {
		p.log.Warn("submission referenced unknown room", zap.String("room_code", roomCode))
		return
	}

	outcome := r.Submit(req.Username, result)
	if !outcome.WonTransition {
		return
	}

	snapshot := r.Snapshot()

	var solveMs *int64
	if result.AggregateExecutionMs > 0 {
		ms := result.AggregateExecutionMs
		solveMs = &ms
	}

	ratingChanges := p.computeRatingChanges(ctx, req.Username, snapshot, outcome, solveMs)

	payload := GameOverPayload{
		Winner:        req.Username,
		SolveTimeMs:   solveMs,
		ProblemID:     outcome.ProblemID,
		Difficulty:    outcome.Difficulty,
		GameMode:      outcome.GameMode,
		Players:       outcome.Players,
		RatingChanges: ratingChanges,
	}
	r.BroadcastGameOver(payload)
}

// computeRatingChanges рассчитывает и персистирует изменение рейтинга для
// авторизованных участников; гости получают нулевую запись только для
// трансляции, без изменения какой-либо сохранённой статистики.
func (p *Pipeline) computeRatingChanges(ctx context.Context, winnerUsername string, snapshot domain.Room, outcome room.SubmitOutcome, winnerSolveMs *int64) map[string]domain.RatingChange {
	changes := make(map[string]domain.RatingChange, len(outcome.Players))
	for _, username := range outcome.Players {
		changes[username] = domain.RatingChange{}
	}

	winnerID, winnerAuthenticated := snapshot.AuthenticatedUser[winnerUsername]
	if !winnerAuthenticated {
		return changes
	}

	var loserIDs []uuid.UUID
	loserIDToUsername := make(map[uuid.UUID]string)
	for _, username := range outcome.Players {
		if username == winnerUsername {
			continue
		}
		id, authenticated := snapshot.AuthenticatedUser[username]
		if !authenticated {
			continue
		}
		loserIDs = append(loserIDs, id)
		loserIDToUsername[id] = username
	}

	winnerChange, loserChanges, err := p.ratings.ProcessGameResult(ctx, winnerID, loserIDs, outcome.Difficulty, outcome.GameMode, outcome.ProblemID, winnerSolveMs)
	if err != nil {
		p.log.Error("failed to process game result", zap.Error(err), zap.String("winner", winnerUsername))
		return changes
	}

	changes[winnerUsername] = winnerChange
	for id, change := range loserChanges {
		if username, ok := loserIDToUsername[id]; ok {
			changes[username] = change
		}
	}

	return changes
}

func validateRequest(req Request) error {
	errs := validator.ValidationErrors{}

	if err := validator.ValidateUsername(req.Username); err != nil {
		errs.Add(err.(*validator.ValidationError).Field, err.(*validator.ValidationError).Message)
	}
	if err := validator.ValidateRequired("problem_id", req.ProblemID); err != nil {
		errs.Add(err.(*validator.ValidationError).Field, err.(*validator.ValidationError).Message)
	}
	if err := validator.ValidateCodeLength(req.Code); err != nil {
		errs.Add(err.(*validator.ValidationError).Field, err.(*validator.ValidationError).Message)
	}
	if err := validator.ValidateLanguage(req.Language); err != nil {
		errs.Add(err.(*validator.ValidationError).Field, err.(*validator.ValidationError).Message)
	}

	if errs.HasErrors() {
		return errors.ErrValidation.WithError(errs)
	}
	return nil
}
