// Package aiproblem реализует фоновый цикл пополнения пула задач: генерацию
// кандидатов через LLM-провайдера и проверку их решаемости эталонным решением.
package aiproblem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// Store персистирует кандидатов задач и даёт доступ к состоянию пула
type Store interface {
	Insert(ctx context.Context, ap *domain.AIProblem) error
	ClaimPendingForValidation(ctx context.Context, maxAttempts int) (*domain.AIProblem, error)
	UpdateStatus(ctx context.Context, problemID string, status domain.AIProblemStatus, validationErr *string) error
	PoolCounts(ctx context.Context) (easy, medium, hard int64, err error)
}

// SolutionChecker прогоняет эталонное решение против тест-кейсов задачи (C2)
type SolutionChecker interface {
	Execute(ctx context.Context, problem *domain.Problem, language, code string) (*domain.SubmissionResult, error)
}

// Floors - минимальное число проверенных задач в пуле по каждой сложности
type Floors struct {
	Easy   int
	Medium int
	Hard   int
}

// Loop - фоновый цикл пополнения и валидации пула AI-задач (C7)
type Loop struct {
	store    Store
	provider Provider
	checker  SolutionChecker
	log      *logger.Logger

	interval    time.Duration
	floors      Floors
	maxAttempts int

	rateLimitedUntil time.Time
}

// NewLoop создаёт цикл пополнения пула с заданными параметрами
func NewLoop(store Store, provider Provider, checker SolutionChecker, log *logger.Logger, interval time.Duration, floors Floors, maxAttempts int) *Loop {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Loop{
		store:       store,
		provider:    provider,
		checker:     checker,
		log:         log,
		interval:    interval,
		floors:      floors,
		maxAttempts: maxAttempts,
	}
}

// Run блокируется до отмены ctx, выполняя Tick на каждом фиксированном интервале
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick выполняет один проход: пополнение пула ниже порога, затем одна попытка
// валидации кандидата, ожидающего проверки.
func (l *Loop) Tick(ctx context.Context) {
	l.generationPass(ctx)
	l.validationPass(ctx)
}

type difficultyFloor struct {
	difficulty domain.Difficulty
	floor      int
}

func (l *Loop) generationPass(ctx context.Context) {
	if !l.rateLimitedUntil.IsZero() && time.Now().Before(l.rateLimitedUntil) {
		return
	}

	easy, medium, hard, err := l.store.PoolCounts(ctx)
	if err != nil {
		l.log.Warn("failed to read ai problem pool counts", zap.Error(err))
		return
	}

	current := map[domain.Difficulty]int64{
		domain.DifficultyEasy:   easy,
		domain.DifficultyMedium: medium,
		domain.DifficultyHard:   hard,
	}

	targets := []difficultyFloor{
		{domain.DifficultyEasy, l.floors.Easy},
		{domain.DifficultyMedium, l.floors.Medium},
		{domain.DifficultyHard, l.floors.Hard},
	}

	for _, target := range targets {
		if int(current[target.difficulty]) >= target.floor {
			continue
		}
		if !l.generateOne(ctx, target.difficulty) {
			return
		}
	}
}

// generateOne запрашивает одного кандидата у провайдера и сохраняет его;
// возвращает false, если дальнейшую генерацию в этом тике стоит прекратить
// (провайдер отдал rate limit).
func (l *Loop) generateOne(ctx context.Context, difficulty domain.Difficulty) bool {
	raw, err := l.provider.Generate(ctx, difficulty)
	if err != nil {
		if rlErr, ok := err.(*RateLimitError); ok {
			l.rateLimitedUntil = time.Now().Add(rlErr.RetryAfter)
			l.log.Warn("llm provider rate limited, pausing generation", zap.Duration("retry_after", rlErr.RetryAfter))
			return false
		}
		if IsContentFiltered(err) {
			l.log.Info("llm response withheld by content filter, discarding", zap.String("difficulty", string(difficulty)))
			return true
		}
		l.log.Error("llm generation failed", zap.Error(err), zap.String("difficulty", string(difficulty)))
		return true
	}

	gp, err := ParseGeneratedProblem(raw)
	if err != nil {
		l.log.Warn("failed to parse llm output", zap.Error(err))
		return true
	}

	if err := StructuralValidate(gp); err != nil {
		l.log.Warn("generated problem failed structural validation", zap.Error(err))
		return true
	}

	ap := &domain.AIProblem{
		Problem: domain.Problem{
			ID:           uuid.New().String(),
			Title:        gp.Title,
			Description:  gp.Description,
			Difficulty:   difficulty,
			Examples:     gp.Examples,
			TestCases:    gp.TestCases,
			StarterCode:  gp.StarterCode,
			TimeLimitMin: gp.TimeLimitMinutes,
			Tags:         gp.Tags,
		},
		Provider:          "openai",
		ReferenceSolution: gp.ReferenceSolution,
	}

	l.validateSolvability(ctx, ap)

	if err := l.store.Insert(ctx, ap); err != nil {
		l.log.Error("failed to insert generated problem", zap.Error(err), zap.String("problem_id", ap.ID))
	} else {
		l.log.Info("inserted generated problem candidate", zap.String("problem_id", ap.ID), zap.String("status", string(ap.Status)))
	}

	return true
}

// validateSolvability прогоняет эталонное решение кандидата против всех
// тест-кейсов, выставляя итоговый статус перед первой вставкой в хранилище.
func (l *Loop) validateSolvability(ctx context.Context, ap *domain.AIProblem) {
	result, err := l.checker.Execute(ctx, &ap.Problem, ap.ReferenceSolution.Language, ap.ReferenceSolution.Code)
	if err == nil && result != nil && result.Passed {
		ap.Status = domain.AIProblemValidated
		return
	}

	ap.Status = domain.AIProblemPendingValidation
	msg := solvabilityFailureMessage(result, err)
	ap.LastValidationError = &msg
}

func solvabilityFailureMessage(result *domain.SubmissionResult, err error) string {
	if err != nil {
		return fmt.Sprintf("reference solution execution failed: %s", err.Error())
	}
	if result != nil {
		return fmt.Sprintf("reference solution failed %d of %d test cases", result.TotalTests-result.PassedTests, result.TotalTests)
	}
	return "reference solution did not pass validation"
}

// validationPass забирает одного кандидата, ожидающего повторной валидации, и
// либо подтверждает его, либо отклоняет/возвращает в очередь.
func (l *Loop) validationPass(ctx context.Context) {
	ap, err := l.store.ClaimPendingForValidation(ctx, l.maxAttempts)
	if err != nil {
		if appErr := errors.GetAppError(err); appErr == nil || appErr.Code != errors.ErrNotFound.Code {
			l.log.Warn("failed to claim pending problem for validation", zap.Error(err))
		}
		return
	}

	result, execErr := l.checker.Execute(ctx, &ap.Problem, ap.ReferenceSolution.Language, ap.ReferenceSolution.Code)
	if execErr == nil && result != nil && result.Passed {
		if err := l.store.UpdateStatus(ctx, ap.ID, domain.AIProblemValidated, nil); err != nil {
			l.log.Error("failed to mark problem validated", zap.Error(err), zap.String("problem_id", ap.ID))
		}
		return
	}

	msg := solvabilityFailureMessage(result, execErr)

	status := domain.AIProblemPendingValidation
	if ap.ValidationAttempts+1 >= l.maxAttempts {
		status = domain.AIProblemRejected
	}

	if err := l.store.UpdateStatus(ctx, ap.ID, status, &msg); err != nil {
		l.log.Error("failed to update problem validation status", zap.Error(err), zap.String("problem_id", ap.ID))
	}
}
