package aiproblem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

type stubStore struct {
	easy, medium, hard int64
	poolErr            error

	inserted []*domain.AIProblem

	pending     []*domain.AIProblem
	claimErr    error
	updates     []statusUpdate
}

type statusUpdate struct {
	problemID string
	status    domain.AIProblemStatus
	errMsg    *string
}

func (s *stubStore) Insert(ctx context.Context, ap *domain.AIProblem) error {
	s.inserted = append(s.inserted, ap)
	return nil
}

func (s *stubStore) ClaimPendingForValidation(ctx context.Context, maxAttempts int) (*domain.AIProblem, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if len(s.pending) == 0 {
		return nil, errors.ErrNotFound.WithMessage("no pending problem to validate")
	}
	ap := s.pending[0]
	s.pending = s.pending[1:]
	return ap, nil
}

func (s *stubStore) UpdateStatus(ctx context.Context, problemID string, status domain.AIProblemStatus, validationErr *string) error {
	s.updates = append(s.updates, statusUpdate{problemID, status, validationErr})
	return nil
}

func (s *stubStore) PoolCounts(ctx context.Context) (int64, int64, int64, error) {
	return s.easy, s.medium, s.hard, s.poolErr
}

type stubProvider struct {
	raw string
	err error
}

func (s *stubProvider) Generate(ctx context.Context, difficulty domain.Difficulty) (string, error) {
	return s.raw, s.err
}

type stubChecker struct {
	result *domain.SubmissionResult
	err    error
}

func (s *stubChecker) Execute(ctx context.Context, problem *domain.Problem, language, code string) (*domain.SubmissionResult, error) {
	return s.result, s.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

const validGeneratedJSON = `{
  "title": "Two Sum",
  "description": "Given an array of integers and a target, return indices of two numbers that add up to target, with enough filler text to clear the minimum description length requirement.",
  "examples": [{"input": "[2,7,11,15], 9", "expected_output": "[0,1]"}],
  "test_cases": [
    {"input": "a", "expected_output": "b"},
    {"input": "c", "expected_output": "d"},
    {"input": "e", "expected_output": "f"}
  ],
  "starter_code": {"javascript": "function twoSum() {}", "python": "def two_sum(): pass"},
  "tags": ["arrays"],
  "reference_solution": {"language": "python", "code": "def two_sum(): pass"}
}`

func TestLoop_GenerationPass_SkipsDifficultiesAboveFloor(t *testing.T) {
	store := &stubStore{easy: 10, medium: 10, hard: 5}
	provider := &stubProvider{raw: validGeneratedJSON}
	checker := &stubChecker{result: &domain.SubmissionResult{Passed: true, TotalTests: 3, PassedTests: 3}}
	loop := NewLoop(store, provider, checker, testLogger(t), time.Minute, Floors{Easy: 10, Medium: 10, Hard: 5}, 3)

	loop.generationPass(context.Background())

	assert.Empty(t, store.inserted)
}

func TestLoop_GenerationPass_GeneratesForDifficultyBelowFloor(t *testing.T) {
	store := &stubStore{easy: 2, medium: 10, hard: 5}
	provider := &stubProvider{raw: validGeneratedJSON}
	checker := &stubChecker{result: &domain.SubmissionResult{Passed: true, TotalTests: 3, PassedTests: 3}}
	loop := NewLoop(store, provider, checker, testLogger(t), time.Minute, Floors{Easy: 10, Medium: 10, Hard: 5}, 3)

	loop.generationPass(context.Background())

	require.Len(t, store.inserted, 1)
	assert.Equal(t, domain.AIProblemValidated, store.inserted[0].Status)
	assert.Equal(t, domain.DifficultyEasy, store.inserted[0].Difficulty)
}

func TestLoop_GenerationPass_FailingReferenceSolutionInsertsPendingValidation(t *testing.T) {
	store := &stubStore{easy: 2, medium: 10, hard: 5}
	provider := &stubProvider{raw: validGeneratedJSON}
	checker := &stubChecker{result: &domain.SubmissionResult{Passed: false, TotalTests: 3, PassedTests: 1}}
	loop := NewLoop(store, provider, checker, testLogger(t), time.Minute, Floors{Easy: 10, Medium: 10, Hard: 5}, 3)

	loop.generationPass(context.Background())

	require.Len(t, store.inserted, 1)
	assert.Equal(t, domain.AIProblemPendingValidation, store.inserted[0].Status)
	require.NotNil(t, store.inserted[0].LastValidationError)
}

func TestLoop_GenerationPass_StructurallyInvalidOutputIsDiscarded(t *testing.T) {
	store := &stubStore{easy: 2, medium: 10, hard: 5}
	provider := &stubProvider{raw: `{"title": ""}`}
	checker := &stubChecker{}
	loop := NewLoop(store, provider, checker, testLogger(t), time.Minute, Floors{Easy: 10, Medium: 10, Hard: 5}, 3)

	loop.generationPass(context.Background())

	assert.Empty(t, store.inserted)
}

func TestLoop_GenerationPass_RateLimitStopsFurtherGeneration(t *testing.T) {
	store := &stubStore{easy: 0, medium: 0, hard: 0}
	provider := &stubProvider{err: &RateLimitError{RetryAfter: time.Minute}}
	checker := &stubChecker{}
	loop := NewLoop(store, provider, checker, testLogger(t), time.Minute, Floors{Easy: 10, Medium: 10, Hard: 5}, 3)

	loop.generationPass(context.Background())

	assert.Empty(t, store.inserted)
	assert.False(t, loop.rateLimitedUntil.IsZero())

	// Second call within the backoff window should not attempt generation at all.
	provider.raw = validGeneratedJSON
	provider.err = nil
	loop.generationPass(context.Background())
	assert.Empty(t, store.inserted)
}

func TestLoop_ValidationPass_NoPendingProblemIsANoop(t *testing.T) {
	store := &stubStore{}
	loop := NewLoop(store, &stubProvider{}, &stubChecker{}, testLogger(t), time.Minute, Floors{}, 3)

	loop.validationPass(context.Background())

	assert.Empty(t, store.updates)
}

func TestLoop_ValidationPass_PassingSolutionMarksValidated(t *testing.T) {
	ap := &domain.AIProblem{Problem: domain.Problem{ID: "p1"}, ValidationAttempts: 1}
	store := &stubStore{pending: []*domain.AIProblem{ap}}
	checker := &stubChecker{result: &domain.SubmissionResult{Passed: true, TotalTests: 3, PassedTests: 3}}
	loop := NewLoop(store, &stubProvider{}, checker, testLogger(t), time.Minute, Floors{}, 3)

	loop.validationPass(context.Background())

	require.Len(t, store.updates, 1)
	assert.Equal(t, domain.AIProblemValidated, store.updates[0].status)
	assert.Nil(t, store.updates[0].errMsg)
}

func TestLoop_ValidationPass_RequeuesBelowMaxAttempts(t *testing.T) {
	ap := &domain.AIProblem{Problem: domain.Problem{ID: "p1"}, ValidationAttempts: 1}
	store := &stubStore{pending: []*domain.AIProblem{ap}}
	checker := &stubChecker{result: &domain.SubmissionResult{Passed: false, TotalTests: 3, PassedTests: 2}}
	loop := NewLoop(store, &stubProvider{}, checker, testLogger(t), time.Minute, Floors{}, 3)

	loop.validationPass(context.Background())

	require.Len(t, store.updates, 1)
	assert.Equal(t, domain.AIProblemPendingValidation, store.updates[0].status)
}

func TestLoop_ValidationPass_RejectsAtMaxAttempts(t *testing.T) {
	ap := &domain.AIProblem{Problem: domain.Problem{ID: "p1"}, ValidationAttempts: 2}
	store := &stubStore{pending: []*domain.AIProblem{ap}}
	checker := &stubChecker{result: &domain.SubmissionResult{Passed: false, TotalTests: 3, PassedTests: 2}}
	loop := NewLoop(store, &stubProvider{}, checker, testLogger(t), time.Minute, Floors{}, 3)

	loop.validationPass(context.Background())

	require.Len(t, store.updates, 1)
	assert.Equal(t, domain.AIProblemRejected, store.updates[0].status)
}

func TestExtractJSONObject_StripsSurroundingText(t *testing.T) {
	text := "Here is the problem:\n```json\n{\"title\": \"x\"}\n```\nHope that helps!"

	extracted, ok := ExtractJSONObject(text)

	require.True(t, ok)
	assert.Equal(t, `{"title": "x"}`, extracted)
}

func TestExtractJSONObject_NoBraces(t *testing.T) {
	_, ok := ExtractJSONObject("no json here")
	assert.False(t, ok)
}
