package submission

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/internal/domain/room"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// recordingBroadcaster запоминает все рассылки комнаты для проверки в тестах
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []recordedMessage
}

type recordedMessage struct {
	msgType string
	payload interface{}
}

func (b *recordingBroadcaster) Broadcast(roomCode, messageType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, recordedMessage{messageType, payload})
}

func (b *recordingBroadcaster) find(msgType string) (interface{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.messages {
		if m.msgType == msgType {
			return m.payload, true
		}
	}
	return nil, false
}

type stubProblems struct {
	problem *domain.Problem
}

func (s *stubProblems) Get(id string) (*domain.Problem, bool) {
	if s.problem == nil || s.problem.ID != id {
		return nil, false
	}
	return s.problem, true
}

type stubExecutor struct {
	result *domain.SubmissionResult
	err    error
}

func (s *stubExecutor) Execute(ctx context.Context, problem *domain.Problem, language, code string) (*domain.SubmissionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	return &r, nil
}

type mapRooms struct {
	rooms map[string]*room.Room
}

func (m *mapRooms) Get(code string) (*room.Room, bool) {
	r, ok := m.rooms[code]
	return r, ok
}

type mockRatingProcessor struct {
	mock.Mock
}

func (m *mockRatingProcessor) ProcessGameResult(ctx context.Context, winnerID uuid.UUID, loserIDs []uuid.UUID, difficulty domain.Difficulty, gameMode domain.GameMode, problemID string, winnerSolveMs *int64) (domain.RatingChange, map[uuid.UUID]domain.RatingChange, error) {
	args := m.Called(ctx, winnerID, loserIDs, difficulty, gameMode, problemID, winnerSolveMs)
	var winnerChange domain.RatingChange
	if v := args.Get(0); v != nil {
		winnerChange = v.(domain.RatingChange)
	}
	var loserChanges map[uuid.UUID]domain.RatingChange
	if v := args.Get(1); v != nil {
		loserChanges = v.(map[uuid.UUID]domain.RatingChange)
	}
	return winnerChange, loserChanges, args.Error(2)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

func passingResult() *domain.SubmissionResult {
	return &domain.SubmissionResult{Passed: true, TotalTests: 3, PassedTests: 3, AggregateExecutionMs: 42}
}

func TestPipeline_Submit_ValidationError(t *testing.T) {
	p := NewPipeline(&stubProblems{}, &stubExecutor{}, &mapRooms{}, &mockRatingProcessor{}, testLogger(t))

	_, err := p.Submit(context.Background(), Request{Username: "", ProblemID: "two-sum", Code: "x", Language: "python"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation.Code, errors.GetAppError(err).Code)
}

func TestPipeline_Submit_ProblemNotFound(t *testing.T) {
	p := NewPipeline(&stubProblems{}, &stubExecutor{}, &mapRooms{}, &mockRatingProcessor{}, testLogger(t))

	_, err := p.Submit(context.Background(), Request{Username: "alice", ProblemID: "missing", Code: "x", Language: "python"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrNotFound.Code, errors.GetAppError(err).Code)
}

func TestPipeline_Submit_ExecutorErrorPropagates(t *testing.T) {
	problem := &domain.Problem{ID: "two-sum", Difficulty: domain.DifficultyEasy}
	execErr := errors.ErrExternalService.WithMessage("sandbox unavailable")
	p := NewPipeline(&stubProblems{problem: problem}, &stubExecutor{err: execErr}, &mapRooms{}, &mockRatingProcessor{}, testLogger(t))

	_, err := p.Submit(context.Background(), Request{Username: "alice", ProblemID: "two-sum", Code: "x", Language: "python"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrExternalService.Code, errors.GetAppError(err).Code)
}

func TestPipeline_Submit_PassWithoutRoomCodeSkipsGameOver(t *testing.T) {
	problem := &domain.Problem{ID: "two-sum", Difficulty: domain.DifficultyEasy}
	p := NewPipeline(&stubProblems{problem: problem}, &stubExecutor{result: passingResult()}, &mapRooms{}, &mockRatingProcessor{}, testLogger(t))

	result, err := p.Submit(context.Background(), Request{Username: "alice", ProblemID: "two-sum", Code: "x", Language: "python"})

	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, "alice", result.Username)
}

func TestPipeline_Submit_UnknownRoomCodeStillReturnsResult(t *testing.T) {
	problem := &domain.Problem{ID: "two-sum", Difficulty: domain.DifficultyEasy}
	roomCode := "SWIFT-CODER-1234"
	p := NewPipeline(&stubProblems{problem: problem}, &stubExecutor{result: passingResult()}, &mapRooms{rooms: map[string]*room.Room{}}, &mockRatingProcessor{}, testLogger(t))

	result, err := p.Submit(context.Background(), Request{Username: "alice", ProblemID: "two-sum", Code: "x", Language: "python", RoomCode: &roomCode})

	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestPipeline_Submit_RankedWinTriggersGameOverAndRatingUpdate(t *testing.T) {
	problem := &domain.Problem{ID: "two-sum", Difficulty: domain.DifficultyMedium}
	bc := &recordingBroadcaster{}
	r := room.NewRoom(context.Background(), "SWIFT-CODER-1234", 2, domain.GameModeRanked, problem, true, bc, testLogger(t))
	defer r.Stop()

	aliceID := uuid.New()
	bobID := uuid.New()
	r.Join("alice", &aliceID)
	r.Join("bob", &bobID)

	ratings := &mockRatingProcessor{}
	winnerChange := domain.RatingChange{OldRating: 1500, NewRating: 1516, Change: 16}
	loserChanges := map[uuid.UUID]domain.RatingChange{bobID: {OldRating: 1500, NewRating: 1484, Change: -16}}
	ratings.On("ProcessGameResult", mock.Anything, aliceID, []uuid.UUID{bobID}, domain.DifficultyMedium, domain.GameModeRanked, "two-sum", mock.Anything).
		Return(winnerChange, loserChanges, nil)

	roomCode := "SWIFT-CODER-1234"
	p := NewPipeline(&stubProblems{problem: problem}, &stubExecutor{result: passingResult()}, &mapRooms{rooms: map[string]*room.Room{roomCode: r}}, ratings, testLogger(t))

	result, err := p.Submit(context.Background(), Request{Username: "alice", ProblemID: "two-sum", Code: "x", Language: "python", RoomCode: &roomCode, UserID: &aliceID})

	require.NoError(t, err)
	assert.True(t, result.Passed)

	payload, found := bc.find("game_over")
	require.True(t, found)
	over := payload.(GameOverPayload)
	assert.Equal(t, "alice", over.Winner)
	assert.ElementsMatch(t, []string{"alice", "bob"}, over.Players)
	assert.Equal(t, 16, over.RatingChanges["alice"].Change)
	assert.Equal(t, -16, over.RatingChanges["bob"].Change)
	ratings.AssertExpectations(t)
}

func TestPipeline_Submit_GuestWinnerSkipsRatingPersistence(t *testing.T) {
	problem := &domain.Problem{ID: "two-sum", Difficulty: domain.DifficultyEasy}
	bc := &recordingBroadcaster{}
	r := room.NewRoom(context.Background(), "SWIFT-CODER-9999", 2, domain.GameModeCasual, problem, true, bc, testLogger(t))
	defer r.Stop()

	r.Join("guest1", nil)
	r.Join("guest2", nil)

	ratings := &mockRatingProcessor{}
	roomCode := "SWIFT-CODER-9999"
	p := NewPipeline(&stubProblems{problem: problem}, &stubExecutor{result: passingResult()}, &mapRooms{rooms: map[string]*room.Room{roomCode: r}}, ratings, testLogger(t))

	_, err := p.Submit(context.Background(), Request{Username: "guest1", ProblemID: "two-sum", Code: "x", Language: "python", RoomCode: &roomCode})

	require.NoError(t, err)
	payload, found := bc.find("game_over")
	require.True(t, found)
	over := payload.(GameOverPayload)
	assert.Equal(t, domain.RatingChange{}, over.RatingChanges["guest1"])
	assert.Equal(t, domain.RatingChange{}, over.RatingChanges["guest2"])
	ratings.AssertNotCalled(t, "ProcessGameResult")
}
