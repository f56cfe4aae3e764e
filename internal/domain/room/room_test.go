package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// recordingBroadcaster заменяет websocket.Hub в тестах, запоминая все рассылки
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []recordedMessage
}

type recordedMessage struct {
	roomCode string
	msgType  string
	payload  interface{}
}

func (b *recordingBroadcaster) Broadcast(roomCode string, messageType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, recordedMessage{roomCode, messageType, payload})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.messages))
	for i, m := range b.messages {
		out[i] = m.msgType
	}
	return out
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

func testProblem() *domain.Problem {
	return &domain.Problem{ID: "two-sum", Title: "Two Sum", Difficulty: domain.DifficultyEasy}
}

func TestRoom_Join_TransitionsToActiveWhenFull(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := NewRoom(context.Background(), "WORD-WORD-1234", 2, domain.GameModeCasual, testProblem(), true, bc, testLogger(t))
	defer r.Stop()

	out1 := r.Join("alice", nil)
	assert.True(t, out1.Accepted)
	assert.Equal(t, domain.RoomStateLobby, r.Snapshot().State)

	out2 := r.Join("bob", nil)
	assert.True(t, out2.Accepted)
	assert.Equal(t, domain.RoomStateActive, r.Snapshot().State)

	assert.Contains(t, bc.types(), "game_start")
}

func TestRoom_Join_RoomFullRejectsThirdPlayer(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := NewRoom(context.Background(), "ROOM-1", 2, domain.GameModeCasual, testProblem(), true, bc, testLogger(t))
	defer r.Stop()

	r.Join("alice", nil)
	r.Join("bob", nil)

	out := r.Join("carol", nil)

	assert.False(t, out.Accepted)
	assert.True(t, out.RoomFull)
}

func TestRoom_Submit_FirstPassWinsTransition(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := NewRoom(context.Background(), "ROOM-2", 2, domain.GameModeCasual, testProblem(), true, bc, testLogger(t))
	defer r.Stop()

	r.Join("alice", nil)
	r.Join("bob", nil)

	out := r.Submit("alice", &domain.SubmissionResult{Username: "alice", Passed: true})

	assert.True(t, out.WonTransition)
	assert.ElementsMatch(t, []string{"alice", "bob"}, out.Players)
	assert.Equal(t, domain.RoomStateEnded, r.Snapshot().State)
	assert.Equal(t, "alice", r.Snapshot().Winner)
}

func TestRoom_Submit_SecondWinnerDoesNotTransitionAgain(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := NewRoom(context.Background(), "ROOM-3", 2, domain.GameModeCasual, testProblem(), true, bc, testLogger(t))
	defer r.Stop()

	r.Join("alice", nil)
	r.Join("bob", nil)

	first := r.Submit("alice", &domain.SubmissionResult{Username: "alice", Passed: true})
	second := r.Submit("bob", &domain.SubmissionResult{Username: "bob", Passed: true})

	assert.True(t, first.WonTransition)
	assert.False(t, second.WonTransition)
	assert.Equal(t, "alice", r.Snapshot().Winner)
}

func TestRoom_Submit_FailingResultNeverTransitions(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := NewRoom(context.Background(), "ROOM-4", 2, domain.GameModeCasual, testProblem(), true, bc, testLogger(t))
	defer r.Stop()

	r.Join("alice", nil)
	r.Join("bob", nil)

	out := r.Submit("alice", &domain.SubmissionResult{Username: "alice", Passed: false})

	assert.False(t, out.WonTransition)
	assert.Equal(t, domain.RoomStateActive, r.Snapshot().State)
	assert.Contains(t, bc.types(), "submission_result")
}

func TestRoom_Leave_RemovesFromRoster(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := NewRoom(context.Background(), "ROOM-5", 2, domain.GameModeCasual, testProblem(), true, bc, testLogger(t))
	defer r.Stop()

	r.Join("alice", nil)
	r.Leave("alice")

	snap := r.Snapshot()
	assert.NotContains(t, snap.Roster, "alice")
}

func TestRoom_AttachDetachSpectator(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := NewRoom(context.Background(), "ROOM-6", 2, domain.GameModeCasual, testProblem(), true, bc, testLogger(t))
	defer r.Stop()

	snap := r.AttachSpectator()
	assert.Equal(t, 1, snap.SpectatorCount)
	assert.Equal(t, domain.GameModeCasual, snap.GameMode)

	r.DetachSpectator()
	assert.Equal(t, 0, r.Snapshot().SpectatorCount)
}

func TestRoom_IdleInfo_ReflectsRosterAndState(t *testing.T) {
	bc := &recordingBroadcaster{}
	r := NewRoom(context.Background(), "ROOM-7", 2, domain.GameModeCasual, testProblem(), true, bc, testLogger(t))
	defer r.Stop()

	info := r.IdleInfo()
	assert.Equal(t, domain.RoomStateLobby, info.State)
	assert.Equal(t, 0, info.RosterLen)
	assert.WithinDuration(t, time.Now(), info.CreatedAt, time.Second)
}
