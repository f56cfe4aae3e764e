package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
)

func TestTable_CreateAndGet(t *testing.T) {
	table := NewTable(context.Background(), &recordingBroadcaster{}, testLogger(t), time.Minute, time.Minute)

	r, err := table.Create("WORD-WORD-1111", 2, domain.GameModeCasual, testProblem(), true)
	require.NoError(t, err)
	defer table.Remove(r.Code())

	got, ok := table.Get("WORD-WORD-1111")
	require.True(t, ok)
	assert.Equal(t, r, got)
}

func TestTable_Create_CollisionReturnsAlreadyExists(t *testing.T) {
	table := NewTable(context.Background(), &recordingBroadcaster{}, testLogger(t), time.Minute, time.Minute)

	_, err := table.Create("DUP-CODE-0001", 2, domain.GameModeCasual, testProblem(), true)
	require.NoError(t, err)
	defer table.Remove("DUP-CODE-0001")

	_, err = table.Create("DUP-CODE-0001", 2, domain.GameModeCasual, testProblem(), true)
	require.Error(t, err)
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrAlreadyExists.Code, appErr.Code)
}

func TestTable_LiveRooms_OnlyPublicActive(t *testing.T) {
	table := NewTable(context.Background(), &recordingBroadcaster{}, testLogger(t), time.Minute, time.Minute)

	active, err := table.Create("LIVE-ROOM-0001", 2, domain.GameModeCasual, testProblem(), true)
	require.NoError(t, err)
	defer table.Remove(active.Code())
	active.Join("alice", nil)
	active.Join("bob", nil)

	lobby, err := table.Create("LOBBY-ROOM-0002", 2, domain.GameModeCasual, testProblem(), true)
	require.NoError(t, err)
	defer table.Remove(lobby.Code())

	private, err := table.Create("PRIV-ROOM-0003", 2, domain.GameModeCasual, testProblem(), false)
	require.NoError(t, err)
	defer table.Remove(private.Code())
	private.Join("carol", nil)
	private.Join("dave", nil)

	live := table.LiveRooms()

	require.Len(t, live, 1)
	assert.Equal(t, "LIVE-ROOM-0001", live[0].Code)
}

func TestTable_Remove_StopsRoomActor(t *testing.T) {
	table := NewTable(context.Background(), &recordingBroadcaster{}, testLogger(t), time.Minute, time.Minute)

	r, err := table.Create("STOP-ROOM-0001", 2, domain.GameModeCasual, testProblem(), true)
	require.NoError(t, err)

	table.Remove(r.Code())

	_, ok := table.Get(r.Code())
	assert.False(t, ok)
}

func TestTable_ReapOnce_RemovesEmptyStaleLobby(t *testing.T) {
	table := NewTable(context.Background(), &recordingBroadcaster{}, testLogger(t), -1, time.Minute)
	// idleLobbyTTL clamped to 5 min default when <=0, so force a short window manually
	table.idleLobbyTTL = time.Millisecond

	r, err := table.Create("STALE-ROOM-0001", 2, domain.GameModeCasual, testProblem(), true)
	require.NoError(t, err)
	_ = r

	time.Sleep(5 * time.Millisecond)
	table.reapOnce()

	assert.Equal(t, 0, table.Count())
}
