package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/emberline/duelcore/internal/game/rules"
)

// recordedMatch plays a short match and records every step.
func recordedMatch(t *testing.T) *Replay {
	t.Helper()
	e := newTestEngine()
	gs, _, err := e.NewMatch("m1", testSeats(), 7)
	require.NoError(t, err)

	replay := NewReplay("m1")
	require.NoError(t, replay.Record(nil, gs))
	actions := []PlayerAction{
		{ID: "a1", Type: ActionMulligan, Seat: 0},
		{ID: "a2", Type: ActionMulligan, Seat: 1},
		{ID: "a3", Type: ActionPassPriority, Seat: 0},
		{ID: "a4", Type: ActionPassPriority, Seat: 1},
		{ID: "a5", Type: ActionEndTurn, Seat: 1},
	}
	for _, a := range actions {
		gs = apply(t, e, gs, a)
		require.NoError(t, replay.Record(&a, gs))
	}
	return replay
}

func TestNewReplay(t *testing.T) {
	replay := NewReplay("m1")
	assert.Equal(t, "m1", replay.MatchID)
	assert.Equal(t, 0, replay.Position())
	assert.Equal(t, 0, replay.Size())
}

func TestReplayRecordClonesState(t *testing.T) {
	gs := startedMatch(t, newTestEngine())
	replay := NewReplay("m1")
	require.NoError(t, replay.Record(nil, gs))

	gs.Players[0].Hand[0].Damage = 9
	f, ok := replay.FrameAt(0)
	require.True(t, ok)
	assert.Zero(t, f.State.Players[0].Hand[0].Damage)
	assert.Nil(t, f.Action)
}

func TestReplayNavigation(t *testing.T) {
	replay := recordedMatch(t)
	require.Equal(t, 6, replay.Size())

	replay.Rewind()
	f, ok := replay.Next()
	require.True(t, ok)
	assert.Equal(t, 0, f.Sequence)
	assert.Equal(t, rules.PhaseMulligan, f.State.Phase)

	f, ok = replay.Next()
	require.True(t, ok)
	assert.Equal(t, "a1", f.Action.ID)

	f, ok = replay.Previous()
	require.True(t, ok)
	assert.Equal(t, 1, f.Sequence)

	f, ok = replay.Seek(100)
	require.True(t, ok)
	assert.Equal(t, 5, f.Sequence)
	f, ok = replay.Seek(-100)
	require.True(t, ok)
	assert.Equal(t, 0, f.Sequence)

	_, ok = replay.FrameAt(-1)
	assert.False(t, ok)
	_, ok = replay.FrameAt(6)
	assert.False(t, ok)

	_, ok = NewReplay("empty").Seek(1)
	assert.False(t, ok)
}

func TestReplayVerify(t *testing.T) {
	replay := recordedMatch(t)
	require.NoError(t, replay.Verify())

	replay.Frames[3].State.Players[0].Health = 1
	assert.Error(t, replay.Verify())
}

func TestReplayReapply(t *testing.T) {
	replay := recordedMatch(t)

	require.NoError(t, replay.Reapply(newTestEngine()))

	diverging := newTestEngine(withMana(2))
	assert.Error(t, replay.Reapply(diverging), "different rules change the recorded states")
}

func TestReplaySaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	replay := recordedMatch(t)

	require.NoError(t, replay.SaveToFile(dir))
	_, err := os.Stat(filepath.Join(dir, "m1.replay"))
	require.NoError(t, err)

	loaded, err := LoadReplayFromFile(dir, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", loaded.MatchID)
	require.Equal(t, replay.Size(), loaded.Size())
	require.NoError(t, loaded.Verify())
	for i := range replay.Frames {
		assert.Equal(t, replay.Frames[i].Checksum, loaded.Frames[i].Checksum)
	}

	_, err = LoadReplayFromFile(dir, "missing")
	assert.Error(t, err)
}

func TestReplayRecorder(t *testing.T) {
	dir := t.TempDir()
	recorder := NewReplayRecorder(zaptest.NewLogger(t), dir)
	gs := startedMatch(t, newTestEngine())

	recorder.Record("m1", nil, gs)
	assert.False(t, recorder.Active("m1"), "nothing is kept before recording begins")

	recorder.Begin("m1")
	assert.True(t, recorder.Active("m1"))
	for i := 0; i < 3; i++ {
		recorder.Record("m1", &PlayerAction{Type: ActionPassPriority}, gs)
	}
	replay, ok := recorder.Replay("m1")
	require.True(t, ok)
	assert.Equal(t, 3, replay.Size())

	require.NoError(t, recorder.Finish("m1"))
	assert.False(t, recorder.Active("m1"))
	assert.Error(t, recorder.Finish("m1"))

	loaded, err := recorder.Load("m1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Size())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")

	recorder.Begin("m2")
	recorder.Discard("m2")
	assert.False(t, recorder.Active("m2"))
}
