package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

type memoryStore struct {
	mu    sync.Mutex
	saved map[string]state.GameState
	saves int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(map[string]state.GameState)}
}

func (s *memoryStore) Save(_ context.Context, matchID string, gs state.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[matchID] = gs.Clone()
	s.saves++
	return nil
}

func (s *memoryStore) Load(_ context.Context, matchID string) (state.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.saved[matchID]
	if !ok {
		return state.GameState{}, errors.New("not found")
	}
	return gs.Clone(), nil
}

// stallingStore holds the next Save for delay once armed, signalling on
// entered when it starts waiting.
type stallingStore struct {
	*memoryStore
	delay   time.Duration
	armed   atomic.Bool
	entered chan struct{}
}

func (s *stallingStore) Save(ctx context.Context, matchID string, gs state.GameState) error {
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		time.Sleep(s.delay)
	}
	return s.memoryStore.Save(ctx, matchID, gs)
}

func TestManagerSavesInApplyOrder(t *testing.T) {
	ctx := context.Background()
	store := &stallingStore{memoryStore: newMemoryStore(), delay: 150 * time.Millisecond, entered: make(chan struct{})}
	m := NewManager(newTestEngine(), zaptest.NewLogger(t), WithSnapshotStore(store))
	_, err := m.StartMatch(ctx, "m1", testSeats(), 7)
	require.NoError(t, err)

	store.armed.Store(true)
	firstDone := make(chan error, 1)
	go func() {
		_, _, err := m.Submit(ctx, "m1", PlayerAction{ID: "a", Type: ActionMulligan, Seat: 0})
		firstDone <- err
	}()
	<-store.entered
	_, _, err = m.Submit(ctx, "m1", PlayerAction{ID: "b", Type: ActionMulligan, Seat: 1})
	require.NoError(t, err)
	require.NoError(t, <-firstDone)

	live, err := m.State("m1")
	require.NoError(t, err)
	saved, err := store.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, live.AppliedActions)
	assert.Equal(t, live.AppliedActions, saved.AppliedActions)

	liveSum, err := ComputeChecksum(live)
	require.NoError(t, err)
	savedSum, err := ComputeChecksum(saved)
	require.NoError(t, err)
	assert.Equal(t, liveSum.Hash, savedSum.Hash)
}

func TestManagerNotifiesInApplyOrder(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestEngine(), zaptest.NewLogger(t))

	var mu sync.Mutex
	var rounds []int
	done := make(chan struct{})
	m.SetNotificationHandler(func(n Notification) {
		if n.Type != NotifyPhaseChange || n.Data["to"] != string(rules.PhaseRoundStart) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		rounds = append(rounds, n.Data["round"].(int))
		if len(rounds) == 4 {
			close(done)
		}
	})

	_, err := m.StartMatch(ctx, "m1", testSeats(), 7)
	require.NoError(t, err)
	_, _, err = m.Submit(ctx, "m1", PlayerAction{Type: ActionMulligan, Seat: 0})
	require.NoError(t, err)
	_, _, err = m.Submit(ctx, "m1", PlayerAction{Type: ActionMulligan, Seat: 1})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		gs, err := m.State("m1")
		require.NoError(t, err)
		_, _, err = m.Submit(ctx, "m1", pass(gs.PriorityPlayer))
		require.NoError(t, err)
		gs, err = m.State("m1")
		require.NoError(t, err)
		_, _, err = m.Submit(ctx, "m1", pass(gs.PriorityPlayer))
		require.NoError(t, err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("missing round start notifications")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4}, rounds)
}

func TestManagerStartAndSubmit(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	m := NewManager(newTestEngine(), zaptest.NewLogger(t), WithSnapshotStore(store))

	notes := make(chan Notification, 64)
	m.SetNotificationHandler(func(n Notification) { notes <- n })

	_, err := m.StartMatch(ctx, "m1", testSeats(), 7)
	require.NoError(t, err)
	_, err = m.StartMatch(ctx, "m1", testSeats(), 7)
	assert.ErrorIs(t, err, ErrMatchExists)
	assert.Equal(t, []string{"m1"}, m.Matches())

	var seen []rules.EventType
	_, err = m.Subscribe("m1", func(e rules.Event) { seen = append(seen, e.Type) })
	require.NoError(t, err)

	_, _, err = m.Submit(ctx, "m1", PlayerAction{ID: "a1", Type: ActionMulligan, Seat: 0})
	require.NoError(t, err)
	gs, events, err := m.Submit(ctx, "m1", PlayerAction{ID: "a2", Type: ActionMulligan, Seat: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, events)
	assert.Equal(t, rules.PhaseAction, gs.Phase)
	assert.Contains(t, seen, rules.EventRoundStarted)

	current, err := m.State("m1")
	require.NoError(t, err)
	assert.Equal(t, gs.Round, current.Round)

	saved, err := store.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, rules.PhaseAction, saved.Phase)
	assert.Equal(t, 3, store.saves)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-notes:
			if n.Type == NotifyPhaseChange && n.Data["to"] == string(rules.PhaseAction) {
				assert.Equal(t, "m1", n.MatchID)
				return
			}
		case <-deadline:
			t.Fatal("no phase change notification")
		}
	}
}

func TestManagerRejectsAndKeepsState(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestEngine(), zaptest.NewLogger(t))
	_, err := m.StartMatch(ctx, "m1", testSeats(), 7)
	require.NoError(t, err)

	_, _, err = m.Submit(ctx, "m1", PlayerAction{ID: "a1", Type: ActionMulligan, Seat: 0})
	require.NoError(t, err)
	gs, events, err := m.Submit(ctx, "m1", PlayerAction{ID: "a1", Type: ActionMulligan, Seat: 1})
	assert.Equal(t, CodeDuplicateAction, RejectionCode(err))
	assert.Nil(t, events)
	assert.True(t, gs.Players[0].MulliganComplete)
	assert.False(t, gs.Players[1].MulliganComplete)

	_, _, err = m.Submit(ctx, "nope", PlayerAction{Type: ActionMulligan})
	assert.ErrorIs(t, err, ErrMatchNotFound)
	_, err = m.State("nope")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestManagerSerializesConcurrentSubmits(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestEngine(), zaptest.NewLogger(t))
	_, err := m.StartMatch(ctx, "m1", testSeats(), 7)
	require.NoError(t, err)
	_, _, err = m.Submit(ctx, "m1", PlayerAction{Type: ActionMulligan, Seat: 0})
	require.NoError(t, err)
	_, _, err = m.Submit(ctx, "m1", PlayerAction{Type: ActionMulligan, Seat: 1})
	require.NoError(t, err)

	// Both seats hammer pass_priority; only the holder's passes land, and
	// every accepted pass leaves a valid state behind.
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for seat := 0; seat < 2; seat++ {
		wg.Add(1)
		go func(seat int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, _, err := m.Submit(ctx, "m1", pass(seat)); err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}(seat)
	}
	wg.Wait()

	gs, err := m.State("m1")
	require.NoError(t, err)
	require.NoError(t, gs.Validate())
	assert.Greater(t, accepted, 0)
	assert.Equal(t, 1+accepted/2, gs.Round, "every second pass ends a round")
}

func TestManagerResumeFromStore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	first := NewManager(newTestEngine(), zaptest.NewLogger(t), WithSnapshotStore(store))
	started, err := first.StartMatch(ctx, "m1", testSeats(), 7)
	require.NoError(t, err)

	second := NewManager(newTestEngine(), zaptest.NewLogger(t), WithSnapshotStore(store))
	resumed, err := second.Resume(ctx, "m1")
	require.NoError(t, err)
	a, _ := ComputeChecksum(started)
	b, _ := ComputeChecksum(resumed)
	assert.Equal(t, a.Hash, b.Hash)

	_, err = second.Resume(ctx, "missing")
	assert.Error(t, err)
	_, err = NewManager(newTestEngine(), nil).Resume(ctx, "m1")
	assert.Error(t, err)
}

func TestManagerConcedeAndEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)
	m := NewManager(newTestEngine(), logger, WithReplayRecorder(NewReplayRecorder(logger, dir)))
	_, err := m.StartMatch(ctx, "m1", testSeats(), 7)
	require.NoError(t, err)

	gs, err := m.Concede(ctx, "m1", 0)
	require.NoError(t, err)
	assert.True(t, gs.Over)
	assert.Equal(t, 1, gs.Winner)

	require.NoError(t, m.EndMatch("m1"))
	assert.ErrorIs(t, m.EndMatch("m1"), ErrMatchNotFound)

	replay, err := LoadReplayFromFile(dir, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, replay.Size())
}

func TestManagerLegalActions(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestEngine(), zaptest.NewLogger(t))
	_, err := m.StartMatch(ctx, "m1", testSeats(), 7)
	require.NoError(t, err)

	actions, err := m.LegalActions("m1", 1)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionMulligan, actions[0].Type)
}
