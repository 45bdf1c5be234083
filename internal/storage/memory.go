package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/emberline/duelcore/internal/game/state"
)

// Memory keeps snapshots in process.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]state.GameState
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]state.GameState)}
}

// Save stores a deep copy of gs.
func (m *Memory) Save(_ context.Context, matchID string, gs state.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[matchID] = gs.Clone()
	return nil
}

// Load returns a deep copy of the latest snapshot.
func (m *Memory) Load(_ context.Context, matchID string) (state.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gs, ok := m.snapshots[matchID]
	if !ok {
		return state.GameState{}, fmt.Errorf("%w: %s", ErrNotFound, matchID)
	}
	return gs.Clone(), nil
}

// Delete drops a snapshot.
func (m *Memory) Delete(_ context.Context, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, matchID)
	return nil
}
