// Package prediction applies a client's own actions ahead of the server and
// reconciles them when the authoritative state arrives. Reconciliation always
// replaces the local state wholesale and replays what is still pending on
// top of it; the predicted state is never patched.
package prediction

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emberline/duelcore/internal/game"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// Status is the lifecycle of a predicted action.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusReverted  Status = "reverted"
)

// Log tracks optimistic actions for one client of one match.
type Log struct {
	engine *game.Engine
	logger *zap.Logger

	mu            sync.Mutex
	authoritative state.GameState
	predicted     state.GameState
	pending       []game.PlayerAction
	statuses      map[string]Status
}

// NewLog starts a log from the last authoritative state.
func NewLog(engine *game.Engine, authoritative state.GameState, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		engine:        engine,
		logger:        logger,
		authoritative: authoritative.Clone(),
		predicted:     authoritative.Clone(),
		statuses:      make(map[string]Status),
	}
}

// Predict applies action to the predicted state. The action gets a uuid when
// it has no id; the returned action is the one to send to the server. A
// rejected action is not recorded.
func (l *Log) Predict(action game.PlayerAction) (game.PlayerAction, state.GameState, []rules.Event, error) {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next, events, err := l.engine.Apply(l.predicted, action)
	if err != nil {
		return action, l.predicted.Clone(), nil, err
	}
	l.predicted = next
	l.pending = append(l.pending, action)
	l.statuses[action.ID] = StatusPending
	return action, next.Clone(), events, nil
}

// Confirm records that the server accepted actionID and adopts
// authoritative as the new base.
func (l *Log) Confirm(actionID string, authoritative state.GameState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.statuses[actionID] != StatusPending {
		return fmt.Errorf("confirm %s: action is not pending", actionID)
	}
	l.drop(actionID, StatusConfirmed)
	l.rebase(authoritative)
	return nil
}

// Revert records that the server rejected actionID and adopts authoritative
// as the new base.
func (l *Log) Revert(actionID string, authoritative state.GameState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.statuses[actionID] != StatusPending {
		return fmt.Errorf("revert %s: action is not pending", actionID)
	}
	l.drop(actionID, StatusReverted)
	l.logger.Debug("prediction reverted", zap.String("action_id", actionID))
	l.rebase(authoritative)
	return nil
}

// Replace adopts a server-pushed state that was not a reply to one of our
// actions, such as the opponent's move.
func (l *Log) Replace(authoritative state.GameState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rebase(authoritative)
}

// State returns the predicted state.
func (l *Log) State() state.GameState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.predicted.Clone()
}

// Authoritative returns the last state received from the server.
func (l *Log) Authoritative() state.GameState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.authoritative.Clone()
}

// Pending returns the actions still awaiting a server reply, oldest first.
func (l *Log) Pending() []game.PlayerAction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]game.PlayerAction(nil), l.pending...)
}

// Status reports what happened to actionID.
func (l *Log) Status(actionID string) (Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.statuses[actionID]
	return s, ok
}

func (l *Log) drop(actionID string, status Status) {
	l.statuses[actionID] = status
	for i, a := range l.pending {
		if a.ID == actionID {
			l.pending = append(l.pending[:i:i], l.pending[i+1:]...)
			return
		}
	}
}

// rebase replaces both states with authoritative and replays pending actions.
// Actions the server already applied are confirmed; actions that no longer
// apply are reverted.
func (l *Log) rebase(authoritative state.GameState) {
	l.authoritative = authoritative.Clone()
	applied := make(map[string]bool, len(authoritative.AppliedActions))
	for _, id := range authoritative.AppliedActions {
		applied[id] = true
	}

	predicted := authoritative.Clone()
	var still []game.PlayerAction
	for _, a := range l.pending {
		if applied[a.ID] {
			l.statuses[a.ID] = StatusConfirmed
			continue
		}
		next, _, err := l.engine.Apply(predicted, a)
		if err != nil {
			l.statuses[a.ID] = StatusReverted
			l.logger.Debug("pending action no longer applies",
				zap.String("action_id", a.ID),
				zap.Error(err),
			)
			continue
		}
		predicted = next
		still = append(still, a)
	}
	l.predicted = predicted
	l.pending = still
}
