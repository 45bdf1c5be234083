package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// ErrMatchNotFound is returned for an unknown match id.
var ErrMatchNotFound = errors.New("match not found")

// ErrMatchExists is returned when starting a match id that is already running.
var ErrMatchExists = errors.New("match already exists")

// Notification types sent to the notification handler.
const (
	NotifyPhaseChange   = "PHASE_CHANGE"
	NotifyStackUpdate   = "STACK_UPDATE"
	NotifyTargetRequest = "TARGET_REQUEST"
	NotifyGameOver      = "GAME_OVER"
	NotifyStateChange   = "STATE_CHANGE"
)

// Notification is a summary of a state change for UI or websocket clients.
type Notification struct {
	Type      string                 `json:"type"`
	MatchID   string                 `json:"match_id"`
	Seat      int                    `json:"seat"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NotificationHandler receives notifications. Each match delivers its
// notifications in order on a goroutine of its own; the handler may call back
// into the Manager.
type NotificationHandler func(Notification)

// SnapshotStore persists the latest state of a match.
type SnapshotStore interface {
	Save(ctx context.Context, matchID string, gs state.GameState) error
	Load(ctx context.Context, matchID string) (state.GameState, error)
}

type match struct {
	mu     sync.Mutex
	state  state.GameState
	bus    *rules.EventBus
	outbox *outbox
}

// outbox queues a match's notifications and hands them to the handler in
// order without blocking the match.
type outbox struct {
	mu      sync.Mutex
	pending []Notification
	wake    chan struct{}
	done    chan struct{}
}

func newOutbox() *outbox {
	return &outbox{wake: make(chan struct{}, 1), done: make(chan struct{})}
}

func (o *outbox) push(n Notification) {
	o.mu.Lock()
	o.pending = append(o.pending, n)
	o.mu.Unlock()
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) take() []Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := o.pending
	o.pending = nil
	return batch
}

// run delivers queued notifications until close; whatever is queued at
// close is still delivered.
func (o *outbox) run(deliver func(Notification)) {
	for {
		select {
		case <-o.wake:
		case <-o.done:
			for _, n := range o.take() {
				deliver(n)
			}
			return
		}
		for _, n := range o.take() {
			deliver(n)
		}
	}
}

func (o *outbox) close() { close(o.done) }

// Manager runs matches on top of the pure Engine. Actions for one match are
// applied one at a time; different matches proceed in parallel.
type Manager struct {
	engine   *Engine
	logger   *zap.Logger
	store    SnapshotStore
	recorder *ReplayRecorder

	mu                  sync.RWMutex
	matches             map[string]*match
	notificationHandler NotificationHandler
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSnapshotStore saves the state after every accepted action.
func WithSnapshotStore(store SnapshotStore) ManagerOption {
	return func(m *Manager) { m.store = store }
}

// WithReplayRecorder records every accepted action.
func WithReplayRecorder(rec *ReplayRecorder) ManagerOption {
	return func(m *Manager) { m.recorder = rec }
}

// NewManager creates a Manager around engine.
func NewManager(engine *Engine, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		engine:  engine,
		logger:  logger,
		matches: make(map[string]*match),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Engine returns the reducer the manager applies actions with.
func (m *Manager) Engine() *Engine { return m.engine }

// SetNotificationHandler installs the handler for match notifications.
func (m *Manager) SetNotificationHandler(handler NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationHandler = handler
}

func (m *Manager) deliver(n Notification) {
	m.mu.RLock()
	handler := m.notificationHandler
	m.mu.RUnlock()

	if handler != nil {
		handler(n)
	}
}

func (m *Manager) lookup(matchID string) (*match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return mt, nil
}

// StartMatch creates a match and registers it.
func (m *Manager) StartMatch(ctx context.Context, matchID string, seats [2]Seat, seed int64) (state.GameState, error) {
	gs, events, err := m.engine.NewMatch(matchID, seats, seed)
	if err != nil {
		return state.GameState{}, err
	}
	mt, err := m.register(matchID, gs)
	if err != nil {
		return state.GameState{}, err
	}
	defer mt.mu.Unlock()
	if m.recorder != nil {
		m.recorder.Begin(matchID)
		m.recorder.Record(matchID, nil, gs)
	}
	m.persist(ctx, matchID, gs)

	m.logger.Info("match started",
		zap.String("match_id", matchID),
		zap.String("player_0", seats[0].PlayerID),
		zap.String("player_1", seats[1].PlayerID),
		zap.Int64("seed", seed),
	)
	m.publish(mt, matchID, gs, events)
	return gs, nil
}

// Resume registers a match from its stored snapshot.
func (m *Manager) Resume(ctx context.Context, matchID string) (state.GameState, error) {
	if m.store == nil {
		return state.GameState{}, fmt.Errorf("resume %s: no snapshot store configured", matchID)
	}
	gs, err := m.store.Load(ctx, matchID)
	if err != nil {
		return state.GameState{}, fmt.Errorf("resume %s: %w", matchID, err)
	}
	if err := gs.Validate(); err != nil {
		return state.GameState{}, fmt.Errorf("resume %s: stored state invalid: %w", matchID, err)
	}
	mt, err := m.register(matchID, gs)
	if err != nil {
		return state.GameState{}, err
	}
	mt.mu.Unlock()
	m.logger.Info("match resumed", zap.String("match_id", matchID), zap.Int("round", gs.Round))
	return gs, nil
}

// register adds a match and returns it with its lock held, so no action can
// reach it before the caller has finished setting it up.
func (m *Manager) register(matchID string, gs state.GameState) (*match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[matchID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchExists, matchID)
	}
	mt := &match{state: gs, bus: rules.NewEventBus(), outbox: newOutbox()}
	mt.mu.Lock()
	m.matches[matchID] = mt
	go mt.outbox.run(m.deliver)
	return mt, nil
}

// Submit applies action to the match. The match lock is held for the whole
// reduction, the snapshot save and the event fan-out, so saves and events
// follow the order actions were applied in. Bus listeners run under that
// lock and must not call back into the same match.
func (m *Manager) Submit(ctx context.Context, matchID string, action PlayerAction) (state.GameState, []rules.Event, error) {
	mt, err := m.lookup(matchID)
	if err != nil {
		return state.GameState{}, nil, err
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()
	next, events, err := m.engine.Apply(mt.state, action)
	if err != nil {
		m.logger.Debug("action rejected",
			zap.String("match_id", matchID),
			zap.Stringer("action", action),
			zap.Error(err),
		)
		return mt.state, nil, err
	}
	mt.state = next
	if m.recorder != nil {
		m.recorder.Record(matchID, &action, next)
	}
	m.persist(ctx, matchID, next)
	m.publish(mt, matchID, next, events)
	return next, events, nil
}

// Concede ends the match for seat.
func (m *Manager) Concede(ctx context.Context, matchID string, seat int) (state.GameState, error) {
	mt, err := m.lookup(matchID)
	if err != nil {
		return state.GameState{}, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	next, events, err := m.engine.Concede(mt.state, seat)
	if err != nil {
		return state.GameState{}, err
	}
	mt.state = next
	if m.recorder != nil {
		m.recorder.Record(matchID, nil, next)
	}
	m.logger.Info("player conceded", zap.String("match_id", matchID), zap.Int("seat", seat))
	m.persist(ctx, matchID, next)
	m.publish(mt, matchID, next, events)
	return next, nil
}

// State returns a deep copy of the current match state.
func (m *Manager) State(matchID string) (state.GameState, error) {
	mt, err := m.lookup(matchID)
	if err != nil {
		return state.GameState{}, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.state.Clone(), nil
}

// LegalActions enumerates the actions seat may take now.
func (m *Manager) LegalActions(matchID string, seat int) ([]PlayerAction, error) {
	gs, err := m.State(matchID)
	if err != nil {
		return nil, err
	}
	return m.engine.LegalActions(gs, seat), nil
}

// Subscribe registers a synchronous listener for the match's events.
func (m *Manager) Subscribe(matchID string, listener rules.Listener) (int, error) {
	mt, err := m.lookup(matchID)
	if err != nil {
		return -1, err
	}
	return mt.bus.Subscribe(listener), nil
}

// Unsubscribe removes a listener added with Subscribe.
func (m *Manager) Unsubscribe(matchID string, handle int) {
	if mt, err := m.lookup(matchID); err == nil {
		mt.bus.Unsubscribe(handle)
	}
}

// Matches returns the ids of registered matches.
func (m *Manager) Matches() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.matches))
	for id := range m.matches {
		ids = append(ids, id)
	}
	return ids
}

// EndMatch unregisters the match, saving its replay when one was recorded.
func (m *Manager) EndMatch(matchID string) error {
	m.mu.Lock()
	mt, ok := m.matches[matchID]
	delete(m.matches, matchID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	mt.outbox.close()

	if m.recorder != nil && m.recorder.Active(matchID) {
		if err := m.recorder.Finish(matchID); err != nil {
			m.logger.Warn("failed to save replay", zap.String("match_id", matchID), zap.Error(err))
		}
	}
	m.logger.Info("match ended", zap.String("match_id", matchID))
	return nil
}

func (m *Manager) persist(ctx context.Context, matchID string, gs state.GameState) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, matchID, gs); err != nil {
		m.logger.Error("failed to save snapshot",
			zap.String("match_id", matchID),
			zap.Int("turn", gs.Turn),
			zap.Error(err),
		)
	}
}

// publish feeds events to the match bus and queues the interesting ones as
// notifications. The caller holds mt.mu.
func (m *Manager) publish(mt *match, matchID string, gs state.GameState, events []rules.Event) {
	mt.bus.PublishBatch(events)

	for _, evt := range events {
		switch evt.Type {
		case rules.EventPhaseChanged:
			mt.outbox.push(Notification{
				Type:      NotifyPhaseChange,
				MatchID:   matchID,
				Seat:      gs.ActivePlayer,
				Timestamp: evt.Timestamp,
				Data: map[string]interface{}{
					"from":     evt.Data,
					"to":       string(evt.Phase),
					"round":    gs.Round,
					"turn":     gs.Turn,
					"priority": gs.PriorityPlayer,
				},
			})
		case rules.EventStackItemPushed, rules.EventStackItemResolved,
			rules.EventStackItemCountered, rules.EventStackItemFizzled:
			mt.outbox.push(Notification{
				Type:      NotifyStackUpdate,
				MatchID:   matchID,
				Seat:      evt.Seat,
				Timestamp: evt.Timestamp,
				Data: map[string]interface{}{
					"event":       string(evt.Type),
					"stack_item":  evt.StackItemID,
					"stack_depth": gs.Stack.Len(),
				},
			})
		case rules.EventTargetRequested:
			mt.outbox.push(Notification{
				Type:      NotifyTargetRequest,
				MatchID:   matchID,
				Seat:      evt.Seat,
				Timestamp: evt.Timestamp,
				Data: map[string]interface{}{
					"stack_item":  evt.StackItemID,
					"requirement": evt.Data,
				},
			})
		case rules.EventGameOver:
			mt.outbox.push(Notification{
				Type:      NotifyGameOver,
				MatchID:   matchID,
				Seat:      gs.Winner,
				Timestamp: evt.Timestamp,
				Data: map[string]interface{}{
					"winner": gs.Winner,
					"reason": evt.Data,
				},
			})
		}
	}
	if len(events) > 0 {
		mt.outbox.push(Notification{
			Type:      NotifyStateChange,
			MatchID:   matchID,
			Seat:      gs.PriorityPlayer,
			Timestamp: events[len(events)-1].Timestamp,
			Data: map[string]interface{}{
				"events": len(events),
				"phase":  string(gs.Phase),
			},
		})
	}
}
