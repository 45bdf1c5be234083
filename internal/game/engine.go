package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/emberline/duelcore/internal/game/ability"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/effects"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the match reducer. It holds no per-match state: every call takes
// a GameState and returns a new one, so one Engine serves any number of
// matches concurrently.
type Engine struct {
	rules     Rules
	templates cards.Lookup
	catalog   *ability.Catalog
	exec      effects.Executor
	newID     func() string
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator replaces the uuid generator used for stack items and
// summoned instances.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithClock replaces the clock used for event and stack item timestamps.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// WithLogger sets a debug logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates a reducer over templates. A nil catalog compiles
// abilities on first use.
func NewEngine(r Rules, templates cards.Lookup, catalog *ability.Catalog, opts ...Option) *Engine {
	if catalog == nil {
		catalog = ability.NewCatalog()
	}
	e := &Engine{
		rules:     r,
		templates: templates,
		catalog:   catalog,
		exec:      effects.Executor{MaxHandSize: r.MaxHandSize},
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's constants.
func (e *Engine) Rules() Rules { return e.rules }

// abilityOf returns the compiled ability for an instance's current face.
func (e *Engine) abilityOf(inst *cards.Instance) ability.ParsedAbility {
	if ab, ok := e.catalog.Ability(inst.TemplateID, inst.Reversed); ok {
		return ab
	}
	if e.templates == nil {
		return ability.ParsedAbility{}
	}
	t, ok := e.templates.Template(inst.TemplateID)
	if !ok {
		return ability.ParsedAbility{}
	}
	entry := e.catalog.Register(t.ID, t.Text, t.ReversedText)
	if inst.Reversed && entry.Reversed != nil {
		return *entry.Reversed
	}
	return entry.Ability
}

// turn is the working context of one Apply call.
type turn struct {
	e      *Engine
	gs     *state.GameState
	events []rules.Event
}

func (t *turn) emit(evts ...rules.Event) {
	t.events = append(t.events, evts...)
}

// Apply reduces one player action. Rejections return gs unchanged with a
// *Rejection error. A structurally invalid gs is a caller defect and panics.
func (e *Engine) Apply(gs state.GameState, action PlayerAction) (state.GameState, []rules.Event, error) {
	if err := gs.Validate(); err != nil {
		panic(fmt.Sprintf("game: Apply called with invalid state: %v", err))
	}
	if rej := e.precheck(gs, action); rej != nil {
		e.logger.Debug("action rejected",
			zap.String("match_id", gs.MatchID),
			zap.Stringer("action", action),
			zap.String("code", rej.Code),
		)
		return gs, nil, rej
	}

	out := gs.Clone()
	t := &turn{e: e, gs: &out}
	var err error
	switch action.Type {
	case ActionMulligan:
		err = t.mulligan(action)
	case ActionPlayCard:
		err = t.playCard(action)
	case ActionDeclareAttack:
		err = t.declareAttack(action)
	case ActionEndTurn:
		err = t.endTurn(action)
	case ActionPassPriority:
		err = t.passPriority(action)
	case ActionRespond:
		err = t.respond(action)
	case ActionSelectTarget:
		err = t.selectTarget(action)
	case ActionCancelTarget:
		err = t.cancelTarget(action)
	default:
		err = reject(CodeUnknownAction, "unknown action type %q", action.Type)
	}
	if err != nil {
		var rej *Rejection
		if !errors.As(err, &rej) {
			err = &Rejection{Code: CodeResolution, Message: err.Error()}
		}
		e.logger.Debug("action rejected",
			zap.String("match_id", gs.MatchID),
			zap.Stringer("action", action),
			zap.Error(err),
		)
		return gs, nil, err
	}

	out.RecordApplied(action.ID, e.rules.ActionHistory)
	e.stamp(t.events, out.Phase)
	e.logger.Debug("action applied",
		zap.String("match_id", out.MatchID),
		zap.Stringer("action", action),
		zap.Int("events", len(t.events)),
		zap.String("phase", string(out.Phase)),
	)
	return out, t.events, nil
}

// precheck rejects actions that are never legal in gs regardless of type.
func (e *Engine) precheck(gs state.GameState, action PlayerAction) *Rejection {
	if gs.Over {
		return reject(CodeGameOver, "match %s is over", gs.MatchID)
	}
	if action.ID != "" && gs.HasApplied(action.ID) {
		return reject(CodeDuplicateAction, "action %s already applied", action.ID)
	}
	if action.Seat < 0 || action.Seat >= len(gs.Players) {
		return reject(CodeUnknownPlayer, "seat %d", action.Seat)
	}
	if pending, ok := gs.Stack.Awaiting(); ok {
		if action.Type != ActionSelectTarget && action.Type != ActionCancelTarget {
			return reject(CodeTargetPending, "stack item %s awaits a target", pending.ID)
		}
	}
	return nil
}

func (e *Engine) stamp(events []rules.Event, phase rules.Phase) {
	now := e.now()
	for i := range events {
		events[i].Timestamp = now
		if events[i].Phase == "" {
			events[i].Phase = phase
		}
	}
}

// requirePriority rejects an action from a seat that does not hold priority
// in a priority phase.
func (t *turn) requirePriority(seat int) error {
	if !t.gs.Phase.HasPriority() {
		return reject(CodeWrongPhase, "no priority in %s", t.gs.Phase)
	}
	if t.gs.PriorityPlayer != seat {
		return reject(CodeNoPriority, "seat %d does not hold priority", seat)
	}
	return nil
}

// act records a game action by the priority holder.
func (t *turn) act() {
	t.gs.SetPriority(t.gs.Priority().Act())
}

// resetPriority returns priority to the active player with no passes.
func (t *turn) resetPriority() {
	t.gs.SetPriority(rules.Reset(t.gs.ActivePlayer))
}
