package effects

import (
	"errors"
	"fmt"

	"github.com/emberline/duelcore/internal/game/ability"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/counters"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

var (
	// ErrMissingTargetSelection is returned when an any_target action runs
	// without an externally chosen target.
	ErrMissingTargetSelection = errors.New("missing target selection")
	// ErrUnknownAction is returned for an action kind with no handler.
	ErrUnknownAction = errors.New("unknown action kind")
	// ErrUnknownToken reports a summon that references a missing template.
	// Content checks return it; at resolution the summon fails with an event.
	ErrUnknownToken = errors.New("unknown token template")
)

// Keywords with executor semantics.
const (
	KeywordBarrier   = "barrier"
	KeywordTough     = "tough"
	KeywordLifesteal = "lifesteal"
	KeywordCharge    = "charge"
	KeywordRush      = "rush"
)

// Context is the invocation context of one action.
type Context struct {
	SourcePlayer int
	// SourceCard is the instance id of the card whose ability resolves.
	SourceCard string
	// TargetID is the externally chosen target for any_target actions.
	TargetID  string
	Templates cards.Lookup
	// NewID generates instance ids for summoned units.
	NewID func() string
}

// Executor interprets ParsedActions against a GameState.
type Executor struct {
	// MaxHandSize bounds draws; excess cards are burned.
	MaxHandSize int
}

type handler func(e *Executor, gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error)

var handlers = map[ability.ActionKind]handler{
	ability.ActionDealDamage:      (*Executor).dealDamage,
	ability.ActionDamageAllUnits:  (*Executor).dealDamage,
	ability.ActionGainHealth:      (*Executor).heal,
	ability.ActionHealAllUnits:    (*Executor).heal,
	ability.ActionStatBuff:        (*Executor).buff,
	ability.ActionBuffAllUnits:    (*Executor).buff,
	ability.ActionDrawCards:       (*Executor).draw,
	ability.ActionDiscardCards:    (*Executor).discard,
	ability.ActionSummonUnit:      (*Executor).summon,
	ability.ActionDestroyUnit:     (*Executor).destroy,
	ability.ActionDestroyAllUnits: (*Executor).destroy,
	ability.ActionGainMana:        (*Executor).gainMana,
	ability.ActionAddKeyword:      (*Executor).addKeyword,
}

// Apply runs action against a copy of gs and returns the new state. On
// failure the original state is returned unchanged.
func (e *Executor) Apply(gs state.GameState, action ability.ParsedAction, ctx Context) (state.GameState, []rules.Event, error) {
	out := gs.Clone()
	events, err := e.ApplyInPlace(&out, action, ctx)
	if err != nil {
		return gs, nil, err
	}
	return out, events, nil
}

// ApplyInPlace runs action directly against gs. Callers must own gs; on
// error gs may be partially modified.
func (e *Executor) ApplyInPlace(gs *state.GameState, action ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	h, ok := handlers[action.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind)
	}
	return h(e, gs, action, ctx)
}

// target is a resolved entity: a unit or a player's nexus.
type target struct {
	unit *cards.Instance
	seat int
}

func (t target) id(gs *state.GameState) string {
	if t.unit != nil {
		return t.unit.ID
	}
	return gs.Players[t.seat].ID
}

// resolveTargets maps a TargetType to concrete entities.
func resolveTargets(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]target, error) {
	friendly := ctx.SourcePlayer
	enemy := rules.Other(friendly)

	units := func(seats ...int) []target {
		var out []target
		for _, s := range seats {
			for _, c := range gs.Battlefield.Units(s) {
				out = append(out, target{unit: c, seat: s})
			}
		}
		return out
	}

	switch a.Target {
	case ability.TargetSelf:
		if c, pos, ok := gs.Battlefield.Find(ctx.SourceCard); ok {
			return []target{{unit: c, seat: pos.Seat}}, nil
		}
		return nil, nil
	case ability.TargetPlayer:
		return []target{{seat: friendly}}, nil
	case ability.TargetOpponent:
		return []target{{seat: enemy}}, nil
	case ability.TargetAllFriendly:
		return units(friendly), nil
	case ability.TargetAllEnemy:
		return units(enemy), nil
	case ability.TargetAllUnits:
		return units(friendly, enemy), nil
	case ability.TargetAny:
		if ctx.TargetID == "" {
			return nil, ErrMissingTargetSelection
		}
		if c, pos, ok := gs.Battlefield.Find(ctx.TargetID); ok {
			return []target{{unit: c, seat: pos.Seat}}, nil
		}
		if seat, ok := gs.SeatOf(ctx.TargetID); ok {
			return []target{{seat: seat}}, nil
		}
		// The chosen target left play; the action does nothing.
		return nil, nil
	}
	return nil, nil
}

func (e *Executor) dealDamage(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	targets, err := resolveTargets(gs, a, ctx)
	if err != nil {
		return nil, err
	}
	var (
		events []rules.Event
		dealt  int
	)
	for _, t := range targets {
		n, evs := DamageTarget(gs, t.unit, t.seat, a.Amount, ctx.SourceCard)
		dealt += n
		events = append(events, evs...)
	}
	if src, pos, ok := gs.Battlefield.Find(ctx.SourceCard); ok && src.HasKeyword(KeywordLifesteal) && dealt > 0 {
		events = append(events, HealPlayer(gs, pos.Seat, dealt, ctx.SourceCard)...)
	}
	return events, nil
}

// DamageTarget applies damage to a unit, or to the nexus of seat when unit is
// nil. It returns the damage actually dealt.
func DamageTarget(gs *state.GameState, unit *cards.Instance, seat, amount int, sourceID string) (int, []rules.Event) {
	if amount <= 0 {
		return 0, nil
	}
	if unit == nil {
		p := gs.Player(seat)
		p.Health -= amount
		return amount, []rules.Event{rules.NewEventWithAmount(rules.EventPlayerDamaged, seat, sourceID, p.ID, amount)}
	}

	amount, events := applyDamageReplacements(unit, seat, amount, sourceID)
	if amount <= 0 {
		return 0, events
	}
	unit.Damage += amount
	unit.Counters.Add(counters.DamageTakenThisTurn, amount)
	events = append(events, rules.NewEventWithAmount(rules.EventUnitDamaged, seat, sourceID, unit.ID, amount))
	return amount, events
}

// HealPlayer restores a player's health up to its maximum.
func HealPlayer(gs *state.GameState, seat, amount int, sourceID string) []rules.Event {
	p := gs.Player(seat)
	before := p.Health
	p.Health = min(p.Health+amount, p.MaxHealth)
	if p.Health <= before {
		return nil
	}
	return []rules.Event{rules.NewEventWithAmount(rules.EventPlayerHealed, seat, sourceID, p.ID, p.Health-before)}
}

func (e *Executor) heal(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	targets, err := resolveTargets(gs, a, ctx)
	if err != nil {
		return nil, err
	}
	var events []rules.Event
	for _, t := range targets {
		if t.unit == nil {
			events = append(events, HealPlayer(gs, t.seat, a.Amount, ctx.SourceCard)...)
			continue
		}
		amount := a.Amount
		if a.Kind == ability.ActionGainHealth && amount <= 0 {
			continue
		}
		if healed := t.unit.Heal(amount); healed > 0 {
			events = append(events, rules.NewEventWithAmount(rules.EventUnitHealed, t.seat, ctx.SourceCard, t.unit.ID, healed))
		}
	}
	return events, nil
}

func (e *Executor) buff(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	if a.Stats == nil {
		return nil, nil
	}
	targets, err := resolveTargets(gs, a, ctx)
	if err != nil {
		return nil, err
	}
	var events []rules.Event
	for _, t := range targets {
		if t.unit == nil {
			continue
		}
		t.unit.AddStatus(cards.StatusEffect{
			Name:      "buff " + a.Stats.String(),
			Attack:    a.Stats.Attack,
			Health:    a.Stats.Health,
			Remaining: a.Duration.RemainingTurns(),
			SourceID:  ctx.SourceCard,
		})
		t.unit.Counters.Add(counters.BuffsReceived, 1)
		evt := rules.NewEvent(rules.EventStatBuffed, t.seat, ctx.SourceCard, t.unit.ID)
		evt.Data = a.Stats.String()
		events = append(events, evt)
	}
	return events, nil
}

func (e *Executor) draw(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	p := gs.Player(ctx.SourcePlayer)
	n := a.Amount
	if a.Condition == ability.ConditionUntilHandSize {
		n = a.Amount - len(p.Hand)
	}
	return DrawCards(gs, ctx.SourcePlayer, n, e.MaxHandSize), nil
}

// DrawCards moves up to n cards from the top of seat's deck to hand. An
// empty deck ends drawing without error. Cards drawn into a full hand are
// burned.
func DrawCards(gs *state.GameState, seat, n, maxHand int) []rules.Event {
	p := gs.Player(seat)
	var events []rules.Event
	for i := 0; i < n && len(p.Deck) > 0; i++ {
		c := p.Deck[0]
		p.Deck = p.Deck[1:]
		if maxHand > 0 && len(p.Hand) >= maxHand {
			p.Graveyard = append(p.Graveyard, c)
			events = append(events, rules.NewEvent(rules.EventCardBurned, seat, "", c.ID))
			continue
		}
		p.Hand = append(p.Hand, c)
		events = append(events, rules.NewEvent(rules.EventCardDrawn, seat, "", c.ID))
	}
	return events
}

// discard removes cards from the end of the hand, most recently drawn first.
func (e *Executor) discard(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	p := gs.Player(ctx.SourcePlayer)
	n := a.Amount
	if n == ability.DiscardEntireHand || n > len(p.Hand) {
		n = len(p.Hand)
	}
	var events []rules.Event
	for i := 0; i < n; i++ {
		last := len(p.Hand) - 1
		c := p.Hand[last]
		p.Hand = p.Hand[:last]
		p.Graveyard = append(p.Graveyard, c)
		events = append(events, rules.NewEvent(rules.EventCardDiscarded, ctx.SourcePlayer, ctx.SourceCard, c.ID))
	}
	return events, nil
}

func (e *Executor) summon(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	count := max(a.Amount, 1)
	var tmpl cards.Template
	if a.Token != "" {
		var ok bool
		if ctx.Templates != nil {
			tmpl, ok = ctx.Templates.Template(a.Token)
		}
		if !ok {
			evt := rules.NewEvent(rules.EventSummonFailed, ctx.SourcePlayer, ctx.SourceCard, "")
			evt.Data = fmt.Sprintf("%v: %s", ErrUnknownToken, a.Token)
			return []rules.Event{evt}, nil
		}
	}

	var events []rules.Event
	for i := 0; i < count; i++ {
		slot, free := gs.Battlefield.FirstFreeSlot(ctx.SourcePlayer)
		if !free {
			// A full board swallows the summon.
			events = append(events, rules.NewEvent(rules.EventSummonFailed, ctx.SourcePlayer, ctx.SourceCard, ""))
			break
		}
		id := ctx.NewID()
		var inst *cards.Instance
		if a.Token != "" {
			inst = cards.NewInstance(id, tmpl, ctx.SourcePlayer)
		} else {
			inst = cards.NewToken(id, a.Stats.Attack, a.Stats.Health, ctx.SourcePlayer)
		}
		inst.SummoningSick = !inst.HasKeyword(KeywordCharge) && !inst.HasKeyword(KeywordRush)
		bf, err := gs.Battlefield.PlaceUnit(inst, ctx.SourcePlayer, slot)
		if err != nil {
			return nil, err
		}
		gs.Battlefield = bf
		events = append(events, rules.NewEvent(rules.EventUnitSummoned, ctx.SourcePlayer, ctx.SourceCard, id))
	}
	return events, nil
}

func (e *Executor) destroy(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	targets, err := resolveTargets(gs, a, ctx)
	if err != nil {
		return nil, err
	}
	var events []rules.Event
	for _, t := range targets {
		if t.unit == nil {
			continue
		}
		if evt, ok := RemoveUnit(gs, t.unit.ID, rules.EventUnitDestroyed, ctx.SourceCard); ok {
			events = append(events, evt)
		}
	}
	return events, nil
}

// RemoveUnit takes a unit off the battlefield into its owner's graveyard.
func RemoveUnit(gs *state.GameState, id string, eventType rules.EventType, sourceID string) (rules.Event, bool) {
	pos, ok := gs.Battlefield.FindPosition(id)
	if !ok {
		return rules.Event{}, false
	}
	bf, removed, err := gs.Battlefield.RemoveUnit(pos.Seat, pos.Slot)
	if err != nil || removed == nil {
		return rules.Event{}, false
	}
	gs.Battlefield = bf
	owner := gs.Player(pos.Seat)
	owner.Graveyard = append(owner.Graveyard, removed)
	evt := rules.NewEvent(eventType, pos.Seat, sourceID, id)
	evt.Data = removed.TemplateID
	return evt, true
}

func (e *Executor) gainMana(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	p := gs.Player(ctx.SourcePlayer)
	before := p.Mana
	if a.Pool == ability.PoolSpell {
		p.Mana = p.Mana.GainSpell(a.Amount)
	} else {
		p.Mana = p.Mana.Gain(a.Amount)
	}
	gained := p.Mana.Available() - before.Available()
	evt := rules.NewEventWithAmount(rules.EventManaGained, ctx.SourcePlayer, ctx.SourceCard, p.ID, gained)
	evt.Data = string(a.Pool)
	return []rules.Event{evt}, nil
}

func (e *Executor) addKeyword(gs *state.GameState, a ability.ParsedAction, ctx Context) ([]rules.Event, error) {
	targets, err := resolveTargets(gs, a, ctx)
	if err != nil {
		return nil, err
	}
	var events []rules.Event
	for _, t := range targets {
		if t.unit == nil {
			continue
		}
		if a.Duration.Expiring() {
			t.unit.AddStatus(cards.StatusEffect{
				Name:      "keyword " + a.Keyword,
				Keyword:   a.Keyword,
				Remaining: a.Duration.RemainingTurns(),
				SourceID:  ctx.SourceCard,
			})
		} else if !t.unit.HasKeyword(a.Keyword) {
			t.unit.Keywords = append(t.unit.Keywords, a.Keyword)
		}
		evt := rules.NewEvent(rules.EventKeywordAdded, t.seat, ctx.SourceCard, t.unit.ID)
		evt.Data = a.Keyword
		events = append(events, evt)
	}
	return events, nil
}
