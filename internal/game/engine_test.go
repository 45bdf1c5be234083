package game

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

var testCards = cards.Set{
	"ember-adept": {ID: "ember-adept", Name: "Ember Adept", Cost: 3, Attack: 2, Health: 3, Type: cards.TypeUnit,
		Text: "When this is played, deal 2 damage to the enemy hero."},
	"stone-warden": {ID: "stone-warden", Name: "Stone Warden", Cost: 2, Attack: 1, Health: 4, Type: cards.TypeUnit,
		Text: "Taunt", Keywords: []string{"taunt"}},
	"brute": {ID: "brute", Name: "Brute", Cost: 1, Attack: 3, Health: 3, Type: cards.TypeUnit},
	"ashling": {ID: "ashling", Name: "Ashling", Cost: 1, Attack: 1, Health: 1, Type: cards.TypeUnit,
		Text: "Deathrattle: Deal 1 damage to the enemy hero."},
	"spark": {ID: "spark", Name: "Spark", Cost: 1, Type: cards.TypeSpell,
		Text: "Deal 2 damage to any target."},
	"wolf": {ID: "wolf", Name: "Wolf", Cost: 1, Attack: 1, Health: 1, Type: cards.TypeToken},
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestEngine(mods ...func(*Rules)) *Engine {
	r := DefaultRules()
	for _, m := range mods {
		m(&r)
	}
	return NewEngine(r, testCards, CatalogFor(testCards),
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func withMana(n int) func(*Rules) {
	return func(r *Rules) { r.RoundOneMana = n }
}

func testSeats() [2]Seat {
	deck := []string{"brute", "brute", "brute", "stone-warden", "stone-warden", "ember-adept", "ember-adept", "spark", "spark", "ashling"}
	return [2]Seat{{PlayerID: "p0", Deck: deck}, {PlayerID: "p1", Deck: deck}}
}

// startedMatch plays both mulligans and returns a state in round one's
// action phase.
func startedMatch(t *testing.T, e *Engine) state.GameState {
	t.Helper()
	gs, _, err := e.NewMatch("m1", testSeats(), 7)
	require.NoError(t, err)
	gs = apply(t, e, gs, PlayerAction{Type: ActionMulligan, Seat: 0})
	gs = apply(t, e, gs, PlayerAction{Type: ActionMulligan, Seat: 1})
	require.Equal(t, rules.PhaseAction, gs.Phase)
	return gs
}

func apply(t *testing.T, e *Engine, gs state.GameState, a PlayerAction) state.GameState {
	t.Helper()
	out, _, err := e.Apply(gs, a)
	require.NoError(t, err, "apply %s", a)
	return out
}

func pass(seat int) PlayerAction {
	return PlayerAction{Type: ActionPassPriority, Seat: seat}
}

// give puts a fresh instance of templateID into seat's hand.
func give(gs *state.GameState, seat int, id, templateID string) *cards.Instance {
	inst := cards.NewInstance(id, testCards[templateID], seat)
	gs.Players[seat].Hand = append(gs.Players[seat].Hand, inst)
	return inst
}

// field puts a ready unit onto seat's board.
func field(t *testing.T, gs *state.GameState, seat int, id, templateID string) *cards.Instance {
	t.Helper()
	inst := cards.NewInstance(id, testCards[templateID], seat)
	slot, ok := gs.Battlefield.FirstFreeSlot(seat)
	require.True(t, ok)
	bf, err := gs.Battlefield.PlaceUnit(inst, seat, slot)
	require.NoError(t, err)
	gs.Battlefield = bf
	return inst
}

func eventTypes(events []rules.Event) []rules.EventType {
	out := make([]rules.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func requireRejected(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalAction), "error %v is not an illegal action", err)
	assert.Equal(t, code, RejectionCode(err))
}

func TestNewMatchDealsOpeningHands(t *testing.T) {
	e := newTestEngine()
	gs, events, err := e.NewMatch("m1", testSeats(), 7)
	require.NoError(t, err)
	require.NoError(t, gs.Validate())

	assert.Equal(t, rules.PhaseMulligan, gs.Phase)
	assert.Equal(t, state.NoWinner, gs.Winner)
	for seat, p := range gs.Players {
		assert.Len(t, p.Hand, 4, "seat %d", seat)
		assert.Len(t, p.Deck, 6, "seat %d", seat)
		assert.Equal(t, 20, p.Health)
	}
	require.NotEmpty(t, events)
	assert.Equal(t, rules.EventMatchStarted, events[0].Type)
	assert.Equal(t, fixedNow, events[0].Timestamp)

	again, _, err := newTestEngine().NewMatch("m1", testSeats(), 7)
	require.NoError(t, err)
	a, err := ComputeChecksum(gs)
	require.NoError(t, err)
	b, err := ComputeChecksum(again)
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash, "same seed and ids must deal the same match")
}

func TestNewMatchRejectsBadSeats(t *testing.T) {
	e := newTestEngine()
	seats := testSeats()
	seats[1].Deck = []string{"missing"}
	_, _, err := e.NewMatch("m1", seats, 1)
	assert.Error(t, err)

	seats = testSeats()
	seats[1].PlayerID = "p0"
	_, _, err = e.NewMatch("m1", seats, 1)
	assert.Error(t, err)
}

func TestMulliganReplacesCardsAndStartsRound(t *testing.T) {
	e := newTestEngine()
	gs, _, err := e.NewMatch("m1", testSeats(), 7)
	require.NoError(t, err)

	replaced := []string{gs.Players[0].Hand[0].ID, gs.Players[0].Hand[2].ID}
	gs = apply(t, e, gs, PlayerAction{Type: ActionMulligan, Seat: 0, Replace: replaced})
	assert.Equal(t, rules.PhaseMulligan, gs.Phase)
	assert.Len(t, gs.Players[0].Hand, 4)
	deck := gs.Players[0].Deck
	assert.Equal(t, replaced, []string{deck[len(deck)-2].ID, deck[len(deck)-1].ID})
	for _, c := range gs.Players[0].Hand {
		assert.NotContains(t, replaced, c.ID)
	}

	_, _, err = e.Apply(gs, PlayerAction{Type: ActionMulligan, Seat: 0})
	requireRejected(t, err, CodeMulliganDone)

	gs, events, err := e.Apply(gs, PlayerAction{Type: ActionMulligan, Seat: 1})
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventRoundStarted)
	assert.Equal(t, rules.PhaseAction, gs.Phase)
	assert.Equal(t, 1, gs.Round)
	assert.Equal(t, 0, gs.ActivePlayer)
	assert.Equal(t, 0, gs.PriorityPlayer)
	assert.True(t, gs.Players[0].HasAttackToken)
	assert.False(t, gs.Players[1].HasAttackToken)
	for _, p := range gs.Players {
		assert.Len(t, p.Hand, 5)
		assert.Equal(t, 1, p.Mana.Mana)
	}
}

func TestMulliganRejectsUnknownCard(t *testing.T) {
	e := newTestEngine()
	gs, _, err := e.NewMatch("m1", testSeats(), 7)
	require.NoError(t, err)
	_, _, err = e.Apply(gs, PlayerAction{Type: ActionMulligan, Seat: 0, Replace: []string{"nope"}})
	requireRejected(t, err, CodeCardNotInHand)
}

func TestPlayUnitResolvesOnPlayDamage(t *testing.T) {
	e := newTestEngine(withMana(3))
	gs := startedMatch(t, e)
	give(&gs, 0, "adept", "ember-adept")

	gs, events, err := e.Apply(gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "adept"})
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventCardPlayed)
	assert.Contains(t, eventTypes(events), rules.EventStackItemPushed)
	assert.Equal(t, 0, gs.Players[0].Mana.Mana)
	assert.Equal(t, 1, gs.Stack.Len())
	assert.Equal(t, 1, gs.PriorityPlayer, "opponent may respond")
	unit, _, ok := gs.Battlefield.Find("adept")
	require.True(t, ok)
	assert.True(t, unit.SummoningSick)

	gs = apply(t, e, gs, pass(1))
	assert.Equal(t, 1, gs.Stack.Len(), "one pass does not resolve")
	assert.Equal(t, 20, gs.Players[1].Health)

	gs, events, err = e.Apply(gs, pass(0))
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventStackItemResolved)
	assert.True(t, gs.Stack.IsEmpty())
	assert.Equal(t, 18, gs.Players[1].Health)
	assert.Equal(t, rules.PhaseAction, gs.Phase)
	assert.Equal(t, 0, gs.PriorityPlayer)
}

func TestTwoPassesOnEmptyStackAdvanceTheRound(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)

	gs = apply(t, e, gs, pass(0))
	assert.Equal(t, rules.PhaseAction, gs.Phase)
	gs, events, err := e.Apply(gs, pass(1))
	require.NoError(t, err)

	types := eventTypes(events)
	assert.Contains(t, types, rules.EventRoundEnded)
	assert.Contains(t, types, rules.EventRoundStarted)
	assert.Equal(t, rules.PhaseAction, gs.Phase)
	assert.Equal(t, 2, gs.Round)
	assert.Equal(t, 1, gs.ActivePlayer)
	assert.True(t, gs.Players[1].HasAttackToken)
	assert.Equal(t, 2, gs.Players[0].Mana.MaxMana)
	assert.Equal(t, 1, gs.Players[0].Mana.SpellMana, "unspent mana is banked")
}

func TestEndTurnFlipsActivePlayer(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)

	_, _, err := e.Apply(gs, PlayerAction{Type: ActionEndTurn, Seat: 1})
	requireRejected(t, err, CodeNoPriority)

	gs, events, err := e.Apply(gs, PlayerAction{Type: ActionEndTurn, Seat: 0})
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventTurnEnded)
	assert.Equal(t, 1, gs.ActivePlayer)
	assert.Equal(t, 1, gs.PriorityPlayer)
	assert.Equal(t, 2, gs.Turn)
	assert.Equal(t, 1, gs.Round)
}

func TestRejectionLeavesStateUnchanged(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	give(&gs, 0, "adept", "ember-adept")
	before, err := ComputeChecksum(gs)
	require.NoError(t, err)

	cases := []struct {
		name   string
		action PlayerAction
		code   string
	}{
		{"card not in hand", PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "ghost"}, CodeCardNotInHand},
		{"insufficient mana", PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "adept"}, CodeInsufficientMana},
		{"no priority", pass(1), CodeNoPriority},
		{"unknown seat", pass(2), CodeUnknownPlayer},
		{"unknown type", PlayerAction{Type: "dance", Seat: 0}, CodeUnknownAction},
		{"wrong phase", PlayerAction{Type: ActionMulligan, Seat: 0}, CodeWrongPhase},
		{"no attacker", PlayerAction{Type: ActionDeclareAttack, Seat: 0, AttackerID: "x", TargetType: AttackNexus}, CodeCannotAttack},
		{"unknown stack item", PlayerAction{Type: ActionRespond, Seat: 0, StackItemID: "x", Response: ResponseCounter}, CodeUnknownStackItem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, events, err := e.Apply(gs, tc.action)
			requireRejected(t, err, tc.code)
			assert.Nil(t, events)
			after, err := ComputeChecksum(out)
			require.NoError(t, err)
			assert.Equal(t, before.Hash, after.Hash)
		})
	}
}

func TestDuplicateActionIDRejected(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)

	gs = apply(t, e, gs, PlayerAction{ID: "a1", Type: ActionPassPriority, Seat: 0})
	_, _, err := e.Apply(gs, PlayerAction{ID: "a1", Type: ActionPassPriority, Seat: 1})
	requireRejected(t, err, CodeDuplicateAction)
}

func TestApplyPanicsOnInvalidState(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	gs.PassCount = 5
	assert.Panics(t, func() { _, _, _ = e.Apply(gs, pass(0)) })
}

func TestSpellAwaitsTargetSelection(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	give(&gs, 0, "spark", "spark")

	gs, events, err := e.Apply(gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "spark"})
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventTargetRequested)
	item, ok := gs.Stack.Awaiting()
	require.True(t, ok)

	_, _, err = e.Apply(gs, pass(1))
	requireRejected(t, err, CodeTargetPending)
	_, _, err = e.Apply(gs, PlayerAction{Type: ActionSelectTarget, Seat: 1, StackItemID: item.ID, TargetID: "p0"})
	requireRejected(t, err, CodeNoPriority)

	gs = apply(t, e, gs, PlayerAction{Type: ActionSelectTarget, Seat: 0, StackItemID: item.ID, TargetID: "p1"})
	_, ok = gs.Stack.Awaiting()
	assert.False(t, ok)

	gs = apply(t, e, gs, pass(1))
	gs = apply(t, e, gs, pass(0))
	assert.True(t, gs.Stack.IsEmpty())
	assert.Equal(t, 18, gs.Players[1].Health)
}

func TestCancelTargetDiscardsItem(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	give(&gs, 0, "spark", "spark")

	gs = apply(t, e, gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "spark"})
	item, ok := gs.Stack.Awaiting()
	require.True(t, ok)

	gs, events, err := e.Apply(gs, PlayerAction{Type: ActionCancelTarget, Seat: 0, StackItemID: item.ID})
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventTargetCancelled)
	assert.True(t, gs.Stack.IsEmpty())
	assert.Equal(t, 20, gs.Players[1].Health)
}

func TestSpellWithInvalidTargetRejected(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	give(&gs, 0, "spark", "spark")

	_, _, err := e.Apply(gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "spark", TargetID: "nobody"})
	requireRejected(t, err, CodeInvalidTarget)
}

func TestCounterRemovesOpposingSpell(t *testing.T) {
	e := newTestEngine(withMana(3))
	gs := startedMatch(t, e)
	give(&gs, 0, "spark", "spark")

	gs = apply(t, e, gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "spark", TargetID: "p1"})
	item, ok := gs.Stack.PeekTop()
	require.True(t, ok)
	assert.Equal(t, "p1", item.TargetID)

	counter := PlayerAction{Type: ActionRespond, Seat: 1, StackItemID: item.ID, Response: ResponseCounter}
	gs, events, err := e.Apply(gs, counter)
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventStackItemCountered)
	assert.True(t, gs.Stack.IsEmpty())
	assert.Equal(t, 0, gs.Players[1].Mana.Available())
	assert.Equal(t, 20, gs.Players[1].Health)
	assert.Equal(t, 0, gs.PriorityPlayer)
}

func TestCounterOwnItemRejected(t *testing.T) {
	e := newTestEngine(withMana(3))
	gs := startedMatch(t, e)
	give(&gs, 0, "spark", "spark")
	gs = apply(t, e, gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "spark", TargetID: "p1"})
	gs = apply(t, e, gs, pass(1))

	item, _ := gs.Stack.PeekTop()
	_, _, err := e.Apply(gs, PlayerAction{Type: ActionRespond, Seat: 0, StackItemID: item.ID, Response: ResponseCounter})
	requireRejected(t, err, CodeNotCounterable)
}

func TestAttackMustTargetTaunt(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	field(t, &gs, 0, "brute", "brute")
	field(t, &gs, 1, "plain", "ashling")
	field(t, &gs, 1, "warden", "stone-warden")

	_, _, err := e.Apply(gs, PlayerAction{Type: ActionDeclareAttack, Seat: 0, AttackerID: "brute", TargetType: AttackNexus})
	requireRejected(t, err, CodeInvalidTarget)
	_, _, err = e.Apply(gs, PlayerAction{Type: ActionDeclareAttack, Seat: 0, AttackerID: "brute", TargetType: AttackUnit, TargetID: "plain"})
	requireRejected(t, err, CodeInvalidTarget)

	gs, events, err := e.Apply(gs, PlayerAction{Type: ActionDeclareAttack, Seat: 0, AttackerID: "brute", TargetType: AttackUnit, TargetID: "warden"})
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventAttackDeclared)
	assert.Equal(t, rules.PhaseAttackDeclaration, gs.Phase)
	assert.Equal(t, 1, gs.PriorityPlayer)
	assert.False(t, gs.Players[0].HasAttackToken)

	gs = apply(t, e, gs, pass(1))
	gs = apply(t, e, gs, pass(0))
	assert.Equal(t, rules.PhaseDefenseDeclaration, gs.Phase)
	assert.Equal(t, 1, gs.PriorityPlayer, "defender acts first")

	gs = apply(t, e, gs, pass(1))
	gs, events, err = e.Apply(gs, pass(0))
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventCombatResolved)
	assert.Equal(t, rules.PhaseAction, gs.Phase)
	assert.Nil(t, gs.Combat)

	warden, _, ok := gs.Battlefield.Find("warden")
	require.True(t, ok)
	assert.Equal(t, 1, warden.Health())
	brute, _, ok := gs.Battlefield.Find("brute")
	require.True(t, ok)
	assert.Equal(t, 2, brute.Health())

	_, _, err = e.Apply(gs, PlayerAction{Type: ActionDeclareAttack, Seat: 0, AttackerID: "brute", TargetType: AttackUnit, TargetID: "warden"})
	requireRejected(t, err, CodeNoAttackToken)
}

func TestLethalNexusAttackEndsMatch(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	field(t, &gs, 0, "brute", "brute")
	gs.Players[1].Health = 3

	gs = apply(t, e, gs, PlayerAction{Type: ActionDeclareAttack, Seat: 0, AttackerID: "brute", TargetType: AttackNexus})
	for _, seat := range []int{1, 0, 1} {
		gs = apply(t, e, gs, pass(seat))
	}
	gs, events, err := e.Apply(gs, pass(0))
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventGameOver)
	assert.True(t, gs.Over)
	assert.Equal(t, 0, gs.Winner)
	assert.Equal(t, 0, gs.Players[1].Health)

	_, _, err = e.Apply(gs, pass(gs.PriorityPlayer))
	requireRejected(t, err, CodeGameOver)
}

func TestDeathTriggerResolvesAfterSpell(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	field(t, &gs, 1, "ash", "ashling")
	give(&gs, 0, "spark", "spark")

	gs = apply(t, e, gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "spark", TargetID: "ash"})
	gs = apply(t, e, gs, pass(1))
	gs, events, err := e.Apply(gs, pass(0))
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), rules.EventUnitDied)
	_, _, onBoard := gs.Battlefield.Find("ash")
	assert.False(t, onBoard)

	top, ok := gs.Stack.PeekTop()
	require.True(t, ok)
	assert.Equal(t, rules.PriorityDeath, top.Priority)
	assert.False(t, top.CanBeCountered)
	assert.Equal(t, 1, top.SourcePlayer)

	gs = apply(t, e, gs, pass(0))
	gs = apply(t, e, gs, pass(1))
	assert.True(t, gs.Stack.IsEmpty())
	assert.Equal(t, 19, gs.Players[0].Health)
}

func TestTransitionFollowsAdjacency(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)

	_, _, err := e.Transition(gs, rules.PhaseCombatResolution)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, CodeIllegalPhase, RejectionCode(err))

	out, events, err := e.Transition(gs, rules.PhaseEndRound)
	require.NoError(t, err)
	assert.Equal(t, rules.PhaseAction, out.Phase, "end_round and round_start run through")
	assert.Equal(t, 2, out.Round)
	assert.Contains(t, eventTypes(events), rules.EventPhaseChanged)
}

func TestLegalActionsAreAccepted(t *testing.T) {
	e := newTestEngine(withMana(3))
	gs := startedMatch(t, e)
	field(t, &gs, 0, "brute", "brute")
	field(t, &gs, 1, "warden", "stone-warden")
	give(&gs, 0, "adept", "ember-adept")

	actions := e.LegalActions(gs, 0)
	require.NotEmpty(t, actions)
	types := make(map[ActionType]int)
	for _, a := range actions {
		types[a.Type]++
		_, _, err := e.Apply(gs, a)
		assert.NoError(t, err, "legal action %s rejected", a)
	}
	assert.Equal(t, 1, types[ActionPassPriority])
	assert.Equal(t, 1, types[ActionEndTurn])
	assert.Equal(t, 1, types[ActionDeclareAttack], "only the taunt unit may be attacked")
	assert.GreaterOrEqual(t, types[ActionPlayCard], 1)

	assert.Empty(t, e.LegalActions(gs, 1), "seat without priority has no actions")
}

func TestLegalActionsDuringTargetSelection(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)
	field(t, &gs, 1, "warden", "stone-warden")
	give(&gs, 0, "spark", "spark")
	gs = apply(t, e, gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "spark"})

	actions := e.LegalActions(gs, 0)
	var targets []string
	var cancels int
	for _, a := range actions {
		switch a.Type {
		case ActionSelectTarget:
			targets = append(targets, a.TargetID)
		case ActionCancelTarget:
			cancels++
		default:
			t.Fatalf("unexpected action %s", a)
		}
	}
	assert.ElementsMatch(t, []string{"warden", "p0", "p1"}, targets)
	assert.Equal(t, 1, cancels)
	assert.Empty(t, e.LegalActions(gs, 1))
}

func TestConcede(t *testing.T) {
	e := newTestEngine()
	gs := startedMatch(t, e)

	out, events, err := e.Concede(gs, 1)
	require.NoError(t, err)
	assert.True(t, out.Over)
	assert.Equal(t, 0, out.Winner)
	assert.True(t, out.Players[1].Left)
	assert.Equal(t, []rules.EventType{rules.EventGameOver}, eventTypes(events))
	assert.False(t, gs.Over, "input untouched")

	_, _, err = e.Concede(out, 0)
	requireRejected(t, err, CodeGameOver)
}
