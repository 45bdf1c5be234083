package game

import (
	"maps"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/effects"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

var triggerCards = cards.Set{
	"sentry": {ID: "sentry", Name: "Sentry", Cost: 1, Attack: 1, Health: 2, Type: cards.TypeUnit,
		Text: "At the end of your turn, give this unit +2/+0 this turn."},
	"howl": {ID: "howl", Name: "Howl", Cost: 1, Type: cards.TypeSpell,
		Text: "Summon two wolves."},
	"false-howl": {ID: "false-howl", Name: "False Howl", Cost: 1, Type: cards.TypeSpell,
		Text: "Summon two bears."},
}

// triggerEngine extends the shared test cards with set.
func triggerEngine(set cards.Set, mods ...func(*Rules)) (*Engine, cards.Set) {
	all := maps.Clone(testCards)
	maps.Copy(all, set)
	r := DefaultRules()
	for _, m := range mods {
		m(&r)
	}
	return NewEngine(r, all, CatalogFor(all),
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return fixedNow }),
	), all
}

func placeFrom(t *testing.T, set cards.Set, gs *state.GameState, seat int, id, templateID string) *cards.Instance {
	t.Helper()
	inst := cards.NewInstance(id, set[templateID], seat)
	slot, ok := gs.Battlefield.FirstFreeSlot(seat)
	require.True(t, ok)
	bf, err := gs.Battlefield.PlaceUnit(inst, seat, slot)
	require.NoError(t, err)
	gs.Battlefield = bf
	return inst
}

// indexOf returns the position of the first event of type typ, or -1.
func indexOf(events []rules.Event, typ rules.EventType) int {
	for i, e := range events {
		if e.Type == typ {
			return i
		}
	}
	return -1
}

func TestEndOfRoundBuffExpiresWithTheRound(t *testing.T) {
	e, set := triggerEngine(triggerCards)
	gs := startedMatch(t, e)
	placeFrom(t, set, &gs, 0, "sentry", "sentry")

	gs = apply(t, e, gs, pass(0))
	gs, events, err := e.Apply(gs, pass(1))
	require.NoError(t, err)
	require.Equal(t, 2, gs.Round)

	buffed := indexOf(events, rules.EventStatBuffed)
	expired := indexOf(events, rules.EventStatusExpired)
	ended := indexOf(events, rules.EventRoundEnded)
	require.NotEqual(t, -1, buffed)
	require.NotEqual(t, -1, expired)
	assert.Less(t, buffed, expired)
	assert.Less(t, expired, ended)

	u, _, ok := gs.Battlefield.Find("sentry")
	require.True(t, ok)
	assert.Equal(t, 1, u.Attack())
	assert.Empty(t, u.Statuses)
	assert.True(t, gs.Stack.IsEmpty())
}

func TestEndTurnResolvesEndOfTurnTriggersBeforeExpiry(t *testing.T) {
	e, set := triggerEngine(triggerCards)
	gs := startedMatch(t, e)
	placeFrom(t, set, &gs, 0, "sentry", "sentry")

	gs, events, err := e.Apply(gs, PlayerAction{Type: ActionEndTurn, Seat: 0})
	require.NoError(t, err)
	assert.Less(t, indexOf(events, rules.EventStatBuffed), indexOf(events, rules.EventStatusExpired))
	assert.Less(t, indexOf(events, rules.EventStatusExpired), indexOf(events, rules.EventTurnEnded))

	assert.Equal(t, 1, gs.ActivePlayer)
	assert.True(t, gs.Stack.IsEmpty())
	u, _, ok := gs.Battlefield.Find("sentry")
	require.True(t, ok)
	assert.Equal(t, 1, u.Attack())
	assert.Empty(t, u.Statuses)
}

func TestSummonPluralTokens(t *testing.T) {
	e, set := triggerEngine(triggerCards, withMana(3))
	gs := startedMatch(t, e)
	gs.Players[0].Hand = append(gs.Players[0].Hand, cards.NewInstance("howl", set["howl"], 0))

	gs = apply(t, e, gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "howl"})
	gs = apply(t, e, gs, pass(1))
	gs = apply(t, e, gs, pass(0))

	units := gs.Battlefield.Units(0)
	require.Len(t, units, 2)
	for _, u := range units {
		assert.Equal(t, "wolf", u.TemplateID)
	}
}

func TestSummonOfMissingTokenDoesNotStallTheMatch(t *testing.T) {
	e, set := triggerEngine(triggerCards, withMana(3))
	gs := startedMatch(t, e)
	gs.Players[0].Hand = append(gs.Players[0].Hand, cards.NewInstance("false-howl", set["false-howl"], 0))

	gs = apply(t, e, gs, PlayerAction{Type: ActionPlayCard, Seat: 0, CardID: "false-howl"})
	gs = apply(t, e, gs, pass(1))
	gs, events, err := e.Apply(gs, pass(0))
	require.NoError(t, err)

	types := eventTypes(events)
	assert.Contains(t, types, rules.EventSummonFailed)
	assert.Contains(t, types, rules.EventStackItemResolved)
	assert.True(t, gs.Stack.IsEmpty())
	assert.Zero(t, gs.Battlefield.Count(0))
	assert.NotEmpty(t, e.LegalActions(gs, 0))
}

func TestCheckTokens(t *testing.T) {
	_, set := triggerEngine(triggerCards)
	err := CheckTokens(set, CatalogFor(set))
	require.ErrorIs(t, err, effects.ErrUnknownToken)
	assert.Contains(t, err.Error(), "false-howl -> bear")
	assert.NotContains(t, err.Error(), "howl -> wolf")

	delete(set, "false-howl")
	assert.NoError(t, CheckTokens(set, CatalogFor(set)))
}
