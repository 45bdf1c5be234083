package game

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/emberline/duelcore/internal/game/ability"
	"github.com/emberline/duelcore/internal/game/battlefield"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/effects"
	"github.com/emberline/duelcore/internal/game/mana"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// Seat describes one participant at match creation.
type Seat struct {
	PlayerID string
	// Deck lists template ids; order is irrelevant, decks are shuffled.
	Deck []string
}

// NewMatch builds the opening state: decks shuffled with seed, opening hands
// drawn, phase mulligan with seat 0 active.
func (e *Engine) NewMatch(matchID string, seats [2]Seat, seed int64) (state.GameState, []rules.Event, error) {
	if seats[0].PlayerID == "" || seats[1].PlayerID == "" || seats[0].PlayerID == seats[1].PlayerID {
		return state.GameState{}, nil, fmt.Errorf("match %s: two distinct player ids required", matchID)
	}
	gs := state.GameState{
		MatchID:     matchID,
		Phase:       rules.PhaseMulligan,
		Battlefield: battlefield.New(e.rules.BoardSize),
		Winner:      state.NoWinner,
	}
	rng := rand.New(rand.NewSource(seed))
	t := &turn{e: e, gs: &gs}

	for i, s := range seats {
		deck := make([]*cards.Instance, 0, len(s.Deck))
		for _, id := range s.Deck {
			tmpl, ok := e.templates.Template(id)
			if !ok {
				return state.GameState{}, nil, fmt.Errorf("match %s: seat %d deck references unknown template %q", matchID, i, id)
			}
			deck = append(deck, cards.NewInstance(e.newID(), tmpl, i))
		}
		rng.Shuffle(len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
		gs.Players[i] = state.Player{
			ID:        s.PlayerID,
			Seat:      i,
			Health:    e.rules.StartingHealth,
			MaxHealth: e.rules.StartingHealth,
			Mana:      mana.NewPool(e.rules.MaxMana, e.rules.MaxSpellMana),
			Deck:      deck,
		}
		t.emit(effects.DrawCards(&gs, i, e.rules.StartingHand, e.rules.MaxHandSize)...)
	}
	t.gs.SetPriority(rules.Reset(0))

	evt := rules.NewEvent(rules.EventMatchStarted, 0, "", "")
	evt.Data = matchID
	t.events = append([]rules.Event{evt}, t.events...)
	e.stamp(t.events, gs.Phase)
	return gs, t.events, nil
}

// CatalogFor compiles every template in set into a new catalog.
func CatalogFor(set cards.Set) *ability.Catalog {
	c := ability.NewCatalog()
	for id, t := range set {
		c.Register(id, t.Text, t.ReversedText)
	}
	return c
}

// CheckTokens reports summon actions in catalog that reference a token
// template missing from set. Such summons fail at resolution, so content
// loaders reject them up front.
func CheckTokens(set cards.Set, catalog *ability.Catalog) error {
	var missing []string
	for _, id := range catalog.IDs() {
		e, _ := catalog.Lookup(id)
		faces := []ability.ParsedAbility{e.Ability}
		if e.Reversed != nil {
			faces = append(faces, *e.Reversed)
		}
		for _, ab := range faces {
			for _, a := range ab.Actions {
				if a.Kind != ability.ActionSummonUnit || a.Token == "" {
					continue
				}
				if _, ok := set.Template(a.Token); !ok {
					missing = append(missing, fmt.Sprintf("%s -> %s", id, a.Token))
				}
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", effects.ErrUnknownToken, strings.Join(missing, ", "))
	}
	return nil
}
