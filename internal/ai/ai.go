// Package ai is the boundary the engine exposes to computer opponents: a
// Decider picks one of the legal actions for a seat.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/emberline/duelcore/internal/game"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// ErrNoLegalActions is returned when the seat has nothing to do.
var ErrNoLegalActions = errors.New("no legal actions")

// Decider returns the action to take for seat. legal is never empty and every
// entry is accepted by the engine.
type Decider interface {
	Decide(ctx context.Context, gs state.GameState, seat int, legal []game.PlayerAction) (game.PlayerAction, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, gs state.GameState, seat int, legal []game.PlayerAction) (game.PlayerAction, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, gs state.GameState, seat int, legal []game.PlayerAction) (game.PlayerAction, error) {
	return f(ctx, gs, seat, legal)
}

// Choose enumerates the legal actions for seat, asks d for one and stamps it
// with a fresh action id.
func Choose(ctx context.Context, e *game.Engine, d Decider, gs state.GameState, seat int) (game.PlayerAction, error) {
	if err := ctx.Err(); err != nil {
		return game.PlayerAction{}, err
	}
	legal := e.LegalActions(gs, seat)
	if len(legal) == 0 {
		return game.PlayerAction{}, ErrNoLegalActions
	}
	action, err := d.Decide(ctx, gs, seat, legal)
	if err != nil {
		return game.PlayerAction{}, fmt.Errorf("decide for seat %d: %w", seat, err)
	}
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	return action, nil
}

// Random picks uniformly among the legal actions.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random decider seeded with seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Decide implements Decider. Random is not safe for concurrent use.
func (r *Random) Decide(_ context.Context, _ state.GameState, _ int, legal []game.PlayerAction) (game.PlayerAction, error) {
	return legal[r.rng.Intn(len(legal))], nil
}

// Greedy plays the most expensive card it can, attacks the nexus when
// allowed, aims at the enemy hero and passes otherwise. It never counters
// and never ends the turn while it still has cards to play.
type Greedy struct{}

// Decide implements Decider.
func (Greedy) Decide(_ context.Context, gs state.GameState, seat int, legal []game.PlayerAction) (game.PlayerAction, error) {
	ranked := append([]game.PlayerAction(nil), legal...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(gs, seat, ranked[i]) > score(gs, seat, ranked[j])
	})
	return ranked[0], nil
}

func score(gs state.GameState, seat int, a game.PlayerAction) int {
	enemy := gs.Players[rules.Other(seat)].ID
	switch a.Type {
	case game.ActionMulligan:
		return 100
	case game.ActionSelectTarget:
		if a.TargetID == enemy {
			return 90
		}
		if _, pos, ok := gs.Battlefield.Find(a.TargetID); ok && pos.Seat != seat {
			return 80
		}
		return 20
	case game.ActionCancelTarget:
		return 10
	case game.ActionPlayCard:
		p := gs.Players[seat]
		if i := p.HandIndex(a.CardID); i >= 0 {
			return 50 + p.Hand[i].Cost
		}
		return 50
	case game.ActionDeclareAttack:
		if a.TargetType == game.AttackNexus {
			return 45
		}
		return 40
	case game.ActionPassPriority:
		return 5
	case game.ActionEndTurn:
		return 1
	}
	return 0
}
