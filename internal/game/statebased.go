package game

import (
	"github.com/emberline/duelcore/internal/game/ability"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/effects"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// checkState applies state-based actions: dead units leave the battlefield
// and push their on_death abilities, boards are compacted, and a player at
// zero health ends the match.
func (t *turn) checkState() {
	gs := t.gs
	var dead []*cards.Instance
	for _, u := range gs.Battlefield.AllUnits() {
		if u.Dead() {
			dead = append(dead, u)
		}
	}

	for _, u := range dead {
		ab := t.e.abilityOf(u)
		evt, ok := effects.RemoveUnit(gs, u.ID, rules.EventUnitDied, "")
		if !ok {
			continue
		}
		t.emit(evt)
		if ab.Trigger == ability.TriggerOnDeath && !ab.Empty() {
			_, _ = t.push(pending{
				kind:     rules.StackItemKindTriggered,
				ability:  ab,
				seat:     evt.Seat,
				source:   u,
				priority: rules.PriorityDeath,
			})
		}
	}
	if len(dead) > 0 {
		for seat := range gs.Players {
			gs.Battlefield = gs.Battlefield.CompactUnits(seat)
		}
		t.emit(rules.NewEventWithAmount(rules.EventStateBasedActions, gs.ActivePlayer, "", "", len(dead)))
	}

	lost := [2]bool{gs.Players[0].Health <= 0, gs.Players[1].Health <= 0}
	if !lost[0] && !lost[1] {
		return
	}
	gs.Over = true
	switch {
	case lost[0] && lost[1]:
		gs.Winner = state.NoWinner
	case lost[0]:
		gs.Winner = 1
	default:
		gs.Winner = 0
	}
	evt := rules.NewEvent(rules.EventGameOver, gs.Winner, "", "")
	if gs.Winner != state.NoWinner {
		evt.TargetID = gs.Players[gs.Winner].ID
	}
	t.emit(evt)
}

// Concede ends the match in favour of the other seat. The conceding player is
// marked as having left so pending stack items they control fizzle.
func (e *Engine) Concede(gs state.GameState, seat int) (state.GameState, []rules.Event, error) {
	if gs.Over {
		return gs, nil, reject(CodeGameOver, "match %s is over", gs.MatchID)
	}
	if seat < 0 || seat >= len(gs.Players) {
		return gs, nil, reject(CodeUnknownPlayer, "seat %d", seat)
	}
	out := gs.Clone()
	out.Players[seat].Left = true
	out.Over = true
	out.Winner = rules.Other(seat)
	evt := rules.NewEvent(rules.EventGameOver, out.Winner, out.Players[seat].ID, out.Players[out.Winner].ID)
	evt.Data = "concede"
	events := []rules.Event{evt}
	e.stamp(events, out.Phase)
	return out, events, nil
}
