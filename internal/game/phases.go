package game

import (
	"github.com/emberline/duelcore/internal/game/ability"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/effects"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// Transition moves gs to phase to when the adjacency table allows it and
// runs the phase's entry work. Automatic phases continue on to their default
// successor.
func (e *Engine) Transition(gs state.GameState, to rules.Phase) (state.GameState, []rules.Event, error) {
	if gs.Over {
		return gs, nil, reject(CodeGameOver, "match %s is over", gs.MatchID)
	}
	if err := rules.CheckTransition(gs.Phase, to); err != nil {
		return gs, nil, &Rejection{Code: CodeIllegalPhase, Message: err.Error()}
	}
	if !gs.Stack.IsEmpty() {
		return gs, nil, reject(CodeStackNotEmpty, "cannot leave %s with %d pending items", gs.Phase, gs.Stack.Len())
	}
	out := gs.Clone()
	t := &turn{e: e, gs: &out}
	if err := t.enter(to); err != nil {
		return gs, nil, err
	}
	e.stamp(t.events, out.Phase)
	return out, t.events, nil
}

// enter changes phase, runs entry work and, for automatic phases, settles
// the stack and moves on.
func (t *turn) enter(to rules.Phase) error {
	from := t.gs.Phase
	t.gs.Phase = to
	evt := rules.NewEvent(rules.EventPhaseChanged, t.gs.ActivePlayer, "", "")
	evt.Phase = to
	evt.Data = string(from)
	t.emit(evt)

	switch to {
	case rules.PhaseRoundStart:
		t.startRound()
	case rules.PhaseEndRound:
		t.endRound()
	case rules.PhaseCombatResolution:
		t.resolveCombat()
	}

	switch {
	case to == rules.PhaseDefenseDeclaration:
		t.gs.SetPriority(rules.Priority{Holder: rules.Other(t.gs.ActivePlayer)})
	default:
		t.resetPriority()
	}
	if t.gs.Over {
		return nil
	}
	return t.settle()
}

// settle resolves pending items without priority while the match sits in an
// automatic phase, then advances. It stops early when an item waits on a
// target selection; resolving that item calls settle again.
func (t *turn) settle() error {
	for t.gs.Phase.Automatic() && !t.gs.Over {
		if err := t.resolveNow(); err != nil {
			return err
		}
		if t.gs.Over || !t.gs.Stack.IsEmpty() {
			return nil
		}
		next, ok := rules.DefaultNext(t.gs.Phase)
		if !ok {
			return nil
		}
		if t.gs.Phase == rules.PhaseEndRound {
			t.closeRound()
		}
		if err := t.enter(next); err != nil {
			return err
		}
	}
	return nil
}

// resolveNow resolves stacked items without a priority window, stopping at
// an item that waits on a target selection.
func (t *turn) resolveNow() error {
	for !t.gs.Stack.IsEmpty() && !t.gs.Over {
		if top, _ := t.gs.Stack.PeekTop(); top.AwaitingTarget {
			return nil
		}
		if err := t.resolveTop(); err != nil {
			return err
		}
	}
	return nil
}

// startRound refills mana, hands the attack token to the seat whose turn
// the round belongs to, draws and fires start-of-turn triggers.
func (t *turn) startRound() {
	gs := t.gs
	gs.Round++
	gs.Turn++
	gs.ActivePlayer = (gs.Round - 1) % 2
	gems := t.e.rules.manaGems(gs.Round)
	for seat := range gs.Players {
		p := gs.Player(seat)
		p.Mana = p.Mana.Refill(gems)
		p.HasAttackToken = seat == gs.ActivePlayer
	}
	evt := rules.NewEventWithAmount(rules.EventRoundStarted, gs.ActivePlayer, "", "", gs.Round)
	t.emit(evt)

	for _, seat := range []int{gs.ActivePlayer, rules.Other(gs.ActivePlayer)} {
		t.emit(effects.DrawCards(gs, seat, 1, t.e.rules.MaxHandSize)...)
	}
	for _, u := range gs.Battlefield.AllUnits() {
		u.SummoningSick = false
	}
	t.fireTurnTriggers(gs.ActivePlayer, ability.TriggerStartOfTurn)
}

// endRound fires end-of-turn triggers. The round closes once they have
// resolved.
func (t *turn) endRound() {
	t.fireTurnTriggers(t.gs.ActivePlayer, ability.TriggerEndOfTurn)
}

// closeRound banks unspent mana and expires statuses once the end-of-round
// stack has settled.
func (t *turn) closeRound() {
	gs := t.gs
	for seat := range gs.Players {
		p := gs.Player(seat)
		p.Mana = p.Mana.ConvertUnspent()
		p.HasAttackToken = false
	}
	t.emit(effects.ExpireStatuses(gs)...)
	t.emit(rules.NewEventWithAmount(rules.EventRoundEnded, gs.ActivePlayer, "", "", gs.Round))
}

// endTurn hands the turn to the other seat inside the action phase.
func (t *turn) endTurn(action PlayerAction) error {
	gs := t.gs
	if gs.Phase != rules.PhaseAction {
		return reject(CodeWrongPhase, "end_turn in %s", gs.Phase)
	}
	if err := t.requirePriority(action.Seat); err != nil {
		return err
	}
	if gs.ActivePlayer != action.Seat {
		return reject(CodeNotActivePlayer, "seat %d is not active", action.Seat)
	}
	if !gs.Stack.IsEmpty() {
		return reject(CodeStackNotEmpty, "%d pending items", gs.Stack.Len())
	}

	// End-of-turn triggers resolve before statuses tick. One waiting on a
	// target selection resolves after the choice, in the next turn.
	t.fireTurnTriggers(action.Seat, ability.TriggerEndOfTurn)
	if err := t.resolveNow(); err != nil {
		return err
	}
	if gs.Over {
		return nil
	}
	t.emit(effects.ExpireStatuses(gs)...)
	t.emit(rules.NewEvent(rules.EventTurnEnded, action.Seat, "", ""))
	gs.Turn++
	gs.ActivePlayer = rules.Other(action.Seat)
	t.resetPriority()
	t.fireTurnTriggers(gs.ActivePlayer, ability.TriggerStartOfTurn)
	return nil
}

// passPriority implements the two-pass protocol.
func (t *turn) passPriority(action PlayerAction) error {
	if err := t.requirePriority(action.Seat); err != nil {
		return err
	}
	next, outcome := t.gs.Priority().Pass(t.gs.Stack.IsEmpty())
	t.gs.SetPriority(next)
	evt := rules.NewEventWithAmount(rules.EventPriorityPassed, action.Seat, "", "", next.Passes)
	evt.Data = outcome.String()
	t.emit(evt)

	switch outcome {
	case rules.PassResolve:
		if err := t.resolveTop(); err != nil {
			return err
		}
		t.resetPriority()
	case rules.PassAdvance:
		to, _ := rules.DefaultNext(t.gs.Phase)
		if t.gs.Phase == rules.PhaseAttackDeclaration && t.gs.Combat == nil {
			to = rules.PhaseAction
		}
		return t.enter(to)
	}
	return nil
}

// mulligan replaces chosen hand cards with cards from the top of the deck;
// the replaced cards go to the bottom in the order given.
func (t *turn) mulligan(action PlayerAction) error {
	gs := t.gs
	if gs.Phase != rules.PhaseMulligan {
		return reject(CodeWrongPhase, "mulligan in %s", gs.Phase)
	}
	p := gs.Player(action.Seat)
	if p.MulliganComplete {
		return reject(CodeMulliganDone, "seat %d already kept", action.Seat)
	}
	seen := make(map[string]bool, len(action.Replace))
	for _, id := range action.Replace {
		if seen[id] || p.HandIndex(id) < 0 {
			return reject(CodeCardNotInHand, "card %s", id)
		}
		seen[id] = true
	}

	returned := make([]*cards.Instance, 0, len(action.Replace))
	for _, id := range action.Replace {
		i := p.HandIndex(id)
		returned = append(returned, p.Hand[i])
		p.Hand = append(p.Hand[:i:i], p.Hand[i+1:]...)
	}
	n := min(len(returned), len(p.Deck))
	p.Hand = append(p.Hand, p.Deck[:n]...)
	p.Deck = append(p.Deck[n:len(p.Deck):len(p.Deck)], returned...)
	p.MulliganComplete = true
	t.emit(rules.NewEventWithAmount(rules.EventMulliganCompleted, action.Seat, "", p.ID, len(returned)))

	if gs.Players[0].MulliganComplete && gs.Players[1].MulliganComplete {
		return t.enter(rules.PhaseRoundStart)
	}
	return nil
}
