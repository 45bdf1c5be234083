package game

import (
	"fmt"

	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
	"github.com/emberline/duelcore/internal/game/targeting"
	"go.uber.org/zap"
)

// LegalActions enumerates the actions seat may take in gs. Every returned
// action is accepted by Apply; action ids are left empty.
func (e *Engine) LegalActions(gs state.GameState, seat int) []PlayerAction {
	if gs.Over || seat < 0 || seat >= len(gs.Players) {
		return nil
	}
	var candidates []PlayerAction

	if item, ok := gs.Stack.Awaiting(); ok {
		if item.SourcePlayer != seat {
			return nil
		}
		req, _ := targeting.RequirementFor(item.Ability)
		for _, id := range targeting.NewValidator(&gs).Candidates(req, seat) {
			candidates = append(candidates, PlayerAction{Type: ActionSelectTarget, Seat: seat, StackItemID: item.ID, TargetID: id})
		}
		candidates = append(candidates, PlayerAction{Type: ActionCancelTarget, Seat: seat, StackItemID: item.ID})
		return e.filterLegal(gs, candidates)
	}

	if gs.Phase == rules.PhaseMulligan {
		if gs.Players[seat].MulliganComplete {
			return nil
		}
		return []PlayerAction{{Type: ActionMulligan, Seat: seat}}
	}
	if !gs.Phase.HasPriority() || gs.PriorityPlayer != seat {
		return nil
	}

	candidates = append(candidates, PlayerAction{Type: ActionPassPriority, Seat: seat})
	for _, c := range gs.Players[seat].Hand {
		candidates = append(candidates, PlayerAction{Type: ActionPlayCard, Seat: seat, CardID: c.ID})
	}
	for _, item := range gs.Stack.Items {
		if item.CanBeCountered && item.SourcePlayer != seat {
			candidates = append(candidates, PlayerAction{Type: ActionRespond, Seat: seat, StackItemID: item.ID, Response: ResponseCounter})
		}
	}
	if gs.Phase == rules.PhaseAction && gs.Stack.IsEmpty() && gs.ActivePlayer == seat {
		candidates = append(candidates, PlayerAction{Type: ActionEndTurn, Seat: seat})
		if gs.Players[seat].HasAttackToken {
			targets := gs.Battlefield.ValidTargets(seat)
			for _, a := range gs.Battlefield.Attackable(seat) {
				if targets.CanAttackNexus {
					candidates = append(candidates, PlayerAction{Type: ActionDeclareAttack, Seat: seat, AttackerID: a.ID, TargetType: AttackNexus})
				}
				for _, d := range targets.Units {
					candidates = append(candidates, PlayerAction{Type: ActionDeclareAttack, Seat: seat, AttackerID: a.ID, TargetType: AttackUnit, TargetID: d.ID})
				}
			}
		}
	}
	return e.filterLegal(gs, candidates)
}

// filterLegal keeps the candidates Apply accepts. Probes draw ids from a
// private generator so the engine's own sequence is untouched.
func (e *Engine) filterLegal(gs state.GameState, candidates []PlayerAction) []PlayerAction {
	probe := *e
	n := 0
	probe.newID = func() string {
		n++
		return fmt.Sprintf("probe-%d", n)
	}
	probe.logger = zap.NewNop()
	var out []PlayerAction
	for _, a := range candidates {
		if _, _, err := probe.Apply(gs, a); err == nil {
			out = append(out, a)
		}
	}
	return out
}
