package game

import (
	"github.com/emberline/duelcore/internal/game/ability"
	"github.com/emberline/duelcore/internal/game/counters"
	"github.com/emberline/duelcore/internal/game/effects"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// declareAttack starts combat: the attack token holder sends one ready unit
// at a defending unit or the nexus.
func (t *turn) declareAttack(action PlayerAction) error {
	gs := t.gs
	if gs.Phase != rules.PhaseAction {
		return reject(CodeWrongPhase, "declare_attack in %s", gs.Phase)
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
	p := gs.Player(action.Seat)
	if !p.HasAttackToken {
		return reject(CodeNoAttackToken, "seat %d has no attack token", action.Seat)
	}

	var ready bool
	for _, u := range gs.Battlefield.Attackable(action.Seat) {
		if u.ID == action.AttackerID {
			ready = true
			break
		}
	}
	if !ready {
		return reject(CodeCannotAttack, "unit %s cannot attack", action.AttackerID)
	}

	targets := gs.Battlefield.ValidTargets(action.Seat)
	combat := &state.Combat{AttackerID: action.AttackerID, AttackerSeat: action.Seat}
	switch action.TargetType {
	case AttackNexus:
		if !targets.CanAttackNexus {
			return reject(CodeInvalidTarget, "a defender has taunt")
		}
	case AttackUnit:
		if !targets.Allows(action.TargetID) {
			return reject(CodeInvalidTarget, "unit %s cannot be attacked", action.TargetID)
		}
		combat.TargetID = action.TargetID
	default:
		return reject(CodeInvalidTarget, "unknown attack target type %q", action.TargetType)
	}

	attacker, _, _ := gs.Battlefield.Find(action.AttackerID)
	attacker.Counters.Add(counters.AttacksThisTurn, 1)
	p.HasAttackToken = false
	gs.Combat = combat
	t.emit(rules.NewEvent(rules.EventAttackDeclared, action.Seat, attacker.ID, combat.TargetID))

	if err := t.enter(rules.PhaseAttackDeclaration); err != nil {
		return err
	}
	if ab := t.e.abilityOf(attacker); ab.Trigger == ability.TriggerOnAttack && !ab.Empty() {
		if _, err := t.push(pending{
			kind:     rules.StackItemKindTriggered,
			ability:  ab,
			seat:     action.Seat,
			source:   attacker,
			priority: rules.PriorityNormal,
		}); err != nil {
			return err
		}
	}
	t.act()
	return nil
}

// resolveCombat exchanges damage for the declared attack. An attacker that
// left play deals nothing; a unit target that left play takes nothing.
func (t *turn) resolveCombat() {
	gs := t.gs
	c := gs.Combat
	gs.Combat = nil
	if c == nil {
		return
	}
	defSeat := rules.Other(c.AttackerSeat)
	attacker, _, ok := gs.Battlefield.Find(c.AttackerID)
	if !ok {
		evt := rules.NewEvent(rules.EventCombatResolved, c.AttackerSeat, c.AttackerID, c.TargetID)
		evt.Data = "attacker gone"
		t.emit(evt)
		return
	}

	var dealt int
	if c.AttacksNexus() {
		n, evts := effects.DamageTarget(gs, nil, defSeat, attacker.Attack(), attacker.ID)
		dealt = n
		t.emit(evts...)
	} else if defender, _, found := gs.Battlefield.Find(c.TargetID); found {
		atk, def := attacker.Attack(), defender.Attack()
		n, evts := effects.DamageTarget(gs, defender, defSeat, atk, attacker.ID)
		dealt = n
		t.emit(evts...)
		back, evts := effects.DamageTarget(gs, attacker, c.AttackerSeat, def, defender.ID)
		t.emit(evts...)
		if defender.HasKeyword(effects.KeywordLifesteal) && back > 0 {
			t.emit(effects.HealPlayer(gs, defSeat, back, defender.ID)...)
		}
	}
	if attacker.HasKeyword(effects.KeywordLifesteal) && dealt > 0 {
		t.emit(effects.HealPlayer(gs, c.AttackerSeat, dealt, attacker.ID)...)
	}
	t.emit(rules.NewEventWithAmount(rules.EventCombatResolved, c.AttackerSeat, c.AttackerID, c.TargetID, dealt))
	t.checkState()
}
