package game

import (
	"errors"
	"fmt"

	"github.com/emberline/duelcore/internal/game/ability"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/effects"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/targeting"
)

// pending describes an ability invocation about to be pushed.
type pending struct {
	kind        rules.StackItemKind
	ability     ability.ParsedAbility
	seat        int
	source      *cards.Instance
	priority    int
	counterable bool
	targetID    string
}

// push puts an ability on the stack. An any_target ability either uses the
// supplied target, which must be valid, or waits for select_target. A
// triggered ability with no legal target at all fizzles instead of waiting.
func (t *turn) push(p pending) (rules.StackItem, error) {
	item := rules.StackItem{
		ID:             t.e.newID(),
		Kind:           p.kind,
		Ability:        p.ability,
		SourcePlayer:   p.seat,
		Priority:       p.priority,
		CreatedAt:      t.e.now(),
		CanBeCountered: p.counterable,
	}
	if p.source != nil {
		item.SourceCard = p.source.ID
		item.TemplateID = p.source.TemplateID
		item.Reversed = p.source.Reversed
		item.Description = fmt.Sprintf("%s (%s)", p.source.Name, p.ability.Trigger)
	}

	req, needsTarget := targeting.RequirementFor(p.ability)
	if needsTarget {
		validator := targeting.NewValidator(t.gs)
		switch {
		case p.targetID != "":
			if err := validator.ValidateTarget(p.targetID, req, p.seat); err != nil {
				return rules.StackItem{}, reject(CodeInvalidTarget, "%v", err)
			}
			item.TargetID = p.targetID
		case p.kind == rules.StackItemKindTriggered && len(validator.Candidates(req, p.seat)) == 0:
			evt := rules.NewEvent(rules.EventStackItemFizzled, p.seat, item.SourceCard, "")
			evt.StackItemID = item.ID
			evt.Data = "no legal target"
			t.emit(evt)
			return item, nil
		default:
			item.AwaitingTarget = true
		}
	}

	item = t.gs.Stack.Push(item)
	evt := rules.NewEventWithAmount(rules.EventStackItemPushed, p.seat, item.SourceCard, item.TargetID, item.Priority)
	evt.StackItemID = item.ID
	evt.Data = string(item.Kind)
	t.emit(evt)
	if item.AwaitingTarget {
		prompt := rules.NewEvent(rules.EventTargetRequested, p.seat, item.SourceCard, "")
		prompt.StackItemID = item.ID
		prompt.Data = req.Description
		t.emit(prompt)
	}
	return item, nil
}

// fireTurnTriggers pushes the turn-timed abilities of seat's units in slot
// order.
func (t *turn) fireTurnTriggers(seat int, trigger ability.Trigger) {
	for _, u := range t.gs.Battlefield.Units(seat) {
		ab := t.e.abilityOf(u)
		if ab.Trigger != trigger || ab.Empty() {
			continue
		}
		// Triggered items never carry an explicit target, so push cannot reject.
		_, _ = t.push(pending{
			kind:     rules.StackItemKindTriggered,
			ability:  ab,
			seat:     seat,
			source:   u,
			priority: rules.PriorityNormal,
		})
	}
}

// resolveTop pops the next item, checks it is still legal and runs its
// actions in order. State-based checks follow.
func (t *turn) resolveTop() error {
	item, err := t.gs.Stack.Pop()
	if err != nil {
		return err
	}
	if res := rules.NewLegalityChecker(t.gs).CheckStackItemLegality(item); !res.Legal {
		evt := rules.NewEvent(rules.EventStackItemFizzled, item.SourcePlayer, item.SourceCard, item.TargetID)
		evt.StackItemID = item.ID
		evt.Data = res.Reason
		t.emit(evt)
		t.checkState()
		return nil
	}

	start := rules.NewEvent(rules.EventStackItemResolving, item.SourcePlayer, item.SourceCard, item.TargetID)
	start.StackItemID = item.ID
	t.emit(start)

	ctx := effects.Context{
		SourcePlayer: item.SourcePlayer,
		SourceCard:   item.SourceCard,
		TargetID:     item.TargetID,
		Templates:    t.e.templates,
		NewID:        t.e.newID,
	}
	for i, a := range item.Ability.Actions {
		evts, err := t.e.exec.ApplyInPlace(t.gs, a, ctx)
		if err != nil {
			if errors.Is(err, effects.ErrMissingTargetSelection) {
				return fmt.Errorf("stack item %s resolved without a target: %w", item.ID, err)
			}
			return fmt.Errorf("stack item %s action %d (%s): %w", item.ID, i, a.Kind, err)
		}
		for j := range evts {
			evts[j].StackItemID = item.ID
		}
		t.emit(evts...)
	}

	done := rules.NewEventWithAmount(rules.EventStackItemResolved, item.SourcePlayer, item.SourceCard, item.TargetID, len(item.Ability.Actions))
	done.StackItemID = item.ID
	t.emit(done)
	t.checkState()
	return nil
}

// playCard pays for a card from hand and puts it into play. Units take a
// slot and push their on_play ability; spells push their ability and go to
// the graveyard.
func (t *turn) playCard(action PlayerAction) error {
	gs := t.gs
	if err := t.requirePriority(action.Seat); err != nil {
		return err
	}
	p := gs.Player(action.Seat)
	idx := p.HandIndex(action.CardID)
	if idx < 0 {
		return reject(CodeCardNotInHand, "card %s", action.CardID)
	}
	inst := p.Hand[idx]
	spell := inst.Type == cards.TypeSpell

	slot := -1
	if !spell {
		if gs.Phase != rules.PhaseAction {
			return reject(CodeWrongPhase, "units are played in the action phase, not %s", gs.Phase)
		}
		if gs.ActivePlayer != action.Seat {
			return reject(CodeNotActivePlayer, "seat %d is not active", action.Seat)
		}
		if !gs.Stack.IsEmpty() {
			return reject(CodeStackNotEmpty, "%d pending items", gs.Stack.Len())
		}
		var err error
		if slot, err = t.chooseSlot(action); err != nil {
			return err
		}
	}
	if !p.Mana.CanPay(inst.Cost, spell) {
		return reject(CodeInsufficientMana, "cost %d, pool %s", inst.Cost, p.Mana)
	}

	paid, err := p.Mana.Pay(inst.Cost, spell)
	if err != nil {
		return reject(CodeInsufficientMana, "%v", err)
	}
	p.Mana = paid
	p.Hand = append(p.Hand[:idx:idx], p.Hand[idx+1:]...)
	inst.Reversed = action.Reversed
	if inst.Cost > 0 {
		t.emit(rules.NewEventWithAmount(rules.EventManaSpent, action.Seat, inst.ID, p.ID, inst.Cost))
	}
	played := rules.NewEvent(rules.EventCardPlayed, action.Seat, inst.ID, action.TargetID)
	played.Data = inst.TemplateID
	t.emit(played)

	ab := t.e.abilityOf(inst)
	if spell {
		p.Graveyard = append(p.Graveyard, inst)
		if !ab.Empty() {
			if _, err := t.push(pending{
				kind:        rules.StackItemKindSpell,
				ability:     ab,
				seat:        action.Seat,
				source:      inst,
				priority:    rules.PriorityNormal,
				counterable: true,
				targetID:    action.TargetID,
			}); err != nil {
				return err
			}
		}
		t.act()
		return nil
	}

	inst.SummoningSick = !inst.HasKeyword(effects.KeywordCharge) && !inst.HasKeyword(effects.KeywordRush)
	bf, err := gs.Battlefield.PlaceUnit(inst, action.Seat, slot)
	if err != nil {
		return reject(CodeSlotOccupied, "%v", err)
	}
	gs.Battlefield = bf
	t.emit(rules.NewEvent(rules.EventUnitSummoned, action.Seat, inst.ID, inst.ID))

	switch {
	case ab.Trigger == ability.TriggerPassive:
		if err := t.applyPassive(inst, ab, action.Seat); err != nil {
			return err
		}
	case ab.Trigger == ability.TriggerOnPlay && !ab.Empty():
		if _, err := t.push(pending{
			kind:        rules.StackItemKindTriggered,
			ability:     ab,
			seat:        action.Seat,
			source:      inst,
			priority:    rules.PriorityNormal,
			counterable: true,
			targetID:    action.TargetID,
		}); err != nil {
			return err
		}
	}
	t.act()
	return nil
}

func (t *turn) chooseSlot(action PlayerAction) (int, error) {
	bf := t.gs.Battlefield
	if action.Slot == nil {
		slot, ok := bf.FirstFreeSlot(action.Seat)
		if !ok {
			return 0, reject(CodeBoardFull, "seat %d has no free slot", action.Seat)
		}
		return slot, nil
	}
	slot := *action.Slot
	if slot < 0 || slot >= bf.Size {
		return 0, reject(CodeSlotOccupied, "slot %d out of range", slot)
	}
	if bf.At(action.Seat, slot) != nil {
		return 0, reject(CodeSlotOccupied, "slot %d is occupied", slot)
	}
	return slot, nil
}

// applyPassive applies a passive ability to its unit immediately.
func (t *turn) applyPassive(inst *cards.Instance, ab ability.ParsedAbility, seat int) error {
	ctx := effects.Context{SourcePlayer: seat, SourceCard: inst.ID, Templates: t.e.templates, NewID: t.e.newID}
	for _, a := range ab.Actions {
		evts, err := t.e.exec.ApplyInPlace(t.gs, a, ctx)
		if err != nil {
			return fmt.Errorf("passive ability of %s: %w", inst.ID, err)
		}
		t.emit(evts...)
	}
	return nil
}

// respond counters an opposing stack item.
func (t *turn) respond(action PlayerAction) error {
	gs := t.gs
	if err := t.requirePriority(action.Seat); err != nil {
		return err
	}
	if action.Response != ResponseCounter {
		return reject(CodeUnknownAction, "unknown response %q", action.Response)
	}
	item, ok := gs.Stack.Find(action.StackItemID)
	if !ok {
		return reject(CodeUnknownStackItem, "stack item %s", action.StackItemID)
	}
	if item.SourcePlayer == action.Seat {
		return reject(CodeNotCounterable, "cannot counter own item %s", item.ID)
	}
	if !item.CanBeCountered {
		return reject(CodeNotCounterable, "stack item %s cannot be countered", item.ID)
	}
	p := gs.Player(action.Seat)
	paid, err := p.Mana.PayAny(t.e.rules.CounterCost)
	if err != nil {
		return reject(CodeInsufficientMana, "%v", err)
	}
	p.Mana = paid
	gs.Stack.Remove(item.ID)
	if t.e.rules.CounterCost > 0 {
		t.emit(rules.NewEventWithAmount(rules.EventManaSpent, action.Seat, "", p.ID, t.e.rules.CounterCost))
	}
	evt := rules.NewEvent(rules.EventStackItemCountered, action.Seat, item.SourceCard, "")
	evt.StackItemID = item.ID
	t.emit(evt)
	t.act()
	return nil
}

// awaitingItem returns the stack item a target action refers to.
func (t *turn) awaitingItem(action PlayerAction) (rules.StackItem, error) {
	item, ok := t.gs.Stack.Find(action.StackItemID)
	if !ok {
		return rules.StackItem{}, reject(CodeUnknownStackItem, "stack item %s", action.StackItemID)
	}
	if !item.AwaitingTarget {
		return rules.StackItem{}, reject(CodeUnknownStackItem, "stack item %s is not awaiting a target", item.ID)
	}
	if item.SourcePlayer != action.Seat {
		return rules.StackItem{}, reject(CodeNoPriority, "seat %d does not control %s", action.Seat, item.ID)
	}
	return item, nil
}

// selectTarget completes a pending any_target selection.
func (t *turn) selectTarget(action PlayerAction) error {
	item, err := t.awaitingItem(action)
	if err != nil {
		return err
	}
	req, _ := targeting.RequirementFor(item.Ability)
	if err := targeting.NewValidator(t.gs).ValidateTarget(action.TargetID, req, action.Seat); err != nil {
		return reject(CodeInvalidTarget, "%v", err)
	}
	item.TargetID = action.TargetID
	item.AwaitingTarget = false
	t.gs.Stack.Update(item)
	evt := rules.NewEvent(rules.EventTargetSelected, action.Seat, item.SourceCard, item.TargetID)
	evt.StackItemID = item.ID
	t.emit(evt)
	return t.settle()
}

// cancelTarget discards an item whose target was never chosen.
func (t *turn) cancelTarget(action PlayerAction) error {
	item, err := t.awaitingItem(action)
	if err != nil {
		return err
	}
	t.gs.Stack.Remove(item.ID)
	evt := rules.NewEvent(rules.EventTargetCancelled, action.Seat, item.SourceCard, "")
	evt.StackItemID = item.ID
	t.emit(evt)
	return t.settle()
}
