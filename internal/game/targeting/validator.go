package targeting

import (
	"errors"
	"fmt"

	"github.com/emberline/duelcore/internal/game/ability"
)

// ErrInvalidTarget is returned when a chosen target does not satisfy the
// requirement.
var ErrInvalidTarget = errors.New("invalid target")

// StateAccessor provides the entities a target may refer to.
type StateAccessor interface {
	// FindUnitForTarget returns a battlefield unit by instance id.
	FindUnitForTarget(id string) (UnitInfo, bool)
	// FindPlayerForTarget returns a player by player id.
	FindPlayerForTarget(id string) (PlayerInfo, bool)
	// TargetableUnits lists battlefield units, seat 0 first.
	TargetableUnits() []UnitInfo
	// TargetablePlayers lists players in seat order.
	TargetablePlayers() []PlayerInfo
}

// UnitInfo describes a unit for target validation.
type UnitInfo struct {
	ID   string
	Seat int
}

// PlayerInfo describes a player for target validation.
type PlayerInfo struct {
	ID   string
	Seat int
	Lost bool
}

// Validator validates that selected targets are legal.
type Validator struct {
	state StateAccessor
}

// NewValidator creates a new target validator.
func NewValidator(state StateAccessor) *Validator {
	return &Validator{state: state}
}

// ValidateTarget checks targetID against the requirement from the point of
// view of the controlling seat.
func (v *Validator) ValidateTarget(targetID string, req Requirement, controller int) error {
	if v == nil || v.state == nil {
		return fmt.Errorf("target validator not initialized")
	}

	if player, ok := v.state.FindPlayerForTarget(targetID); ok {
		if !req.AllowsPlayers() {
			return fmt.Errorf("%w: %s is a player but %s", ErrInvalidTarget, targetID, req.Description)
		}
		if player.Lost {
			return fmt.Errorf("%w: player %s has lost", ErrInvalidTarget, targetID)
		}
		if req.enemyOnly() && player.Seat == controller {
			return fmt.Errorf("%w: %s is not an enemy", ErrInvalidTarget, targetID)
		}
		return nil
	}

	unit, ok := v.state.FindUnitForTarget(targetID)
	if !ok {
		return fmt.Errorf("%w: %s not found", ErrInvalidTarget, targetID)
	}
	switch {
	case req.Filter == ability.FilterFriendlyUnit && unit.Seat != controller:
		return fmt.Errorf("%w: %s is not a friendly unit", ErrInvalidTarget, targetID)
	case req.enemyOnly() && unit.Seat == controller:
		return fmt.Errorf("%w: %s is not an enemy unit", ErrInvalidTarget, targetID)
	}
	return nil
}

// ValidateSelection validates a complete selection.
func (v *Validator) ValidateSelection(sel *Selection, controller int) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	return v.ValidateTarget(sel.TargetID, sel.Requirement, controller)
}

// Candidates returns every target id satisfying req, units before players.
func (v *Validator) Candidates(req Requirement, controller int) []string {
	if v == nil || v.state == nil {
		return nil
	}
	var out []string
	for _, u := range v.state.TargetableUnits() {
		if v.ValidateTarget(u.ID, req, controller) == nil {
			out = append(out, u.ID)
		}
	}
	if req.AllowsPlayers() {
		for _, p := range v.state.TargetablePlayers() {
			if v.ValidateTarget(p.ID, req, controller) == nil {
				out = append(out, p.ID)
			}
		}
	}
	return out
}
