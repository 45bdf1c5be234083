package rules

import (
	"errors"
	"fmt"
)

// Phase is a state of the match phase machine.
type Phase string

const (
	PhaseMulligan           Phase = "mulligan"
	PhaseRoundStart         Phase = "round_start"
	PhaseAction             Phase = "action"
	PhaseAttackDeclaration  Phase = "attack_declaration"
	PhaseDefenseDeclaration Phase = "defense_declaration"
	PhaseCombatResolution   Phase = "combat_resolution"
	PhaseEndRound           Phase = "end_round"
)

// ErrIllegalTransition is returned for a phase change absent from the
// adjacency table.
var ErrIllegalTransition = errors.New("illegal phase transition")

// transitions is the fixed adjacency table. The first entry of each list is
// the phase reached when both players pass on an empty stack.
var transitions = map[Phase][]Phase{
	PhaseMulligan:           {PhaseRoundStart},
	PhaseRoundStart:         {PhaseAction},
	PhaseAction:             {PhaseEndRound, PhaseAttackDeclaration},
	PhaseAttackDeclaration:  {PhaseDefenseDeclaration, PhaseAction},
	PhaseDefenseDeclaration: {PhaseCombatResolution},
	PhaseCombatResolution:   {PhaseAction},
	PhaseEndRound:           {PhaseRoundStart},
}

// Phases lists every phase in table order.
func Phases() []Phase {
	return []Phase{
		PhaseMulligan, PhaseRoundStart, PhaseAction, PhaseAttackDeclaration,
		PhaseDefenseDeclaration, PhaseCombatResolution, PhaseEndRound,
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}

// CanTransition reports whether from → to is in the adjacency table.
func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrIllegalTransition when from → to is not allowed.
func CheckTransition(from, to Phase) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// Successors returns the phases reachable from p.
func Successors(p Phase) []Phase {
	out := make([]Phase, len(transitions[p]))
	copy(out, transitions[p])
	return out
}

// DefaultNext is the phase entered when priority passes out of p.
func DefaultNext(p Phase) (Phase, bool) {
	next := transitions[p]
	if len(next) == 0 {
		return "", false
	}
	return next[0], true
}

// Automatic reports whether the machine leaves p without waiting for
// players: bookkeeping phases run and advance on entry.
func (p Phase) Automatic() bool {
	switch p {
	case PhaseRoundStart, PhaseEndRound, PhaseCombatResolution:
		return true
	}
	return false
}

// HasPriority reports whether players exchange priority in p.
func (p Phase) HasPriority() bool {
	switch p {
	case PhaseAction, PhaseAttackDeclaration, PhaseDefenseDeclaration:
		return true
	}
	return false
}

// PassOutcome is what a pass leads to.
type PassOutcome int

const (
	// PassContinue hands priority to the other player.
	PassContinue PassOutcome = iota
	// PassResolve resolves the top stack item.
	PassResolve
	// PassAdvance advances the phase.
	PassAdvance
)

func (o PassOutcome) String() string {
	switch o {
	case PassResolve:
		return "resolve"
	case PassAdvance:
		return "advance"
	}
	return "continue"
}

// Priority is the holder and consecutive pass count.
type Priority struct {
	Holder int `json:"holder"`
	Passes int `json:"passes"`
}

// Other returns the opposing seat.
func Other(seat int) int { return 1 - seat }

// Pass records a pass by the holder. Two consecutive passes resolve the top
// stack item when the stack is non-empty and advance the phase otherwise.
func (p Priority) Pass(stackEmpty bool) (Priority, PassOutcome) {
	p.Passes++
	p.Holder = Other(p.Holder)
	if p.Passes < 2 {
		return p, PassContinue
	}
	if stackEmpty {
		return p, PassAdvance
	}
	return p, PassResolve
}

// Act records a game action by the holder: passes clear and priority moves
// to the opponent.
func (p Priority) Act() Priority {
	return Priority{Holder: Other(p.Holder), Passes: 0}
}

// Reset returns priority to the active player with no passes.
func Reset(active int) Priority {
	return Priority{Holder: active}
}
