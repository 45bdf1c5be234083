package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseAdjacency(t *testing.T) {
	legal := [][2]Phase{
		{PhaseMulligan, PhaseRoundStart},
		{PhaseRoundStart, PhaseAction},
		{PhaseAction, PhaseAttackDeclaration},
		{PhaseAction, PhaseEndRound},
		{PhaseAttackDeclaration, PhaseDefenseDeclaration},
		{PhaseAttackDeclaration, PhaseAction},
		{PhaseDefenseDeclaration, PhaseCombatResolution},
		{PhaseCombatResolution, PhaseAction},
		{PhaseEndRound, PhaseRoundStart},
	}
	for _, pair := range legal {
		assert.NoError(t, CheckTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	illegal := [][2]Phase{
		{PhaseMulligan, PhaseAction},
		{PhaseAction, PhaseCombatResolution},
		{PhaseEndRound, PhaseAction},
		{PhaseRoundStart, PhaseMulligan},
		{PhaseAction, PhaseAction},
	}
	for _, pair := range illegal {
		err := CheckTransition(pair[0], pair[1])
		assert.True(t, errors.Is(err, ErrIllegalTransition), "%s -> %s", pair[0], pair[1])
	}
}

func TestPhaseProperties(t *testing.T) {
	for _, p := range Phases() {
		assert.True(t, p.Valid())
		_, ok := DefaultNext(p)
		assert.True(t, ok, "%s has a successor", p)
	}
	assert.False(t, Phase("lunch").Valid())

	next, _ := DefaultNext(PhaseAction)
	assert.Equal(t, PhaseEndRound, next)

	assert.True(t, PhaseRoundStart.Automatic())
	assert.False(t, PhaseAction.Automatic())
	assert.True(t, PhaseAction.HasPriority())
	assert.False(t, PhaseMulligan.HasPriority())
	assert.ElementsMatch(t, []Phase{PhaseEndRound, PhaseAttackDeclaration}, Successors(PhaseAction))
}

func TestPriorityPassCycle(t *testing.T) {
	p := Reset(0)

	p, outcome := p.Pass(true)
	assert.Equal(t, PassContinue, outcome)
	assert.Equal(t, 1, p.Holder)

	_, outcome = p.Pass(true)
	assert.Equal(t, PassAdvance, outcome)

	p = Reset(0)
	p, _ = p.Pass(false)
	_, outcome = p.Pass(false)
	assert.Equal(t, PassResolve, outcome)

	p = Reset(0)
	p, _ = p.Pass(true)
	p = p.Act()
	assert.Equal(t, 0, p.Holder)
	assert.Equal(t, 0, p.Passes)
	p, outcome = p.Pass(true)
	assert.Equal(t, PassContinue, outcome, "an action breaks the pass streak")
	assert.Equal(t, "continue", outcome.String())
}
