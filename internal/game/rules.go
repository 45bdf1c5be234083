package game

// Rules holds the tunable match constants.
type Rules struct {
	BoardSize      int `json:"board_size"`
	StartingHealth int `json:"starting_health"`
	MaxMana        int `json:"max_mana"`
	MaxSpellMana   int `json:"max_spell_mana"`
	StartingHand   int `json:"starting_hand"`
	MaxHandSize    int `json:"max_hand_size"`
	CounterCost    int `json:"counter_cost"`
	// ActionHistory bounds the applied action ids kept for duplicate detection.
	ActionHistory int `json:"action_history"`
	// RoundOneMana is the mana gem count in round one; each round adds one.
	RoundOneMana int `json:"round_one_mana"`
}

// DefaultRules returns the standard constants.
func DefaultRules() Rules {
	return Rules{
		BoardSize:      6,
		StartingHealth: 20,
		MaxMana:        10,
		MaxSpellMana:   3,
		StartingHand:   4,
		MaxHandSize:    10,
		CounterCost:    3,
		ActionHistory:  256,
		RoundOneMana:   1,
	}
}

// manaGems returns the mana gems available in round.
func (r Rules) manaGems(round int) int {
	return min(r.RoundOneMana+round-1, r.MaxMana)
}
