package rules

// LegalityChecker validates stack items before resolution.
type LegalityChecker struct {
	state StateAccessor
}

// StateAccessor provides the match facts legality checks need.
type StateAccessor interface {
	// FindPlayer returns player info by seat.
	FindPlayer(seat int) (PlayerInfo, bool)
	// FindUnit returns info on a unit that is on the battlefield.
	FindUnit(instanceID string) (UnitInfo, bool)
	// IsPlayerTarget reports whether id names a player.
	IsPlayerTarget(id string) bool
}

// UnitInfo provides information about a battlefield unit.
type UnitInfo struct {
	ID   string
	Seat int
	Slot int
}

// PlayerInfo provides information about a player.
type PlayerInfo struct {
	PlayerID string
	Seat     int
	Health   int
	Lost     bool
	Left     bool
}

// LegalityResult represents the result of a legality check.
type LegalityResult struct {
	Legal   bool
	Reason  string
	Details map[string]string
}

// NewLegalityChecker creates a new legality checker.
func NewLegalityChecker(state StateAccessor) *LegalityChecker {
	return &LegalityChecker{state: state}
}

// CheckStackItemLegality validates a stack item before resolution. An item
// fizzles when its controller is gone or its chosen target left play.
// Triggered abilities resolve even after their source died.
func (lc *LegalityChecker) CheckStackItemLegality(item StackItem) LegalityResult {
	if lc == nil || lc.state == nil {
		return LegalityResult{Legal: true, Reason: "Legality checker not initialized"}
	}

	player, found := lc.state.FindPlayer(item.SourcePlayer)
	if !found {
		return LegalityResult{
			Legal:  false,
			Reason: "Controller not found",
			Details: map[string]string{
				"item_id": item.ID,
			},
		}
	}
	if player.Lost || player.Left {
		return LegalityResult{
			Legal:  false,
			Reason: "Controller has left or lost the game",
			Details: map[string]string{
				"controller_id": player.PlayerID,
			},
		}
	}

	if item.TargetID != "" && !lc.state.IsPlayerTarget(item.TargetID) {
		if _, ok := lc.state.FindUnit(item.TargetID); !ok {
			return LegalityResult{
				Legal:  false,
				Reason: "Target no longer on the battlefield",
				Details: map[string]string{
					"target_id": item.TargetID,
				},
			}
		}
	}

	return LegalityResult{Legal: true, Reason: "All legality checks passed"}
}
