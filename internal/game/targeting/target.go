package targeting

import (
	"fmt"

	"github.com/emberline/duelcore/internal/game/ability"
)

// Requirement describes the externally chosen target an ability needs.
type Requirement struct {
	// Filter narrows which entities qualify.
	Filter ability.TargetFilter `json:"filter"`
	// Description is a human-readable prompt for the selecting player.
	Description string `json:"description"`
}

var filterDescriptions = map[ability.TargetFilter]string{
	ability.FilterNone:           "choose a unit or player",
	ability.FilterAnyUnit:        "choose a unit",
	ability.FilterFriendlyUnit:   "choose a friendly unit",
	ability.FilterEnemyUnit:      "choose an enemy unit",
	ability.FilterAnyCharacter:   "choose a unit or player",
	ability.FilterEnemyCharacter: "choose an enemy unit or the enemy player",
}

// RequirementFor returns the requirement of the first any_target action. All
// any_target actions in one ability share the single selection.
func RequirementFor(ab ability.ParsedAbility) (Requirement, bool) {
	for _, a := range ab.Actions {
		if a.Target == ability.TargetAny {
			return Requirement{Filter: a.Filter, Description: filterDescriptions[a.Filter]}, true
		}
	}
	return Requirement{}, false
}

// AllowsPlayers reports whether players may be chosen.
func (r Requirement) AllowsPlayers() bool {
	switch r.Filter {
	case ability.FilterNone, ability.FilterAnyCharacter, ability.FilterEnemyCharacter:
		return true
	}
	return false
}

// enemyOnly reports whether only the opponent's side qualifies.
func (r Requirement) enemyOnly() bool {
	return r.Filter == ability.FilterEnemyUnit || r.Filter == ability.FilterEnemyCharacter
}

// Selection is a player's choice for a requirement.
type Selection struct {
	TargetID    string      `json:"target_id"`
	Requirement Requirement `json:"requirement"`
}

// IsComplete reports whether a target was chosen.
func (s *Selection) IsComplete() bool {
	return s != nil && s.TargetID != ""
}

// Validate checks that a target was chosen.
func (s *Selection) Validate() error {
	if s == nil {
		return fmt.Errorf("target selection is nil")
	}
	if s.TargetID == "" {
		return fmt.Errorf("no target chosen: %s", s.Requirement.Description)
	}
	return nil
}
