package effects

import (
	"github.com/emberline/duelcore/internal/game/counters"
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/state"
)

// ExpireStatuses runs the end-of-turn cleanup for every unit on the
// battlefield: expiring statuses tick down and per-turn counters clear.
func ExpireStatuses(gs *state.GameState) []rules.Event {
	var events []rules.Event
	for seat := range gs.Battlefield.Slots {
		for _, u := range gs.Battlefield.Units(seat) {
			for _, name := range u.TickStatuses() {
				evt := rules.NewEvent(rules.EventStatusExpired, seat, "", u.ID)
				evt.Data = name
				events = append(events, evt)
			}
			u.Counters.Clear(counters.AttacksThisTurn)
			u.Counters.Clear(counters.DamageTakenThisTurn)
		}
	}
	return events
}
