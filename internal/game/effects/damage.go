package effects

import (
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/rules"
)

// damageReplacement modifies damage about to be dealt to a unit. It returns
// the new amount, any events it produced, and whether the damage was fully
// replaced so that later replacements are skipped.
type damageReplacement struct {
	name    string
	applies func(unit *cards.Instance) bool
	replace func(unit *cards.Instance, seat, amount int, sourceID string) (int, []rules.Event, bool)
}

// damageReplacements run in order; each gets one opportunity per hit.
var damageReplacements = []damageReplacement{
	{
		name:    KeywordBarrier,
		applies: func(u *cards.Instance) bool { return u.HasKeyword(KeywordBarrier) },
		replace: func(u *cards.Instance, seat, amount int, sourceID string) (int, []rules.Event, bool) {
			u.RemoveKeyword(KeywordBarrier)
			evt := rules.NewEventWithAmount(rules.EventBarrierBroken, seat, sourceID, u.ID, amount)
			return 0, []rules.Event{evt}, true
		},
	},
	{
		name:    KeywordTough,
		applies: func(u *cards.Instance) bool { return u.HasKeyword(KeywordTough) },
		replace: func(_ *cards.Instance, _ int, amount int, _ string) (int, []rules.Event, bool) {
			return max(amount-1, 0), nil, false
		},
	},
}

func applyDamageReplacements(unit *cards.Instance, seat, amount int, sourceID string) (int, []rules.Event) {
	var events []rules.Event
	for _, r := range damageReplacements {
		if !r.applies(unit) {
			continue
		}
		var (
			evs  []rules.Event
			done bool
		)
		amount, evs, done = r.replace(unit, seat, amount, sourceID)
		events = append(events, evs...)
		if done || amount <= 0 {
			break
		}
	}
	return amount, events
}
