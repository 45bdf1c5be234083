package state

import (
	"errors"
	"fmt"

	"github.com/emberline/duelcore/internal/game/battlefield"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/mana"
	"github.com/emberline/duelcore/internal/game/rules"
)

// NoWinner is the Winner value while the match is undecided.
const NoWinner = -1

// Player is one seat's resources.
type Player struct {
	ID               string            `json:"id"`
	Seat             int               `json:"seat"`
	Health           int               `json:"health"`
	MaxHealth        int               `json:"max_health"`
	Mana             mana.Pool         `json:"mana"`
	Hand             []*cards.Instance `json:"hand"`
	Deck             []*cards.Instance `json:"deck"`
	Graveyard        []*cards.Instance `json:"graveyard"`
	HasAttackToken   bool              `json:"has_attack_token"`
	MulliganComplete bool              `json:"mulligan_complete"`
	Left             bool              `json:"left,omitempty"`
}

// Clone deep-copies the player.
func (p Player) Clone() Player {
	p.Hand = cloneZone(p.Hand)
	p.Deck = cloneZone(p.Deck)
	p.Graveyard = cloneZone(p.Graveyard)
	return p
}

func cloneZone(zone []*cards.Instance) []*cards.Instance {
	if zone == nil {
		return nil
	}
	out := make([]*cards.Instance, len(zone))
	for i, c := range zone {
		out[i] = c.Clone()
	}
	return out
}

type zone struct {
	name string
	list []*cards.Instance
}

func (p Player) zones() []zone {
	return []zone{{"hand", p.Hand}, {"deck", p.Deck}, {"graveyard", p.Graveyard}}
}

// HandIndex returns the position of an instance in the hand.
func (p Player) HandIndex(id string) int {
	for i, c := range p.Hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Combat records a declared attack until it resolves.
type Combat struct {
	AttackerID   string `json:"attacker_id"`
	AttackerSeat int    `json:"attacker_seat"`
	// TargetID is the attacked unit, empty when the nexus is attacked.
	TargetID string `json:"target_id,omitempty"`
}

// AttacksNexus reports whether the defending player is the target.
func (c Combat) AttacksNexus() bool { return c.TargetID == "" }

// GameState is the complete authoritative match state. Every engine
// operation takes a GameState and returns a new one.
type GameState struct {
	MatchID        string                  `json:"match_id"`
	Round          int                     `json:"round"`
	Turn           int                     `json:"turn"`
	ActivePlayer   int                     `json:"active_player"`
	Phase          rules.Phase             `json:"phase"`
	PriorityPlayer int                     `json:"priority_player"`
	PassCount      int                     `json:"pass_count"`
	Players        [2]Player               `json:"players"`
	Battlefield    battlefield.Battlefield `json:"battlefield"`
	Stack          rules.Stack             `json:"stack"`
	Combat         *Combat                 `json:"combat,omitempty"`
	// AppliedActions holds recently applied action ids, oldest first.
	AppliedActions []string `json:"applied_actions,omitempty"`
	Winner         int      `json:"winner"`
	Over           bool     `json:"over"`
}

// Clone returns a deep copy sharing no mutable memory with gs.
func (gs GameState) Clone() GameState {
	out := gs
	for i := range gs.Players {
		out.Players[i] = gs.Players[i].Clone()
	}
	out.Battlefield = gs.Battlefield.Clone()
	out.Stack = gs.Stack.Clone()
	if gs.Combat != nil {
		c := *gs.Combat
		out.Combat = &c
	}
	if gs.AppliedActions != nil {
		out.AppliedActions = append([]string(nil), gs.AppliedActions...)
	}
	return out
}

// Priority returns the priority holder and pass count.
func (gs GameState) Priority() rules.Priority {
	return rules.Priority{Holder: gs.PriorityPlayer, Passes: gs.PassCount}
}

// SetPriority stores p.
func (gs *GameState) SetPriority(p rules.Priority) {
	gs.PriorityPlayer = p.Holder
	gs.PassCount = p.Passes
}

// Player returns a pointer into gs for seat.
func (gs *GameState) Player(seat int) *Player {
	return &gs.Players[seat]
}

// SeatOf returns the seat of a player id.
func (gs GameState) SeatOf(playerID string) (int, bool) {
	for i, p := range gs.Players {
		if p.ID == playerID {
			return i, true
		}
	}
	return 0, false
}

// HasApplied reports whether an action id is in the recent history.
func (gs GameState) HasApplied(actionID string) bool {
	for _, id := range gs.AppliedActions {
		if id == actionID {
			return true
		}
	}
	return false
}

// RecordApplied appends an action id, keeping at most limit entries.
func (gs *GameState) RecordApplied(actionID string, limit int) {
	if actionID == "" {
		return
	}
	gs.AppliedActions = append(gs.AppliedActions, actionID)
	if limit > 0 && len(gs.AppliedActions) > limit {
		gs.AppliedActions = append([]string(nil), gs.AppliedActions[len(gs.AppliedActions)-limit:]...)
	}
}

// FindCard locates an instance in any zone. Zone is "battlefield", "hand",
// "deck" or "graveyard".
func (gs GameState) FindCard(id string) (*cards.Instance, int, string, bool) {
	if c, pos, ok := gs.Battlefield.Find(id); ok {
		return c, pos.Seat, "battlefield", true
	}
	for seat, p := range gs.Players {
		for _, z := range p.zones() {
			for _, c := range z.list {
				if c.ID == id {
					return c, seat, z.name, true
				}
			}
		}
	}
	return nil, 0, "", false
}

var errInvalidState = errors.New("invalid game state")

// Validate checks structural invariants. A failure indicates a caller defect.
func (gs GameState) Validate() error {
	if !gs.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", errInvalidState, gs.Phase)
	}
	for _, seat := range []int{gs.ActivePlayer, gs.PriorityPlayer} {
		if seat < 0 || seat > 1 {
			return fmt.Errorf("%w: seat %d out of range", errInvalidState, seat)
		}
	}
	if gs.PassCount < 0 || gs.PassCount > 2 {
		return fmt.Errorf("%w: pass count %d", errInvalidState, gs.PassCount)
	}
	for s := range gs.Battlefield.Slots {
		if len(gs.Battlefield.Slots[s]) != gs.Battlefield.Size {
			return fmt.Errorf("%w: seat %d has %d slots, want %d", errInvalidState, s, len(gs.Battlefield.Slots[s]), gs.Battlefield.Size)
		}
	}

	seen := make(map[string]string)
	mark := func(id, where string) error {
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("%w: instance %s in %s and %s", errInvalidState, id, prev, where)
		}
		seen[id] = where
		return nil
	}
	for s, row := range gs.Battlefield.Slots {
		for i, c := range row {
			if c == nil {
				continue
			}
			if err := mark(c.ID, fmt.Sprintf("slot %d/%d", s, i)); err != nil {
				return err
			}
		}
	}
	for s, p := range gs.Players {
		if p.Seat != s {
			return fmt.Errorf("%w: player %s has seat %d at index %d", errInvalidState, p.ID, p.Seat, s)
		}
		for _, z := range p.zones() {
			for _, c := range z.list {
				if c == nil {
					return fmt.Errorf("%w: nil card in %s of seat %d", errInvalidState, z.name, s)
				}
				if err := mark(c.ID, fmt.Sprintf("%s of seat %d", z.name, s)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
