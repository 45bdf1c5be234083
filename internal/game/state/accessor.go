package state

import (
	"github.com/emberline/duelcore/internal/game/rules"
	"github.com/emberline/duelcore/internal/game/targeting"
)

// FindPlayer implements rules.StateAccessor.
func (gs *GameState) FindPlayer(seat int) (rules.PlayerInfo, bool) {
	if seat < 0 || seat >= len(gs.Players) {
		return rules.PlayerInfo{}, false
	}
	p := gs.Players[seat]
	return rules.PlayerInfo{
		PlayerID: p.ID,
		Seat:     seat,
		Health:   p.Health,
		Lost:     gs.Over && gs.Winner != seat,
		Left:     p.Left,
	}, true
}

// FindUnit implements rules.StateAccessor.
func (gs *GameState) FindUnit(id string) (rules.UnitInfo, bool) {
	pos, ok := gs.Battlefield.FindPosition(id)
	if !ok {
		return rules.UnitInfo{}, false
	}
	return rules.UnitInfo{ID: id, Seat: pos.Seat, Slot: pos.Slot}, true
}

// IsPlayerTarget implements rules.StateAccessor.
func (gs *GameState) IsPlayerTarget(id string) bool {
	_, ok := gs.SeatOf(id)
	return ok
}

// FindUnitForTarget implements targeting.StateAccessor.
func (gs *GameState) FindUnitForTarget(id string) (targeting.UnitInfo, bool) {
	pos, ok := gs.Battlefield.FindPosition(id)
	if !ok {
		return targeting.UnitInfo{}, false
	}
	return targeting.UnitInfo{ID: id, Seat: pos.Seat}, true
}

// FindPlayerForTarget implements targeting.StateAccessor.
func (gs *GameState) FindPlayerForTarget(id string) (targeting.PlayerInfo, bool) {
	seat, ok := gs.SeatOf(id)
	if !ok {
		return targeting.PlayerInfo{}, false
	}
	return targeting.PlayerInfo{ID: id, Seat: seat, Lost: gs.Players[seat].Health <= 0}, true
}

// TargetableUnits implements targeting.StateAccessor.
func (gs *GameState) TargetableUnits() []targeting.UnitInfo {
	var out []targeting.UnitInfo
	for seat := range gs.Players {
		for _, c := range gs.Battlefield.Units(seat) {
			out = append(out, targeting.UnitInfo{ID: c.ID, Seat: seat})
		}
	}
	return out
}

// TargetablePlayers implements targeting.StateAccessor.
func (gs *GameState) TargetablePlayers() []targeting.PlayerInfo {
	out := make([]targeting.PlayerInfo, 0, len(gs.Players))
	for seat, p := range gs.Players {
		out = append(out, targeting.PlayerInfo{ID: p.ID, Seat: seat, Lost: p.Health <= 0})
	}
	return out
}

var (
	_ rules.StateAccessor     = (*GameState)(nil)
	_ targeting.StateAccessor = (*GameState)(nil)
)
