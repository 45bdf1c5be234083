package battlefield

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/counters"
)

var (
	// ErrSlotOccupied is returned when placing into a non-empty slot.
	ErrSlotOccupied = errors.New("slot occupied")
	// ErrSlotOutOfRange is returned for a seat or slot index outside the grid.
	ErrSlotOutOfRange = errors.New("slot out of range")
	// ErrDuplicateInstance is returned when an instance id is already on the
	// battlefield.
	ErrDuplicateInstance = errors.New("instance already on battlefield")
)

// KeywordTaunt forces attackers to target the unit before the nexus.
const KeywordTaunt = "taunt"

// Seats is the number of players.
const Seats = 2

// Position locates a slot.
type Position struct {
	Seat int `json:"seat"`
	Slot int `json:"slot"`
}

// Battlefield holds one fixed-length slot array per seat. Mutating methods
// return a new Battlefield and leave the receiver's slot arrays untouched.
type Battlefield struct {
	Size  int                      `json:"size"`
	Slots [Seats][]*cards.Instance `json:"slots"`
}

// New creates an empty battlefield with size slots per seat.
func New(size int) Battlefield {
	var b Battlefield
	b.Size = size
	for s := range b.Slots {
		b.Slots[s] = make([]*cards.Instance, size)
	}
	return b
}

// Clone deep-copies the slot arrays and every instance.
func (b Battlefield) Clone() Battlefield {
	out := Battlefield{Size: b.Size}
	for s := range b.Slots {
		out.Slots[s] = make([]*cards.Instance, len(b.Slots[s]))
		for i, c := range b.Slots[s] {
			out.Slots[s][i] = c.Clone()
		}
	}
	return out
}

// copyOnWrite duplicates the slot array of seat so it can be modified.
func (b Battlefield) copyOnWrite(seat int) Battlefield {
	row := make([]*cards.Instance, len(b.Slots[seat]))
	copy(row, b.Slots[seat])
	b.Slots[seat] = row
	return b
}

func (b Battlefield) inRange(seat, slot int) bool {
	return seat >= 0 && seat < Seats && slot >= 0 && slot < len(b.Slots[seat])
}

// At returns the instance in a slot, nil when empty or out of range.
func (b Battlefield) At(seat, slot int) *cards.Instance {
	if !b.inRange(seat, slot) {
		return nil
	}
	return b.Slots[seat][slot]
}

// PlaceUnit puts inst into an empty slot.
func (b Battlefield) PlaceUnit(inst *cards.Instance, seat, slot int) (Battlefield, error) {
	if !b.inRange(seat, slot) {
		return b, fmt.Errorf("%w: seat %d slot %d", ErrSlotOutOfRange, seat, slot)
	}
	if b.Slots[seat][slot] != nil {
		return b, fmt.Errorf("%w: seat %d slot %d", ErrSlotOccupied, seat, slot)
	}
	if _, found := b.FindPosition(inst.ID); found {
		return b, fmt.Errorf("%w: %s", ErrDuplicateInstance, inst.ID)
	}
	out := b.copyOnWrite(seat)
	out.Slots[seat][slot] = inst
	return out, nil
}

// RemoveUnit empties a slot and returns the removed instance, which may be nil.
func (b Battlefield) RemoveUnit(seat, slot int) (Battlefield, *cards.Instance, error) {
	if !b.inRange(seat, slot) {
		return b, nil, fmt.Errorf("%w: seat %d slot %d", ErrSlotOutOfRange, seat, slot)
	}
	removed := b.Slots[seat][slot]
	if removed == nil {
		return b, nil, nil
	}
	out := b.copyOnWrite(seat)
	out.Slots[seat][slot] = nil
	return out, removed, nil
}

// FirstFreeSlot returns the lowest empty slot for seat.
func (b Battlefield) FirstFreeSlot(seat int) (int, bool) {
	if seat < 0 || seat >= Seats {
		return 0, false
	}
	for i, c := range b.Slots[seat] {
		if c == nil {
			return i, true
		}
	}
	return 0, false
}

// FindPosition scans both seats for an instance id.
func (b Battlefield) FindPosition(id string) (Position, bool) {
	for s := range b.Slots {
		for i, c := range b.Slots[s] {
			if c != nil && c.ID == id {
				return Position{Seat: s, Slot: i}, true
			}
		}
	}
	return Position{}, false
}

// Find returns the instance with id and its position.
func (b Battlefield) Find(id string) (*cards.Instance, Position, bool) {
	pos, ok := b.FindPosition(id)
	if !ok {
		return nil, Position{}, false
	}
	return b.Slots[pos.Seat][pos.Slot], pos, true
}

// CompactUnits left-packs seat's units toward slot 0 keeping their order.
func (b Battlefield) CompactUnits(seat int) Battlefield {
	if seat < 0 || seat >= Seats {
		return b
	}
	row := make([]*cards.Instance, len(b.Slots[seat]))
	n := 0
	for _, c := range b.Slots[seat] {
		if c != nil {
			row[n] = c
			n++
		}
	}
	b.Slots[seat] = row
	return b
}

// Units returns seat's occupied slots in slot order.
func (b Battlefield) Units(seat int) []*cards.Instance {
	if seat < 0 || seat >= Seats {
		return nil
	}
	var out []*cards.Instance
	for _, c := range b.Slots[seat] {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// AllUnits returns every unit, seat 0 first.
func (b Battlefield) AllUnits() []*cards.Instance {
	return append(b.Units(0), b.Units(1)...)
}

// Attackable returns seat's units that are not summoning sick and have not
// attacked this turn.
func (b Battlefield) Attackable(seat int) []*cards.Instance {
	var out []*cards.Instance
	for _, c := range b.Units(seat) {
		if c.SummoningSick || c.Counters.Has(counters.AttacksThisTurn) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Targets is what an attacker may hit. When Taunts is non-empty the attack
// must pick one of them.
type Targets struct {
	Units          []*cards.Instance
	Taunts         []*cards.Instance
	CanAttackNexus bool
}

// Allows reports whether a unit attack on id is legal.
func (t Targets) Allows(id string) bool {
	pool := t.Units
	if len(t.Taunts) > 0 {
		pool = t.Taunts
	}
	for _, c := range pool {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ValidTargets returns the defending seat's occupied slots. The nexus is
// attackable only when no defender has taunt.
func (b Battlefield) ValidTargets(attackingSeat int) Targets {
	t := Targets{Units: b.Units(1 - attackingSeat)}
	for _, c := range t.Units {
		if c.HasKeyword(KeywordTaunt) {
			t.Taunts = append(t.Taunts, c)
		}
	}
	t.CanAttackNexus = len(t.Taunts) == 0
	return t
}

// Count returns how many units seat has.
func (b Battlefield) Count(seat int) int {
	return len(b.Units(seat))
}

// placed is the gob form of one occupied slot.
type placed struct {
	Seat int
	Slot int
	Unit *cards.Instance
}

type encoded struct {
	Size  int
	Units []placed
}

// GobEncode stores occupied slots only; gob cannot encode nil slice elements.
func (b Battlefield) GobEncode() ([]byte, error) {
	enc := encoded{Size: b.Size}
	for s := range b.Slots {
		for i, c := range b.Slots[s] {
			if c != nil {
				enc.Units = append(enc.Units, placed{Seat: s, Slot: i, Unit: c})
			}
		}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(enc); err != nil {
		return nil, fmt.Errorf("encode battlefield: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode restores a battlefield written by GobEncode.
func (b *Battlefield) GobDecode(data []byte) error {
	var enc encoded
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&enc); err != nil {
		return fmt.Errorf("decode battlefield: %w", err)
	}
	out := New(enc.Size)
	for _, p := range enc.Units {
		if !out.inRange(p.Seat, p.Slot) {
			return fmt.Errorf("decode battlefield: %w: seat %d slot %d", ErrSlotOutOfRange, p.Seat, p.Slot)
		}
		out.Slots[p.Seat][p.Slot] = p.Unit
	}
	*b = out
	return nil
}
