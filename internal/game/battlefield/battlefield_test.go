package battlefield

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/counters"
)

func unit(id string, keywords ...string) *cards.Instance {
	return cards.NewInstance(id, cards.Template{ID: "t-" + id, Attack: 1, Health: 1, Type: cards.TypeUnit, Keywords: keywords}, 0)
}

func TestPlaceUnit(t *testing.T) {
	b := New(3)

	b2, err := b.PlaceUnit(unit("a"), 0, 1)
	require.NoError(t, err)
	assert.Nil(t, b.At(0, 1), "receiver must not change")
	assert.Equal(t, "a", b2.At(0, 1).ID)

	_, err = b2.PlaceUnit(unit("b"), 0, 1)
	assert.True(t, errors.Is(err, ErrSlotOccupied))

	_, err = b2.PlaceUnit(unit("b"), 0, 3)
	assert.True(t, errors.Is(err, ErrSlotOutOfRange))

	_, err = b2.PlaceUnit(unit("b"), 2, 0)
	assert.True(t, errors.Is(err, ErrSlotOutOfRange))

	_, err = b2.PlaceUnit(unit("a"), 1, 0)
	assert.True(t, errors.Is(err, ErrDuplicateInstance))
}

func TestRemoveAndFind(t *testing.T) {
	b := New(3)
	b, _ = b.PlaceUnit(unit("a"), 1, 2)

	pos, ok := b.FindPosition("a")
	require.True(t, ok)
	assert.Equal(t, Position{Seat: 1, Slot: 2}, pos)

	b2, removed, err := b.RemoveUnit(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)
	_, ok = b2.FindPosition("a")
	assert.False(t, ok)
	assert.NotNil(t, b.At(1, 2), "receiver must not change")

	_, removed, err = b2.RemoveUnit(1, 2)
	assert.NoError(t, err)
	assert.Nil(t, removed)

	_, _, err = b2.RemoveUnit(0, -1)
	assert.True(t, errors.Is(err, ErrSlotOutOfRange))
}

func TestCompactUnitsPreservesOrder(t *testing.T) {
	b := New(5)
	b, _ = b.PlaceUnit(unit("a"), 0, 1)
	b, _ = b.PlaceUnit(unit("b"), 0, 3)
	b, _ = b.PlaceUnit(unit("c"), 0, 4)

	c := b.CompactUnits(0)
	ids := []string{}
	for _, u := range c.Slots[0] {
		if u == nil {
			ids = append(ids, "-")
			continue
		}
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "-", "-"}, ids)
	assert.Nil(t, b.At(0, 0), "receiver must not change")

	slot, ok := c.FirstFreeSlot(0)
	assert.True(t, ok)
	assert.Equal(t, 3, slot)
}

func TestSlotInvariantUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := New(4)
	next := 0

	for step := 0; step < 500; step++ {
		seat := rng.Intn(Seats)
		slot := rng.Intn(4)
		switch rng.Intn(3) {
		case 0:
			id := fmt.Sprintf("u%d", next)
			next++
			if nb, err := b.PlaceUnit(unit(id), seat, slot); err == nil {
				b = nb
			}
		case 1:
			b, _, _ = b.RemoveUnit(seat, slot)
		case 2:
			before := b.Units(seat)
			b = b.CompactUnits(seat)
			after := b.Units(seat)
			require.Equal(t, len(before), len(after))
			for i := range before {
				require.Equal(t, before[i].ID, after[i].ID)
			}
		}

		seen := map[string]bool{}
		for s := range b.Slots {
			for _, u := range b.Slots[s] {
				if u == nil {
					continue
				}
				require.False(t, seen[u.ID], "instance %s in two slots", u.ID)
				seen[u.ID] = true
			}
		}
	}
}

func TestAttackable(t *testing.T) {
	b := New(3)
	sick := unit("sick")
	sick.SummoningSick = true
	attacked := unit("attacked")
	attacked.Counters.Add(counters.AttacksThisTurn, 1)
	ready := unit("ready")

	b, _ = b.PlaceUnit(sick, 0, 0)
	b, _ = b.PlaceUnit(attacked, 0, 1)
	b, _ = b.PlaceUnit(ready, 0, 2)

	got := b.Attackable(0)
	require.Len(t, got, 1)
	assert.Equal(t, "ready", got[0].ID)
}

func TestValidTargets(t *testing.T) {
	b := New(3)
	b, _ = b.PlaceUnit(unit("x"), 1, 0)

	targets := b.ValidTargets(0)
	assert.True(t, targets.CanAttackNexus)
	assert.True(t, targets.Allows("x"))

	guard := unit("guard", KeywordTaunt)
	guard.Owner = 1
	b, _ = b.PlaceUnit(guard, 1, 2)

	targets = b.ValidTargets(0)
	assert.False(t, targets.CanAttackNexus)
	assert.Len(t, targets.Units, 2)
	assert.True(t, targets.Allows("guard"))
	assert.False(t, targets.Allows("x"))

	assert.True(t, b.ValidTargets(1).CanAttackNexus)
}

func TestGobRoundTripKeepsEmptySlots(t *testing.T) {
	b := New(4)
	b, _ = b.PlaceUnit(unit("a"), 0, 2)
	b, _ = b.PlaceUnit(unit("b", KeywordTaunt), 1, 0)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(b))
	var out Battlefield
	require.NoError(t, gob.NewDecoder(&buf).Decode(&out))

	assert.Equal(t, 4, out.Size)
	assert.Len(t, out.Slots[0], 4)
	assert.Nil(t, out.At(0, 0))
	assert.Equal(t, "a", out.At(0, 2).ID)
	assert.True(t, out.At(1, 0).HasKeyword(KeywordTaunt))
	assert.Equal(t, 1, out.Count(1))
}
