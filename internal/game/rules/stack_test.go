package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackPushPopLIFO(t *testing.T) {
	var s Stack

	s.Push(StackItem{ID: "first", Kind: StackItemKindSpell})
	s.Push(StackItem{ID: "second", Kind: StackItemKindTriggered})

	item, err := s.Pop()
	if err != nil {
		t.Fatalf("unexpected error popping top: %v", err)
	}
	if item.ID != "second" {
		t.Fatalf("expected LIFO order (second), got %s", item.ID)
	}
	if item.Priority != PriorityNormal {
		t.Fatalf("expected default priority %d, got %d", PriorityNormal, item.Priority)
	}

	item, err = s.Pop()
	if err != nil {
		t.Fatalf("unexpected error popping second item: %v", err)
	}
	if item.ID != "first" {
		t.Fatalf("expected remaining item to be first, got %s", item.ID)
	}

	if _, err := s.Pop(); !errors.Is(err, ErrStackEmpty) {
		t.Fatalf("expected ErrStackEmpty, got %v", err)
	}
}

func TestStackPriorityOrdering(t *testing.T) {
	var s Stack
	s.Push(StackItem{ID: "item1", Priority: 1000})
	s.Push(StackItem{ID: "item2", Priority: 1500})
	s.Push(StackItem{ID: "item3", Priority: 1000})

	top, ok := s.PeekTop()
	require.True(t, ok)
	assert.Equal(t, "item2", top.ID)

	var ids []string
	for _, item := range s.List() {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"item2", "item3", "item1"}, ids)

	var popped []string
	for !s.IsEmpty() {
		item, err := s.Pop()
		require.NoError(t, err)
		popped = append(popped, item.ID)
	}
	assert.Equal(t, []string{"item2", "item3", "item1"}, popped)
}

func TestStackSequenceIsMonotonic(t *testing.T) {
	var s Stack
	a := s.Push(StackItem{ID: "a"})
	_, _ = s.Pop()
	b := s.Push(StackItem{ID: "b"})
	assert.Greater(t, b.Sequence, a.Sequence)
}

func TestStackRemoveAndUpdate(t *testing.T) {
	var s Stack
	s.Push(StackItem{ID: "a"})
	s.Push(StackItem{ID: "b"})
	s.Push(StackItem{ID: "c"})

	removed, ok := s.Remove("b")
	require.True(t, ok)
	assert.Equal(t, "b", removed.ID)
	assert.Equal(t, 2, s.Len())

	_, ok = s.Remove("b")
	assert.False(t, ok)

	item, _ := s.Find("a")
	item.AwaitingTarget = true
	require.True(t, s.Update(item))
	waiting, ok := s.Awaiting()
	require.True(t, ok)
	assert.Equal(t, "a", waiting.ID)
}

func TestStackCloneIsIndependent(t *testing.T) {
	var s Stack
	s.Push(StackItem{ID: "a"})

	cp := s.Clone()
	cp.Push(StackItem{ID: "b"})
	cp.Items[0].TargetID = "x"

	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Items[0].TargetID)
	assert.Equal(t, s.NextSeq+1, cp.NextSeq)
}

func TestStackRemoveIllegalItems(t *testing.T) {
	state := newFakeState()
	state.players[0] = PlayerInfo{PlayerID: "p1", Seat: 0}
	state.players[1] = PlayerInfo{PlayerID: "p2", Seat: 1, Left: true}
	state.units["u1"] = UnitInfo{ID: "u1", Seat: 1}

	var s Stack
	s.Push(StackItem{ID: "ok", SourcePlayer: 0, TargetID: "u1"})
	s.Push(StackItem{ID: "gone-target", SourcePlayer: 0, TargetID: "u9"})
	s.Push(StackItem{ID: "left", SourcePlayer: 1})

	removed := s.RemoveIllegalItems(NewLegalityChecker(state))
	require.Len(t, removed, 2)
	assert.Equal(t, "gone-target", removed[0].ID)
	assert.Equal(t, "left", removed[1].ID)
	assert.Equal(t, 1, s.Len())

	assert.Nil(t, s.RemoveIllegalItems(nil))
}
