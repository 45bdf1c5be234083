package rules

import (
	"errors"
	"time"

	"github.com/emberline/duelcore/internal/game/ability"
)

// StackItemKind describes the type of object on the stack.
type StackItemKind string

const (
	// StackItemKindSpell represents a spell card played by a player.
	StackItemKindSpell StackItemKind = "SPELL"
	// StackItemKindTriggered represents a triggered unit ability.
	StackItemKindTriggered StackItemKind = "TRIGGERED"
)

// Resolution priorities. Higher values resolve first.
const (
	PriorityNormal = 1000
	PriorityDeath  = 1500
)

// ErrStackEmpty is returned by Pop on an empty stack.
var ErrStackEmpty = errors.New("stack empty")

// StackItem is one pending ability invocation.
type StackItem struct {
	ID             string                `json:"id"`
	Kind           StackItemKind         `json:"kind"`
	Description    string                `json:"description,omitempty"`
	TemplateID     string                `json:"template_id,omitempty"`
	Ability        ability.ParsedAbility `json:"ability"`
	SourcePlayer   int                   `json:"source_player"`
	SourceCard     string                `json:"source_card,omitempty"`
	Priority       int                   `json:"priority"`
	Sequence       int64                 `json:"sequence"`
	CreatedAt      time.Time             `json:"created_at"`
	CanBeCountered bool                  `json:"can_be_countered"`
	// TargetID is the externally chosen entity for any_target actions.
	TargetID string `json:"target_id,omitempty"`
	// AwaitingTarget is set while the item waits on a target selection.
	AwaitingTarget bool `json:"awaiting_target,omitempty"`
	// Reversed selects the reversed face of the source card.
	Reversed bool `json:"reversed,omitempty"`
}

// before reports whether a resolves ahead of b.
func (a StackItem) before(b StackItem) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Sequence > b.Sequence
}

// Stack is the effect stack. It is a value: copies made with Clone are
// independent.
type Stack struct {
	Items   []StackItem `json:"items"`
	NextSeq int64       `json:"next_seq"`
}

// Clone returns an independent copy.
func (s Stack) Clone() Stack {
	out := Stack{NextSeq: s.NextSeq}
	if len(s.Items) > 0 {
		out.Items = make([]StackItem, len(s.Items))
		copy(out.Items, s.Items)
		for i := range out.Items {
			out.Items[i].Ability.Actions = append([]ability.ParsedAction(nil), s.Items[i].Ability.Actions...)
		}
	}
	return out
}

// Push adds an item and assigns it the next sequence number.
func (s *Stack) Push(item StackItem) StackItem {
	s.NextSeq++
	item.Sequence = s.NextSeq
	if item.Priority == 0 {
		item.Priority = PriorityNormal
	}
	s.Items = append(s.Items, item)
	return item
}

func (s Stack) topIndex() int {
	top := -1
	for i, item := range s.Items {
		if top < 0 || item.before(s.Items[top]) {
			top = i
		}
	}
	return top
}

// PeekTop returns the item that resolves next: highest priority, then most
// recently pushed.
func (s Stack) PeekTop() (StackItem, bool) {
	idx := s.topIndex()
	if idx < 0 {
		return StackItem{}, false
	}
	return s.Items[idx], true
}

// Pop removes and returns the next item to resolve.
func (s *Stack) Pop() (StackItem, error) {
	idx := s.topIndex()
	if idx < 0 {
		return StackItem{}, ErrStackEmpty
	}
	item := s.Items[idx]
	s.Items = append(s.Items[:idx:idx], s.Items[idx+1:]...)
	return item, nil
}

// Remove deletes an item from anywhere in the stack by ID.
func (s *Stack) Remove(id string) (StackItem, bool) {
	for idx := range s.Items {
		if s.Items[idx].ID == id {
			item := s.Items[idx]
			s.Items = append(s.Items[:idx:idx], s.Items[idx+1:]...)
			return item, true
		}
	}
	return StackItem{}, false
}

// Find returns the item with id.
func (s Stack) Find(id string) (StackItem, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return StackItem{}, false
}

// Update replaces the item with the same ID.
func (s *Stack) Update(item StackItem) bool {
	for idx := range s.Items {
		if s.Items[idx].ID == item.ID {
			s.Items[idx] = item
			return true
		}
	}
	return false
}

// List returns the items in resolution order, next to resolve first.
func (s Stack) List() []StackItem {
	out := make([]StackItem, len(s.Items))
	copy(out, s.Items)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].before(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Len returns the number of pending items.
func (s Stack) Len() int { return len(s.Items) }

// IsEmpty reports whether nothing is pending.
func (s Stack) IsEmpty() bool { return len(s.Items) == 0 }

// Awaiting returns the item waiting for a target selection, if any.
func (s Stack) Awaiting() (StackItem, bool) {
	for _, item := range s.Items {
		if item.AwaitingTarget {
			return item, true
		}
	}
	return StackItem{}, false
}

// RemoveIllegalItems removes items the checker rejects and returns them.
func (s *Stack) RemoveIllegalItems(checker *LegalityChecker) []StackItem {
	if checker == nil {
		return nil
	}
	var (
		removed []StackItem
		kept    = make([]StackItem, 0, len(s.Items))
	)
	for _, item := range s.Items {
		if result := checker.CheckStackItemLegality(item); !result.Legal {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	s.Items = kept
	return removed
}
