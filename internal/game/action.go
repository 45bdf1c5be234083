package game

import (
	"errors"
	"fmt"
)

// ActionType names a player action accepted by the reducer.
type ActionType string

const (
	ActionMulligan      ActionType = "mulligan"
	ActionPlayCard      ActionType = "play_card"
	ActionDeclareAttack ActionType = "declare_attack"
	ActionEndTurn       ActionType = "end_turn"
	ActionPassPriority  ActionType = "pass_priority"
	ActionRespond       ActionType = "respond"
	ActionSelectTarget  ActionType = "select_target"
	ActionCancelTarget  ActionType = "cancel_target"
)

// AttackTarget selects what a declared attack hits.
type AttackTarget string

const (
	AttackUnit  AttackTarget = "unit"
	AttackNexus AttackTarget = "nexus"
)

// ResponseCounter is the only respond type: remove an opposing stack item.
const ResponseCounter = "counter"

// PlayerAction is one input to the reducer. ID is caller-supplied and makes
// re-application detectable.
type PlayerAction struct {
	ID   string     `json:"id"`
	Type ActionType `json:"type"`
	Seat int        `json:"seat"`

	// play_card
	CardID   string `json:"card_id,omitempty"`
	Slot     *int   `json:"slot,omitempty"`
	Reversed bool   `json:"reversed,omitempty"`

	// declare_attack
	AttackerID string       `json:"attacker_id,omitempty"`
	TargetType AttackTarget `json:"target_type,omitempty"`

	// play_card, declare_attack and select_target
	TargetID string `json:"target_id,omitempty"`

	// respond, select_target and cancel_target
	StackItemID string `json:"stack_item_id,omitempty"`
	Response    string `json:"response,omitempty"`

	// mulligan
	Replace []string `json:"replace,omitempty"`
}

func (a PlayerAction) String() string {
	return fmt.Sprintf("%s(seat=%d id=%s)", a.Type, a.Seat, a.ID)
}

var (
	// ErrIllegalAction matches every rule rejection.
	ErrIllegalAction = errors.New("illegal action")
	// ErrIllegalTransition matches rejected phase transitions.
	ErrIllegalTransition = errors.New("illegal transition")
)

// Rejection codes.
const (
	CodeGameOver         = "game_over"
	CodeDuplicateAction  = "duplicate_action"
	CodeUnknownAction    = "unknown_action"
	CodeUnknownPlayer    = "unknown_player"
	CodeWrongPhase       = "wrong_phase"
	CodeNoPriority       = "no_priority"
	CodeTargetPending    = "target_selection_pending"
	CodeCardNotInHand    = "card_not_in_hand"
	CodeInsufficientMana = "insufficient_mana"
	CodeBoardFull        = "board_full"
	CodeSlotOccupied     = "slot_occupied"
	CodeStackNotEmpty    = "stack_not_empty"
	CodeNotActivePlayer  = "not_active_player"
	CodeNoAttackToken    = "no_attack_token"
	CodeCannotAttack     = "cannot_attack"
	CodeInvalidTarget    = "invalid_target"
	CodeUnknownStackItem = "unknown_stack_item"
	CodeNotCounterable   = "not_counterable"
	CodeMulliganDone     = "mulligan_complete"
	CodeResolution       = "resolution_failed"
	CodeIllegalPhase     = "illegal_transition"
)

// Rejection is a rule-level refusal. The state passed in is returned
// unchanged alongside it.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("rejected (%s): %s", r.Code, r.Message)
}

// Is lets errors.Is match ErrIllegalAction, and ErrIllegalTransition for
// phase rejections.
func (r *Rejection) Is(target error) bool {
	switch target {
	case ErrIllegalAction:
		return true
	case ErrIllegalTransition:
		return r.Code == CodeIllegalPhase
	}
	return false
}

func reject(code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RejectionCode extracts the code from a rejection error, or "" otherwise.
func RejectionCode(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}
