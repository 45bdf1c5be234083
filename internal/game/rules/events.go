package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a rules event.
type EventType string

const (
	// Match/turn events
	EventMatchStarted      EventType = "MATCH_STARTED"
	EventMulliganCompleted EventType = "MULLIGAN_COMPLETED"
	EventPhaseChanged      EventType = "PHASE_CHANGED"
	EventRoundStarted      EventType = "ROUND_STARTED"
	EventRoundEnded        EventType = "ROUND_ENDED"
	EventTurnEnded         EventType = "TURN_ENDED"
	EventPriorityPassed    EventType = "PRIORITY_PASSED"
	EventGameOver          EventType = "GAME_OVER"

	// Card events
	EventCardPlayed    EventType = "CARD_PLAYED"
	EventCardDrawn     EventType = "CARD_DRAWN"
	EventCardDiscarded EventType = "CARD_DISCARDED"
	EventCardBurned    EventType = "CARD_BURNED"

	// Unit events
	EventUnitSummoned  EventType = "UNIT_SUMMONED"
	EventUnitDamaged   EventType = "UNIT_DAMAGED"
	EventUnitHealed    EventType = "UNIT_HEALED"
	EventUnitDestroyed EventType = "UNIT_DESTROYED"
	EventUnitDied      EventType = "UNIT_DIED"
	EventStatBuffed    EventType = "STAT_BUFFED"
	EventKeywordAdded  EventType = "KEYWORD_ADDED"
	EventStatusExpired EventType = "STATUS_EXPIRED"
	EventBarrierBroken EventType = "BARRIER_BROKEN"
	EventSummonFailed  EventType = "SUMMON_FAILED"

	// Player events
	EventPlayerDamaged EventType = "PLAYER_DAMAGED"
	EventPlayerHealed  EventType = "PLAYER_HEALED"
	EventManaGained    EventType = "MANA_GAINED"
	EventManaSpent     EventType = "MANA_SPENT"

	// Combat events
	EventAttackDeclared EventType = "ATTACK_DECLARED"
	EventCombatResolved EventType = "COMBAT_RESOLVED"

	// Stack events
	EventStackItemPushed    EventType = "STACK_ITEM_PUSHED"
	EventStackItemResolving EventType = "STACK_ITEM_RESOLVING"
	EventStackItemResolved  EventType = "STACK_ITEM_RESOLVED"
	EventStackItemCountered EventType = "STACK_ITEM_COUNTERED"
	EventStackItemFizzled   EventType = "STACK_ITEM_FIZZLED"
	EventTargetRequested    EventType = "TARGET_REQUESTED"
	EventTargetSelected     EventType = "TARGET_SELECTED"
	EventTargetCancelled    EventType = "TARGET_CANCELLED"

	// State-based actions event
	EventStateBasedActions EventType = "STATE_BASED_ACTIONS"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type        EventType `json:"type"`
	Seat        int       `json:"seat"`
	SourceID    string    `json:"source_id,omitempty"`
	TargetID    string    `json:"target_id,omitempty"`
	StackItemID string    `json:"stack_item_id,omitempty"`
	Amount      int       `json:"amount,omitempty"`
	Phase       Phase     `json:"phase,omitempty"`
	Data        string    `json:"data,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, seat int, sourceID, targetID string) Event {
	return Event{
		Type:     eventType,
		Seat:     seat,
		SourceID: sourceID,
		TargetID: targetID,
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, seat int, sourceID, targetID string, amount int) Event {
	evt := NewEvent(eventType, seat, sourceID, targetID)
	evt.Amount = amount
	return evt
}

// Listener receives published events.
type Listener func(Event)

type subscription struct {
	handle int
	// only filters by type when set
	only     EventType
	listener Listener
}

// EventBus delivers events synchronously to subscribers in subscription
// order. Listeners run without the bus lock held, so they may subscribe or
// unsubscribe from inside a callback; the change applies from the next
// Publish or PublishBatch call.
type EventBus struct {
	mu         sync.Mutex
	subs       []subscription
	nextHandle int
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers listener for every event. It returns -1 for a nil
// listener.
func (bus *EventBus) Subscribe(listener Listener) int {
	return bus.add("", listener)
}

// SubscribeTyped registers callback for events of one type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if eventType == "" {
		return -1
	}
	return bus.add(eventType, callback)
}

func (bus *EventBus) add(only EventType, listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.subs = append(bus.subs, subscription{handle: handle, only: only, listener: listener})
	return handle
}

// Unsubscribe removes a subscription made with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subs {
		if sub.handle == handle {
			bus.subs = append(bus.subs[:i:i], bus.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscriptions.
func (bus *EventBus) Len() int {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return len(bus.subs)
}

func (bus *EventBus) snapshot() []subscription {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.subs
}

// Publish delivers event to every matching subscriber.
func (bus *EventBus) Publish(event Event) {
	for _, sub := range bus.snapshot() {
		if sub.only == "" || sub.only == event.Type {
			sub.listener(event)
		}
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	subs := bus.snapshot()
	for _, event := range events {
		for _, sub := range subs {
			if sub.only == "" || sub.only == event.Type {
				sub.listener(event)
			}
		}
	}
}
