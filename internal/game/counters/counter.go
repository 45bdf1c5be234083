package counters

import "sort"

// Name identifies an ephemeral counter on a card instance.
type Name string

const (
	// AttacksThisTurn counts attacks declared by the unit this turn.
	AttacksThisTurn Name = "attacks_this_turn"
	// DamageTakenThisTurn accumulates damage dealt to the unit this turn.
	DamageTakenThisTurn Name = "damage_taken_this_turn"
	// BuffsReceived counts stat buffs applied to the unit.
	BuffsReceived Name = "buffs_received"
)

// Counter is a named count.
type Counter struct {
	Name  Name `json:"name"`
	Count int  `json:"count"`
}

// Counters is a collection of named counts. The zero value is ready to use
// for reads; writes allocate lazily.
type Counters struct {
	Values map[Name]int `json:"values,omitempty"`
}

// New creates an empty collection.
func New() Counters {
	return Counters{}
}

// Get returns the count for name, zero when absent.
func (cs Counters) Get(name Name) int {
	return cs.Values[name]
}

// Has reports whether name has a positive count.
func (cs Counters) Has(name Name) bool {
	return cs.Values[name] > 0
}

// Add increases a counter. Non-positive amounts are ignored.
func (cs *Counters) Add(name Name, amount int) {
	if amount <= 0 {
		return
	}
	if cs.Values == nil {
		cs.Values = make(map[Name]int)
	}
	cs.Values[name] += amount
}

// Remove decreases a counter, never below zero. A counter reaching zero is
// dropped.
func (cs *Counters) Remove(name Name, amount int) {
	if amount <= 0 || cs.Values == nil {
		return
	}
	left := cs.Values[name] - amount
	if left <= 0 {
		delete(cs.Values, name)
		return
	}
	cs.Values[name] = left
}

// Clear drops one counter.
func (cs *Counters) Clear(name Name) {
	delete(cs.Values, name)
}

// Reset drops every counter.
func (cs *Counters) Reset() {
	cs.Values = nil
}

// Len returns the number of counters with a positive count.
func (cs Counters) Len() int {
	return len(cs.Values)
}

// Copy returns an independent copy.
func (cs Counters) Copy() Counters {
	if len(cs.Values) == 0 {
		return Counters{}
	}
	out := make(map[Name]int, len(cs.Values))
	for k, v := range cs.Values {
		out[k] = v
	}
	return Counters{Values: out}
}

// List returns the counters sorted by name.
func (cs Counters) List() []Counter {
	out := make([]Counter, 0, len(cs.Values))
	for k, v := range cs.Values {
		out = append(out, Counter{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FromList rebuilds a collection from List output.
func FromList(list []Counter) Counters {
	var cs Counters
	for _, c := range list {
		cs.Add(c.Name, c.Count)
	}
	return cs
}
