package cards

import (
	"github.com/emberline/duelcore/internal/game/counters"
)

// StatusEffect is a stat or keyword modification on an instance. Remaining
// counts end-of-turn ticks left; -1 means permanent.
type StatusEffect struct {
	Name      string `json:"name"`
	Attack    int    `json:"attack,omitempty"`
	Health    int    `json:"health,omitempty"`
	Keyword   string `json:"keyword,omitempty"`
	Remaining int    `json:"remaining"`
	Stacks    int    `json:"stacks"`
	SourceID  string `json:"source_id,omitempty"`
}

// Permanent reports whether the effect never expires.
func (s StatusEffect) Permanent() bool { return s.Remaining < 0 }

// Instance is a template in play, in hand or in a deck.
type Instance struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Owner      int    `json:"owner"`
	Name       string `json:"name"`
	Cost       int    `json:"cost"`
	Type       Type   `json:"type"`

	BaseAttack int `json:"base_attack"`
	BaseHealth int `json:"base_health"`
	// Damage is accumulated damage; current health is MaxHealth()-Damage.
	Damage int `json:"damage"`

	Keywords []string          `json:"keywords,omitempty"`
	Statuses []StatusEffect    `json:"statuses,omitempty"`
	Counters counters.Counters `json:"counters"`

	Reversed      bool `json:"reversed,omitempty"`
	SummoningSick bool `json:"summoning_sick,omitempty"`
}

// NewInstance creates an instance of t owned by seat.
func NewInstance(id string, t Template, owner int) *Instance {
	kw := make([]string, len(t.Keywords))
	copy(kw, t.Keywords)
	return &Instance{
		ID:         id,
		TemplateID: t.ID,
		Owner:      owner,
		Name:       t.Name,
		Cost:       t.Cost,
		Type:       t.Type,
		BaseAttack: t.Attack,
		BaseHealth: t.Health,
		Keywords:   kw,
	}
}

// NewToken creates a summoned unit with explicit base stats.
func NewToken(id string, attack, health, owner int) *Instance {
	return &Instance{
		ID:         id,
		TemplateID: "token",
		Owner:      owner,
		Name:       "Token",
		Type:       TypeToken,
		BaseAttack: attack,
		BaseHealth: health,
	}
}

// Clone returns a deep copy.
func (c *Instance) Clone() *Instance {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Keywords != nil {
		cp.Keywords = append([]string(nil), c.Keywords...)
	}
	if c.Statuses != nil {
		cp.Statuses = append([]StatusEffect(nil), c.Statuses...)
	}
	cp.Counters = c.Counters.Copy()
	return &cp
}

// orientedBase returns base attack and health, swapped when reversed.
func (c *Instance) orientedBase() (int, int) {
	if c.Reversed {
		return c.BaseHealth, c.BaseAttack
	}
	return c.BaseAttack, c.BaseHealth
}

// Attack returns effective attack, never below zero.
func (c *Instance) Attack() int {
	atk, _ := c.orientedBase()
	for _, s := range c.Statuses {
		atk += s.Attack * max(s.Stacks, 1)
	}
	return max(atk, 0)
}

// MaxHealth returns base health plus health modifiers.
func (c *Instance) MaxHealth() int {
	_, hp := c.orientedBase()
	for _, s := range c.Statuses {
		hp += s.Health * max(s.Stacks, 1)
	}
	return hp
}

// Health returns current health.
func (c *Instance) Health() int {
	return c.MaxHealth() - c.Damage
}

// Dead reports whether current health is at or below zero.
func (c *Instance) Dead() bool {
	return c.Health() <= 0
}

// HasKeyword reports whether the instance has kw natively or from a status.
func (c *Instance) HasKeyword(kw string) bool {
	for _, k := range c.Keywords {
		if k == kw {
			return true
		}
	}
	for _, s := range c.Statuses {
		if s.Keyword == kw {
			return true
		}
	}
	return false
}

// RemoveKeyword strips kw from native keywords and keyword statuses.
func (c *Instance) RemoveKeyword(kw string) {
	kept := c.Keywords[:0]
	for _, k := range c.Keywords {
		if k != kw {
			kept = append(kept, k)
		}
	}
	c.Keywords = kept

	statuses := c.Statuses[:0]
	for _, s := range c.Statuses {
		if s.Keyword != kw {
			statuses = append(statuses, s)
		}
	}
	c.Statuses = statuses
}

// AddStatus merges s into an existing status with the same effect and the
// same remaining duration, increasing its stack count. Statuses with a
// different duration are kept apart so each expires on its own schedule.
func (c *Instance) AddStatus(s StatusEffect) {
	if s.Stacks < 1 {
		s.Stacks = 1
	}
	for i := range c.Statuses {
		cur := &c.Statuses[i]
		if cur.Name == s.Name && cur.Attack == s.Attack && cur.Health == s.Health &&
			cur.Keyword == s.Keyword && cur.Remaining == s.Remaining {
			cur.Stacks += s.Stacks
			return
		}
	}
	c.Statuses = append(c.Statuses, s)
}

// TickStatuses decrements expiring statuses and drops those reaching zero.
// It returns the names of removed statuses.
func (c *Instance) TickStatuses() []string {
	var expired []string
	alive := !c.Dead()
	kept := c.Statuses[:0]
	for _, s := range c.Statuses {
		if s.Remaining > 0 {
			s.Remaining--
			if s.Remaining == 0 {
				expired = append(expired, s.Name)
				continue
			}
		}
		kept = append(kept, s)
	}
	c.Statuses = kept
	if alive && len(expired) > 0 && c.Dead() && c.MaxHealth() > 0 {
		// Expiring health buffs leave a damaged unit at 1 health at worst.
		c.Damage = c.MaxHealth() - 1
	}
	return expired
}

// Heal removes up to amount damage and returns the amount healed. Amount zero
// or below heals fully.
func (c *Instance) Heal(amount int) int {
	if amount <= 0 || amount > c.Damage {
		amount = c.Damage
	}
	c.Damage -= amount
	return amount
}

// TextFor returns the ability text for the instance's orientation.
func TextFor(t Template, reversed bool) string {
	if reversed && t.ReversedText != "" {
		return t.ReversedText
	}
	return t.Text
}
