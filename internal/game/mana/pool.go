package mana

import (
	"errors"
	"fmt"
)

// ErrInsufficientMana is returned when a cost exceeds what a pool can pay.
var ErrInsufficientMana = errors.New("insufficient mana")

// Pool is a player's mana. Mana refills each round up to MaxMana; spell mana
// accumulates from unspent mana and can only pay for spells.
type Pool struct {
	Mana         int `json:"mana"`
	MaxMana      int `json:"max_mana"`
	Cap          int `json:"cap"`
	SpellMana    int `json:"spell_mana"`
	MaxSpellMana int `json:"max_spell_mana"`
}

// NewPool creates an empty pool with the configured ceilings.
func NewPool(capMana, maxSpellMana int) Pool {
	return Pool{Cap: capMana, MaxSpellMana: maxSpellMana}
}

// Refill sets this round's mana gems to min(gems, Cap) and fills them.
func (p Pool) Refill(gems int) Pool {
	if gems > p.Cap {
		gems = p.Cap
	}
	if gems < 0 {
		gems = 0
	}
	p.MaxMana = gems
	p.Mana = gems
	return p
}

// Available returns everything the pool could spend on a spell.
func (p Pool) Available() int {
	return p.Mana + p.SpellMana
}

// CanPay reports whether cost is affordable. Units may only use mana.
func (p Pool) CanPay(cost int, spell bool) bool {
	if cost <= 0 {
		return true
	}
	if spell {
		return p.Available() >= cost
	}
	return p.Mana >= cost
}

// Pay deducts cost. Spells draw from spell mana first, then mana.
func (p Pool) Pay(cost int, spell bool) (Pool, error) {
	if cost <= 0 {
		return p, nil
	}
	if !p.CanPay(cost, spell) {
		return p, fmt.Errorf("%w: cost %d, have %d mana and %d spell mana", ErrInsufficientMana, cost, p.Mana, p.SpellMana)
	}
	if spell {
		fromSpell := min(cost, p.SpellMana)
		p.SpellMana -= fromSpell
		cost -= fromSpell
	}
	p.Mana -= cost
	return p, nil
}

// PayAny deducts cost from spell mana first, then mana, regardless of card
// type. Used for responses.
func (p Pool) PayAny(cost int) (Pool, error) {
	return p.Pay(cost, true)
}

// Gain adds mana up to the configured ceiling.
func (p Pool) Gain(amount int) Pool {
	if amount <= 0 {
		return p
	}
	p.Mana = min(p.Mana+amount, p.Cap)
	if p.Mana > p.MaxMana {
		p.MaxMana = p.Mana
	}
	return p
}

// GainSpell adds spell mana up to MaxSpellMana.
func (p Pool) GainSpell(amount int) Pool {
	if amount <= 0 {
		return p
	}
	p.SpellMana = min(p.SpellMana+amount, p.MaxSpellMana)
	return p
}

// ConvertUnspent moves leftover mana into spell mana at round end. Mana that
// does not fit is lost.
func (p Pool) ConvertUnspent() Pool {
	p.SpellMana = min(p.SpellMana+p.Mana, p.MaxSpellMana)
	p.Mana = 0
	return p
}

func (p Pool) String() string {
	return fmt.Sprintf("%d/%d (+%d/%d spell)", p.Mana, p.MaxMana, p.SpellMana, p.MaxSpellMana)
}
