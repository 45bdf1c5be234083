package mana

import (
	"errors"
	"testing"
)

func TestPool_Refill(t *testing.T) {
	pool := NewPool(10, 3)

	pool = pool.Refill(4)
	if pool.Mana != 4 || pool.MaxMana != 4 {
		t.Errorf("Expected 4/4 mana, got %s", pool)
	}

	pool = pool.Refill(12)
	if pool.Mana != 10 || pool.MaxMana != 10 {
		t.Errorf("Expected refill capped at 10, got %s", pool)
	}
}

func TestPool_PayUnitUsesManaOnly(t *testing.T) {
	pool := NewPool(10, 3).Refill(2)
	pool.SpellMana = 3

	if pool.CanPay(3, false) {
		t.Error("Expected unit costing 3 to be unaffordable with 2 mana")
	}
	if _, err := pool.Pay(3, false); !errors.Is(err, ErrInsufficientMana) {
		t.Errorf("Expected ErrInsufficientMana, got %v", err)
	}

	paid, err := pool.Pay(2, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Mana != 0 || paid.SpellMana != 3 {
		t.Errorf("Expected spell mana untouched, got %s", paid)
	}
}

func TestPool_PaySpellUsesSpellManaFirst(t *testing.T) {
	pool := NewPool(10, 3).Refill(3)
	pool.SpellMana = 2

	paid, err := pool.Pay(4, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.SpellMana != 0 || paid.Mana != 1 {
		t.Errorf("Expected 1 mana and 0 spell mana remaining, got %s", paid)
	}
	if pool.Available()-paid.Available() != 4 {
		t.Errorf("Expected exactly 4 mana spent")
	}

	if _, err := pool.Pay(6, true); err == nil {
		t.Error("Expected cost above available total to fail")
	}
}

func TestPool_GainAndConvert(t *testing.T) {
	pool := NewPool(5, 3).Refill(4)

	pool = pool.Gain(3)
	if pool.Mana != 5 {
		t.Errorf("Expected gain capped at 5, got %d", pool.Mana)
	}

	pool = pool.GainSpell(10)
	if pool.SpellMana != 3 {
		t.Errorf("Expected spell mana capped at 3, got %d", pool.SpellMana)
	}

	pool.SpellMana = 1
	pool.Mana = 4
	pool = pool.ConvertUnspent()
	if pool.Mana != 0 || pool.SpellMana != 3 {
		t.Errorf("Expected conversion to fill spell mana to 3, got %s", pool)
	}
}
