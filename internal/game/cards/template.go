package cards

import (
	"fmt"
	"strings"
)

// Type distinguishes units, which occupy battlefield slots, from spells.
type Type string

const (
	TypeUnit  Type = "unit"
	TypeSpell Type = "spell"
	// TypeToken marks a template only created by summon effects.
	TypeToken Type = "token"
)

// Template is an immutable authored card definition.
type Template struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Cost         int      `json:"cost" yaml:"cost"`
	Attack       int      `json:"attack" yaml:"attack"`
	Health       int      `json:"health" yaml:"health"`
	Type         Type     `json:"type" yaml:"type"`
	Text         string   `json:"text,omitempty" yaml:"text,omitempty"`
	ReversedText string   `json:"reversed_text,omitempty" yaml:"reversed_text,omitempty"`
	Keywords     []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Rarity       string   `json:"rarity,omitempty" yaml:"rarity,omitempty"`
	Element      string   `json:"element,omitempty" yaml:"element,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// IsUnit reports whether the template occupies a battlefield slot.
func (t Template) IsUnit() bool {
	return t.Type == TypeUnit || t.Type == TypeToken
}

// IsSpell reports whether the template is a spell.
func (t Template) IsSpell() bool {
	return t.Type == TypeSpell
}

// HasKeyword reports whether the template lists kw.
func (t Template) HasKeyword(kw string) bool {
	for _, k := range t.Keywords {
		if strings.EqualFold(k, kw) {
			return true
		}
	}
	return false
}

// Validate checks authored fields.
func (t Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template %q: missing id", t.Name)
	}
	switch t.Type {
	case TypeUnit, TypeToken:
		if t.Health <= 0 {
			return fmt.Errorf("template %s: unit health must be positive", t.ID)
		}
	case TypeSpell:
	default:
		return fmt.Errorf("template %s: unknown type %q", t.ID, t.Type)
	}
	if t.Cost < 0 || t.Attack < 0 {
		return fmt.Errorf("template %s: negative cost or attack", t.ID)
	}
	return nil
}

// Lookup resolves a template by id.
type Lookup interface {
	Template(id string) (Template, bool)
}

// Set is an in-memory template collection keyed by id.
type Set map[string]Template

// Template implements Lookup.
func (s Set) Template(id string) (Template, bool) {
	t, ok := s[id]
	return t, ok
}
