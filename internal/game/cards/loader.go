package cards

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the top-level YAML content structure.
type File struct {
	Cards []Template  `yaml:"cards"`
	Decks []DeckEntry `yaml:"decks,omitempty"`
}

// DeckEntry is a named deck list.
type DeckEntry struct {
	Name  string      `yaml:"name"`
	Cards []CardCount `yaml:"cards"`
}

// CardCount is a template id and how many copies a deck holds.
type CardCount struct {
	ID    string `yaml:"id"`
	Count int    `yaml:"count"`
}

// Content is a validated template set plus its deck lists.
type Content struct {
	Templates Set
	Decks     map[string][]string
}

// LoadFile reads YAML content from path.
func LoadFile(path string) (*Content, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes YAML content and validates every template and deck entry.
func Load(r io.Reader) (*Content, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse content YAML: %w", err)
	}

	c := &Content{Templates: make(Set, len(file.Cards)), Decks: make(map[string][]string)}
	for _, t := range file.Cards {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.Templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %s", t.ID)
		}
		c.Templates[t.ID] = t
	}

	for _, d := range file.Decks {
		var ids []string
		for _, entry := range d.Cards {
			if _, ok := c.Templates[entry.ID]; !ok {
				return nil, fmt.Errorf("deck %s: unknown card %s", d.Name, entry.ID)
			}
			for i := 0; i < entry.Count; i++ {
				ids = append(ids, entry.ID)
			}
		}
		c.Decks[d.Name] = ids
	}
	return c, nil
}

// Deck returns the template ids for a named deck.
func (c *Content) Deck(name string) ([]string, error) {
	ids, ok := c.Decks[name]
	if !ok {
		return nil, fmt.Errorf("deck %q not found (have %d decks)", name, len(c.Decks))
	}
	return append([]string(nil), ids...), nil
}

// SortedTemplates returns templates ordered by id.
func (c *Content) SortedTemplates() []Template {
	out := make([]Template, 0, len(c.Templates))
	for _, t := range c.Templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
