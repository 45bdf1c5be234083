package ability

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Compile translates ability text into a ParsedAbility. It never fails:
// fragments that match no rule are dropped. The result is a pure function of
// text.
func Compile(text string) ParsedAbility {
	ab, _ := CompileWithWarnings(text)
	return ab
}

var keywordList = regexp.MustCompile(`\s*(?:,\s*and\s+|\s+and\s+|,\s*)\s*`)

// CompileWithWarnings is Compile plus a record of every fragment that was
// dropped.
func CompileWithWarnings(text string) (ParsedAbility, []Warning) {
	ab := ParsedAbility{Trigger: TriggerOnPlay, Actions: []ParsedAction{}}
	norm := normalize(text)
	if norm == "" {
		return ab, nil
	}

	trigger, rest, explicit := extractTrigger(norm)
	ab.Trigger = trigger

	var (
		warnings []Warning
		allBare  = true
	)
	for _, clause := range splitFragments(rest) {
		actions, bare, ok := compileFragment(clause, ab.Actions)
		if !ok {
			warnings = append(warnings, Warning{Fragment: clause, Reason: "unrecognized fragment"})
			continue
		}
		for _, a := range actions {
			if err := a.Validate(); err != nil {
				warnings = append(warnings, Warning{Fragment: clause, Reason: err.Error()})
				continue
			}
			ab.Actions = append(ab.Actions, a)
		}
		allBare = allBare && bare
	}

	if !explicit && allBare && len(ab.Actions) > 0 {
		ab.Trigger = TriggerPassive
	}
	ab.IsCompound = len(ab.Actions) > 1
	return ab, warnings
}

// compileFragment turns one clause into actions. A clause that is a list of
// bare keywords ("taunt, divine shield") expands to one action per keyword.
func compileFragment(clause string, prior []ParsedAction) (actions []ParsedAction, bare bool, ok bool) {
	f := analyze(clause)
	if rule, matched := matchAction(f); matched {
		a := rule.Parse(f)
		resolvePrevious(&a, prior)
		return []ParsedAction{a}, rule.Name == bareKeywordRule, true
	}

	parts := keywordList.Split(f.text, -1)
	if len(parts) < 2 {
		return nil, false, false
	}
	for _, p := range parts {
		if !IsKeyword(p) {
			return nil, false, false
		}
		actions = append(actions, ParsedAction{
			Kind:     ActionAddKeyword,
			Target:   TargetSelf,
			Keyword:  strings.TrimSpace(p),
			Duration: Duration{Kind: DurationPermanent},
		})
	}
	return actions, true, true
}

// resolvePrevious binds "they"/"them" to the target of the nearest earlier
// action that had one, falling back to the source unit.
func resolvePrevious(a *ParsedAction, prior []ParsedAction) {
	if a.Target != targetPrevious {
		return
	}
	a.Target, a.Filter = TargetSelf, FilterNone
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].Target != TargetNone {
			a.Target, a.Filter = prior[i].Target, prior[i].Filter
			return
		}
	}
}

// Entry is one compiled card template in a Catalog.
type Entry struct {
	TemplateID string         `json:"template_id"`
	Text       string         `json:"text"`
	Ability    ParsedAbility  `json:"ability"`
	Reversed   *ParsedAbility `json:"reversed,omitempty"`
	Warnings   []Warning      `json:"warnings,omitempty"`
}

// Catalog caches compiled abilities keyed by template id. Compilation happens
// once at load time; play-time lookups are read-only.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// Register compiles a template's ability text, and its reversed-face text when
// present, and stores the result. Re-registering an id replaces it.
func (c *Catalog) Register(templateID, text, reversedText string) Entry {
	ab, warnings := CompileWithWarnings(text)
	e := Entry{TemplateID: templateID, Text: text, Ability: ab, Warnings: warnings}
	if strings.TrimSpace(reversedText) != "" {
		rev, revWarnings := CompileWithWarnings(reversedText)
		e.Reversed = &rev
		e.Warnings = append(e.Warnings, revWarnings...)
	}

	c.mu.Lock()
	c.entries[templateID] = e
	c.mu.Unlock()
	return e
}

// Lookup returns the compiled entry for a template.
func (c *Catalog) Lookup(templateID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[templateID]
	return e, ok
}

// Ability returns the compiled ability for a template face. A reversed
// lookup on a template without a reversed face returns the front.
func (c *Catalog) Ability(templateID string, reversed bool) (ParsedAbility, bool) {
	e, ok := c.Lookup(templateID)
	if !ok {
		return ParsedAbility{}, false
	}
	if reversed && e.Reversed != nil {
		return *e.Reversed, true
	}
	return e.Ability, true
}

// Len returns the number of registered templates.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// IDs returns registered template ids in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
