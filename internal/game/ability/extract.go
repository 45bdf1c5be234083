package ability

import (
	"regexp"
	"strconv"
	"strings"
)

// numberWord matches a digit literal or a spelled-out count.
const numberWord = `(\d+|an?|one|two|three|four|five|six|seven|eight|nine|ten)`

var wordNumbers = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// parseNumber converts a digit literal or number word.
func parseNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	n, ok := wordNumbers[s]
	return n, ok
}

// TargetRule maps a phrase to a target. Rules run broadest first.
type TargetRule struct {
	Name    string
	Target  TargetType
	Filter  TargetFilter
	Pattern *regexp.Regexp
}

// targetPrevious marks an anaphoric phrase ("they", "them") that refers to
// the previous action's target.
const targetPrevious TargetType = "previous"

var targetRules = []TargetRule{
	{"all units and players", TargetAllUnits, FilterNone, regexp.MustCompile(`\ball (?:units|minions|followers|characters) and (?:players|heroes|nexuses)\b|\ball characters\b|\beverything\b`)},
	{"all units", TargetAllUnits, FilterNone, regexp.MustCompile(`\ball (?:other )?(?:units|minions|followers)\b|\beach (?:unit|minion)\b|\bevery (?:unit|minion)\b`)},
	{"all enemy units", TargetAllEnemy, FilterNone, regexp.MustCompile(`\ball (?:enemy|enemies|opposing) (?:units|minions|followers)\b|\ball enemies\b|\b(?:enemy|opposing) (?:units|minions|followers)\b|\beach enemy (?:unit|minion)\b`)},
	{"all friendly units", TargetAllFriendly, FilterNone, regexp.MustCompile(`\ball (?:other )?(?:friendly|allied|your) (?:units|minions|followers)\b|\ball (?:other )?allies\b|\byour (?:other )?(?:units|minions|followers)\b|\bfriendly (?:units|minions|followers)\b|\ballies\b|\beach friendly (?:unit|minion)\b`)},
	{"opponent", TargetOpponent, FilterNone, regexp.MustCompile(`\b(?:the )?enemy (?:hero|nexus|player|champion|leader)\b|\b(?:your |the )?opponent\b|\bthe enemy\b`)},
	{"player", TargetPlayer, FilterNone, regexp.MustCompile(`\byour (?:hero|nexus|player|champion|leader)\b|\byourself\b|\byou\b`)},
	{"friendly unit", TargetAny, FilterFriendlyUnit, regexp.MustCompile(`\b(?:a|an|one|another|target) (?:other )?(?:friendly|allied) (?:unit|minion|follower)\b|\b(?:an|another) ally\b`)},
	{"enemy unit", TargetAny, FilterEnemyUnit, regexp.MustCompile(`\b(?:a|an|one|target) (?:enemy|opposing) (?:unit|minion|follower)\b`)},
	{"any unit", TargetAny, FilterAnyUnit, regexp.MustCompile(`\b(?:a|an|one|target|another) (?:unit|minion|follower)\b`)},
	{"enemy character", TargetAny, FilterEnemyCharacter, regexp.MustCompile(`\b(?:an|target) enemy\b`)},
	{"any target", TargetAny, FilterAnyCharacter, regexp.MustCompile(`\bany target\b|\b(?:a|one) target\b|\ba character\b|\btarget\b`)},
	{"previous", targetPrevious, FilterNone, regexp.MustCompile(`\b(?:they|them|their)\b`)},
	{"self", TargetSelf, FilterNone, regexp.MustCompile(`\bthis (?:unit|minion|follower|card|champion)\b|\bitself\b|\bthis\b|\bit\b`)},
}

// TargetRules returns a copy of the ordered target phrase table.
func TargetRules() []TargetRule {
	out := make([]TargetRule, len(targetRules))
	copy(out, targetRules)
	return out
}

// extractTarget returns the first target rule matching text.
func extractTarget(text string) (TargetType, TargetFilter, bool) {
	for _, rule := range targetRules {
		if rule.Pattern.MatchString(text) {
			return rule.Target, rule.Filter, true
		}
	}
	return TargetNone, FilterNone, false
}

func isAllTarget(t TargetType) bool {
	return t == TargetAllUnits || t == TargetAllEnemy || t == TargetAllFriendly
}

type durationRule struct {
	kind    DurationKind
	pattern *regexp.Regexp
}

var durationRules = []durationRule{
	{DurationEndOfTurn, regexp.MustCompile(`\buntil (?:the )?end of (?:the |this )?(?:turn|round)\b`)},
	{DurationThisTurn, regexp.MustCompile(`\bthis (?:turn|round)\b`)},
	{DurationTurns, regexp.MustCompile(`\bfor (?:the next )?` + numberWord + ` (?:turns?|rounds?)\b`)},
	{DurationPermanent, regexp.MustCompile(`\bpermanently\b|\bforever\b`)},
}

// extractDuration finds a duration phrase and returns the text with the phrase
// removed so it cannot be mistaken for a target.
func extractDuration(text string) (Duration, string, bool) {
	for _, rule := range durationRules {
		m := rule.pattern.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		d := Duration{Kind: rule.kind}
		if rule.kind == DurationTurns && len(m) >= 4 && m[2] >= 0 {
			n, _ := parseNumber(text[m[2]:m[3]])
			d.Turns = n
		}
		stripped := strings.TrimSpace(whitespace.ReplaceAllString(text[:m[0]]+" "+text[m[1]:], " "))
		return d, stripped, true
	}
	return Duration{}, text, false
}

var (
	statSlash       = regexp.MustCompile(`([+-]\d+)\s*/\s*([+-]\d+)`)
	statAttackFirst = regexp.MustCompile(`([+-]\d+) attack and ([+-]\d+) health`)
	statHealthFirst = regexp.MustCompile(`([+-]\d+) health and ([+-]\d+) attack`)
	statAttackOnly  = regexp.MustCompile(`([+-]\d+) (?:attack|power)\b`)
	statHealthOnly  = regexp.MustCompile(`([+-]\d+) (?:health|toughness)\b`)
	baseStats       = regexp.MustCompile(`\b(\d+)\s*/\s*(\d+)\b`)
)

func atoiSigned(s string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(s, "+"))
	return n
}

// extractStats recognizes "+X/+Y", "+X attack and +Y health" (either order),
// attack-only and health-only modifiers.
func extractStats(text string) (StatModifiers, bool) {
	if m := statSlash.FindStringSubmatch(text); m != nil {
		return StatModifiers{Attack: atoiSigned(m[1]), Health: atoiSigned(m[2])}, true
	}
	if m := statAttackFirst.FindStringSubmatch(text); m != nil {
		return StatModifiers{Attack: atoiSigned(m[1]), Health: atoiSigned(m[2])}, true
	}
	if m := statHealthFirst.FindStringSubmatch(text); m != nil {
		return StatModifiers{Attack: atoiSigned(m[2]), Health: atoiSigned(m[1])}, true
	}
	var (
		mods  StatModifiers
		found bool
	)
	if m := statAttackOnly.FindStringSubmatch(text); m != nil {
		mods.Attack = atoiSigned(m[1])
		found = true
	}
	if m := statHealthOnly.FindStringSubmatch(text); m != nil {
		mods.Health = atoiSigned(m[1])
		found = true
	}
	return mods, found
}

// Keywords is the closed keyword vocabulary, longest phrases first so that
// "divine shield" is preferred over any shorter overlap.
var Keywords = []string{
	"divine shield",
	"quick attack",
	"spellshield",
	"regeneration",
	"challenger",
	"overwhelm",
	"poisonous",
	"lifesteal",
	"windfury",
	"fearsome",
	"elusive",
	"stealth",
	"barrier",
	"charge",
	"taunt",
	"tough",
	"rush",
}

var (
	keywordPattern = regexp.MustCompile(`\b(` + strings.Join(Keywords, "|") + `)\b`)
	quotedKeyword  = regexp.MustCompile(`\b(?:gains?|gets?|has|have) "([^"]+)"`)
)

// extractKeyword returns a vocabulary keyword or a quoted literal after "gain".
func extractKeyword(text string) (string, bool) {
	if m := quotedKeyword.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := keywordPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// IsKeyword reports whether word belongs to the keyword vocabulary.
func IsKeyword(word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	for _, k := range Keywords {
		if k == word {
			return true
		}
	}
	return false
}

// tokenID converts a token name phrase into a template reference.
// Plural names are reduced to their singular form so "two wolves" and
// "a wolf token" reference the same template.
func tokenID(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, " tokens")
	name = strings.TrimSuffix(name, " token")
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	words[len(words)-1] = singular(words[len(words)-1])
	return strings.Join(words, "-")
}

func singular(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ves"):
		return strings.TrimSuffix(word, "ves") + "f"
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return strings.TrimSuffix(word, "ies") + "y"
	case len(word) > 3 && strings.HasSuffix(word, "s") &&
		!strings.HasSuffix(word, "ss") && !strings.HasSuffix(word, "us"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}
