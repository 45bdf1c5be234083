package ability

import (
	"regexp"
	"strings"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	sentenceEnd  = regexp.MustCompile(`[.;!]+(?:\s+|$)`)
	thenBoundary = regexp.MustCompile(`(?:,\s*|\s+)then\s+`)
	andBoundary  = regexp.MustCompile(`,\s*and\s+|\s+and\s+|,\s*`)
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "‘", "'", "’", "'", "—", " ", "–", "-",
)

// clauseVerbs are the leading words that mark an independent action clause.
var clauseVerbs = map[string]bool{
	"deal": true, "deals": true, "draw": true, "draws": true,
	"gain": true, "gains": true, "destroy": true, "destroys": true,
	"kill": true, "they": true, "give": true, "gives": true,
	"grant": true, "grants": true, "heal": true, "heals": true,
	"restore": true, "restores": true, "summon": true, "summons": true,
	"create": true, "creates": true, "discard": true, "discards": true,
	"refill": true, "it": true, "this": true,
}

// normalize lowercases text and collapses whitespace and typographic quotes.
func normalize(text string) string {
	text = quoteReplacer.Replace(text)
	text = strings.ToLower(text)
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// looksLikeClause reports whether s starts with a recognized action verb.
func looksLikeClause(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	word := s
	if i := strings.IndexByte(s, ' '); i >= 0 {
		word = s[:i]
	}
	return clauseVerbs[word]
}

// splitFragments segments action text into independent clauses on sentence
// boundaries, explicit "then" sequencing, and conjunctions joining two
// clauses. A conjunction whose sides are not both clauses stays inside the
// fragment, which keeps "+2 attack and +2 health" and "units and players"
// intact.
func splitFragments(text string) []string {
	var out []string
	for _, sentence := range sentenceEnd.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		for _, step := range thenBoundary.Split(sentence, -1) {
			step = strings.TrimPrefix(strings.TrimSpace(step), "then ")
			step = strings.TrimSpace(strings.TrimSuffix(step, ","))
			if step == "" {
				continue
			}
			out = append(out, splitConjunctions(step)...)
		}
	}
	return out
}

func splitConjunctions(text string) []string {
	bounds := andBoundary.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []string{text}
	}

	var (
		out     []string
		current = text[:bounds[0][0]]
	)
	for i, b := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		next := text[b[1]:end]
		if looksLikeClause(current) && looksLikeClause(next) {
			out = append(out, strings.TrimSpace(current))
			current = next
			continue
		}
		current += text[b[0]:b[1]] + next
	}
	out = append(out, strings.TrimSpace(current))
	return out
}
