package ability

import (
	"regexp"
	"strings"
)

// fragment is one action clause with its phrase-level features extracted.
type fragment struct {
	raw  string // clause as split
	text string // clause with any duration phrase removed

	duration    Duration
	hasDuration bool

	target    TargetType
	filter    TargetFilter
	hasTarget bool

	stats    StatModifiers
	hasStats bool

	keyword    string
	hasKeyword bool
}

// subjectPrefix is a leading self-reference that names the actor, not the
// target, as in "this unit deals 2 damage".
var subjectPrefix = regexp.MustCompile(`^(?:it|this(?: unit| minion| card)?) `)

func analyze(clause string) fragment {
	f := fragment{raw: clause}
	f.duration, f.text, f.hasDuration = extractDuration(clause)
	f.target, f.filter, f.hasTarget = extractTarget(subjectPrefix.ReplaceAllString(f.text, ""))
	f.stats, f.hasStats = extractStats(f.text)
	f.keyword, f.hasKeyword = extractKeyword(f.text)
	return f
}

// ActionRule pairs a test predicate with an extractor. Rules are evaluated in
// order and the first rule whose Test matches wins.
type ActionRule struct {
	Name  string
	Kind  ActionKind
	Test  func(f fragment) bool
	Parse func(f fragment) ParsedAction
}

var (
	destroyAllRe   = regexp.MustCompile(`^(?:destroy|kill)s? (?:all|every|each|everything)\b`)
	destroyRe      = regexp.MustCompile(`^(?:destroy|kill)s?\b`)
	dealDamageRe   = regexp.MustCompile(`^(?:(?:it|this(?: unit| minion)?) )?deals? ` + numberWord + ` damage\b`)
	healRe         = regexp.MustCompile(`^(?:fully )?(?:heal|restore)s?\b`)
	healAmountRe   = regexp.MustCompile(`\b` + numberWord + ` (?:health|life)\b|\bfor ` + numberWord + `\b|\bby ` + numberWord + `\b`)
	gainHealthRe   = regexp.MustCompile(`^gains? ` + numberWord + ` (?:health|life|armor)\b`)
	gainManaRe     = regexp.MustCompile(`^(?:gain|refill|restore)s? (?:` + numberWord + ` )?(?:empty )?(spell mana|mana gems?|mana crystals?|mana)\b`)
	drawUntilRe    = regexp.MustCompile(`^draws? (?:cards )?until you have ` + numberWord + ` cards?\b`)
	drawRe         = regexp.MustCompile(`^draws? ` + numberWord + ` (?:more )?cards?\b`)
	discardHandRe  = regexp.MustCompile(`^discards? (?:your|their|the|his|her) (?:whole |entire )?hand\b`)
	discardRe      = regexp.MustCompile(`^discards? ` + numberWord + ` (?:random )?cards?\b`)
	summonStatsRe  = regexp.MustCompile(`^(?:summon|create)s? ` + numberWord + ` (\d+)\s*/\s*(\d+)\b`)
	summonTokenRe  = regexp.MustCompile(`^(?:summon|create)s? ` + numberWord + ` ([a-z][a-z' -]*)$`)
	grantVerbRe    = regexp.MustCompile(`^(?:give|grant)s?\b|\b(?:gains?|gets?|has|have)\b`)
	bareKeywordRe  = regexp.MustCompile(`^(?:` + strings.Join(Keywords, "|") + `)$`)
)

func amountFrom(re *regexp.Regexp, text string, group int) int {
	m := re.FindStringSubmatch(text)
	if m == nil || group >= len(m) {
		return 0
	}
	n, _ := parseNumber(m[group])
	return n
}

// targetOr returns the fragment's target or the provided default.
func (f fragment) targetOr(def TargetType, defFilter TargetFilter) (TargetType, TargetFilter) {
	if f.hasTarget {
		return f.target, f.filter
	}
	return def, defFilter
}

func (f fragment) durationOr(def DurationKind) Duration {
	if f.hasDuration {
		return f.duration
	}
	return Duration{Kind: def}
}

func statsPtr(s StatModifiers) *StatModifiers { return &s }

// actionRules is ordered most specific first: mass destruction before single
// destruction, mass damage before targeted damage, mass buffs before single
// buffs, and mana before health so "gain 2 mana" is never read as healing.
var actionRules = []ActionRule{
	{
		Name: "destroy all units",
		Kind: ActionDestroyAllUnits,
		Test: func(f fragment) bool {
			return destroyAllRe.MatchString(f.text) ||
				(destroyRe.MatchString(f.text) && f.hasTarget && isAllTarget(f.target))
		},
		Parse: func(f fragment) ParsedAction {
			t := TargetAllUnits
			if f.hasTarget && isAllTarget(f.target) {
				t = f.target
			}
			return ParsedAction{Kind: ActionDestroyAllUnits, Target: t}
		},
	},
	{
		Name: "destroy target unit",
		Kind: ActionDestroyUnit,
		Test: func(f fragment) bool { return destroyRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			t, flt := f.targetOr(TargetAny, FilterAnyUnit)
			switch {
			case t == TargetPlayer || t == TargetOpponent:
				t, flt = TargetAny, FilterAnyUnit
			case flt == FilterAnyCharacter:
				flt = FilterAnyUnit
			case flt == FilterEnemyCharacter:
				flt = FilterEnemyUnit
			}
			return ParsedAction{Kind: ActionDestroyUnit, Target: t, Filter: flt}
		},
	},
	{
		Name: "damage to all units",
		Kind: ActionDamageAllUnits,
		Test: func(f fragment) bool {
			return dealDamageRe.MatchString(f.text) && f.hasTarget && isAllTarget(f.target)
		},
		Parse: func(f fragment) ParsedAction {
			return ParsedAction{
				Kind:   ActionDamageAllUnits,
				Amount: amountFrom(dealDamageRe, f.text, 1),
				Target: f.target,
			}
		},
	},
	{
		Name: "damage to target",
		Kind: ActionDealDamage,
		Test: func(f fragment) bool { return dealDamageRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			t, flt := f.targetOr(TargetOpponent, FilterNone)
			return ParsedAction{
				Kind:   ActionDealDamage,
				Amount: amountFrom(dealDamageRe, f.text, 1),
				Target: t,
				Filter: flt,
			}
		},
	},
	{
		Name: "gain mana",
		Kind: ActionGainMana,
		Test: func(f fragment) bool { return gainManaRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			m := gainManaRe.FindStringSubmatch(f.text)
			amount := 1
			if m[1] != "" {
				amount, _ = parseNumber(m[1])
			}
			pool := PoolMana
			if m[2] == "spell mana" {
				pool = PoolSpell
			}
			return ParsedAction{Kind: ActionGainMana, Amount: amount, Pool: pool}
		},
	},
	{
		Name: "heal all units",
		Kind: ActionHealAllUnits,
		Test: func(f fragment) bool {
			return healRe.MatchString(f.text) && f.hasTarget && isAllTarget(f.target)
		},
		Parse: func(f fragment) ParsedAction {
			return ParsedAction{
				Kind:   ActionHealAllUnits,
				Amount: healAmount(f.text),
				Target: f.target,
			}
		},
	},
	{
		Name: "heal target",
		Kind: ActionGainHealth,
		Test: func(f fragment) bool {
			return (healRe.MatchString(f.text) && !f.hasStats) || gainHealthRe.MatchString(f.text)
		},
		Parse: func(f fragment) ParsedAction {
			t, flt := f.targetOr(TargetPlayer, FilterNone)
			amount := healAmount(f.text)
			if m := gainHealthRe.FindStringSubmatch(f.text); m != nil {
				amount, _ = parseNumber(m[1])
			}
			return ParsedAction{Kind: ActionGainHealth, Amount: amount, Target: t, Filter: flt}
		},
	},
	{
		Name: "buff all units",
		Kind: ActionBuffAllUnits,
		Test: func(f fragment) bool {
			return f.hasStats && f.hasTarget && isAllTarget(f.target) && grantVerbRe.MatchString(f.text)
		},
		Parse: func(f fragment) ParsedAction {
			return ParsedAction{
				Kind:     ActionBuffAllUnits,
				Target:   f.target,
				Stats:    statsPtr(f.stats),
				Duration: f.durationOr(DurationPermanent),
			}
		},
	},
	{
		Name: "buff target",
		Kind: ActionStatBuff,
		Test: func(f fragment) bool { return f.hasStats && grantVerbRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			t, flt := f.targetOr(TargetSelf, FilterNone)
			return ParsedAction{
				Kind:     ActionStatBuff,
				Target:   t,
				Filter:   flt,
				Stats:    statsPtr(f.stats),
				Duration: f.durationOr(DurationPermanent),
			}
		},
	},
	{
		Name: "draw until",
		Kind: ActionDrawCards,
		Test: func(f fragment) bool { return drawUntilRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			return ParsedAction{
				Kind:      ActionDrawCards,
				Amount:    amountFrom(drawUntilRe, f.text, 1),
				Condition: ConditionUntilHandSize,
			}
		},
	},
	{
		Name: "draw cards",
		Kind: ActionDrawCards,
		Test: func(f fragment) bool { return drawRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			return ParsedAction{Kind: ActionDrawCards, Amount: amountFrom(drawRe, f.text, 1)}
		},
	},
	{
		Name: "discard hand",
		Kind: ActionDiscardCards,
		Test: func(f fragment) bool { return discardHandRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			return ParsedAction{Kind: ActionDiscardCards, Amount: DiscardEntireHand}
		},
	},
	{
		Name: "discard cards",
		Kind: ActionDiscardCards,
		Test: func(f fragment) bool { return discardRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			return ParsedAction{Kind: ActionDiscardCards, Amount: amountFrom(discardRe, f.text, 1)}
		},
	},
	{
		Name: "summon stats",
		Kind: ActionSummonUnit,
		Test: func(f fragment) bool { return summonStatsRe.MatchString(f.raw) },
		Parse: func(f fragment) ParsedAction {
			m := summonStatsRe.FindStringSubmatch(f.raw)
			count, _ := parseNumber(m[1])
			base := StatModifiers{Attack: atoiSigned(m[2]), Health: atoiSigned(m[3])}
			return ParsedAction{Kind: ActionSummonUnit, Amount: count, Stats: &base}
		},
	},
	{
		Name: "summon token",
		Kind: ActionSummonUnit,
		Test: func(f fragment) bool { return summonTokenRe.MatchString(f.raw) },
		Parse: func(f fragment) ParsedAction {
			m := summonTokenRe.FindStringSubmatch(f.raw)
			count, _ := parseNumber(m[1])
			return ParsedAction{Kind: ActionSummonUnit, Amount: count, Token: tokenID(m[2])}
		},
	},
	{
		Name: "grant keyword",
		Kind: ActionAddKeyword,
		Test: func(f fragment) bool { return f.hasKeyword && grantVerbRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			t, flt := f.targetOr(TargetSelf, FilterNone)
			return ParsedAction{
				Kind:     ActionAddKeyword,
				Target:   t,
				Filter:   flt,
				Keyword:  f.keyword,
				Duration: f.durationOr(DurationPermanent),
			}
		},
	},
	{
		Name: "bare keyword",
		Kind: ActionAddKeyword,
		Test: func(f fragment) bool { return bareKeywordRe.MatchString(f.text) },
		Parse: func(f fragment) ParsedAction {
			return ParsedAction{
				Kind:     ActionAddKeyword,
				Target:   TargetSelf,
				Keyword:  f.text,
				Duration: Duration{Kind: DurationPermanent},
			}
		},
	},
}

// bareKeywordRule is the name of the rule that turns a lone keyword into a
// self-granted keyword.
const bareKeywordRule = "bare keyword"

func healAmount(text string) int {
	m := healAmountRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if g != "" {
			n, _ := parseNumber(g)
			return n
		}
	}
	return 0
}

// ActionRules returns a copy of the ordered action rule table.
func ActionRules() []ActionRule {
	out := make([]ActionRule, len(actionRules))
	copy(out, actionRules)
	return out
}

// matchAction returns the first rule matching the fragment.
func matchAction(f fragment) (ActionRule, bool) {
	for _, rule := range actionRules {
		if rule.Test(f) {
			return rule, true
		}
	}
	return ActionRule{}, false
}
