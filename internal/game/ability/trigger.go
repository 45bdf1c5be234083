package ability

import "regexp"

// TriggerRule recognizes one leading trigger clause.
type TriggerRule struct {
	Name    string
	Trigger Trigger
	Pattern *regexp.Regexp
}

// triggerRules is tested in order; the first match wins. The end-of-turn rules
// sit ahead of the start-of-turn rules so that a phrase ending in "turn" is
// never claimed by the wrong one.
var triggerRules = []TriggerRule{
	{"deathrattle", TriggerOnDeath, regexp.MustCompile(`^(?:deathrattle|last breath)\s*:\s*`)},
	{"when dies", TriggerOnDeath, regexp.MustCompile(`^(?:when|whenever) (?:this|it|this unit|this minion) dies,?\s*`)},
	{"end of turn", TriggerEndOfTurn, regexp.MustCompile(`^at the end of (?:your|each|the|every) turn,?\s*`)},
	{"end of turn label", TriggerEndOfTurn, regexp.MustCompile(`^(?:end of turn|turn end)\s*:\s*`)},
	{"start of turn", TriggerStartOfTurn, regexp.MustCompile(`^at the (?:start|beginning) of (?:your|each|the|every) (?:turn|round),?\s*`)},
	{"start of turn label", TriggerStartOfTurn, regexp.MustCompile(`^(?:start of turn|round start)\s*:\s*`)},
	{"when attacks", TriggerOnAttack, regexp.MustCompile(`^(?:when|whenever) (?:this|it|this unit|this minion) attacks,?\s*`)},
	{"attack label", TriggerOnAttack, regexp.MustCompile(`^(?:attack|strike)\s*:\s*`)},
	{"battlecry", TriggerOnPlay, regexp.MustCompile(`^(?:battlecry|play|on play)\s*:\s*`)},
	{"when played", TriggerOnPlay, regexp.MustCompile(`^(?:when|whenever) (?:this is |this unit is |it is )?(?:played|summoned),?\s*`)},
	{"when you play", TriggerOnPlay, regexp.MustCompile(`^when you (?:play|summon) (?:this|it),?\s*`)},
	{"when enters", TriggerOnPlay, regexp.MustCompile(`^when (?:this|it) enters (?:play|the battlefield),?\s*`)},
	{"passive label", TriggerPassive, regexp.MustCompile(`^(?:passive|aura)\s*:\s*`)},
	{"while in play", TriggerPassive, regexp.MustCompile(`^while (?:this|it) is (?:in play|on the battlefield),?\s*`)},
}

// TriggerRules returns a copy of the ordered trigger table.
func TriggerRules() []TriggerRule {
	out := make([]TriggerRule, len(triggerRules))
	copy(out, triggerRules)
	return out
}

// extractTrigger matches the leading clause of normalized text and returns the
// trigger with the remaining action text. No match defaults to on_play and
// reports matched=false.
func extractTrigger(text string) (trigger Trigger, rest string, matched bool) {
	for _, rule := range triggerRules {
		if loc := rule.Pattern.FindStringIndex(text); loc != nil {
			return rule.Trigger, text[loc[1]:], true
		}
	}
	return TriggerOnPlay, text, false
}
