package ability

import "fmt"

// Trigger is the timing condition that schedules an ability's actions.
type Trigger string

const (
	TriggerOnPlay      Trigger = "on_play"
	TriggerStartOfTurn Trigger = "start_of_turn"
	TriggerEndOfTurn   Trigger = "end_of_turn"
	TriggerOnAttack    Trigger = "on_attack"
	TriggerOnDeath     Trigger = "on_death"
	TriggerPassive     Trigger = "passive"
)

// ActionKind tags the variant carried by a ParsedAction.
type ActionKind string

const (
	ActionDealDamage      ActionKind = "dealDamage"
	ActionGainHealth      ActionKind = "gainHealth"
	ActionDrawCards       ActionKind = "drawCards"
	ActionStatBuff        ActionKind = "statBuff"
	ActionDiscardCards    ActionKind = "discardCards"
	ActionSummonUnit      ActionKind = "summonUnit"
	ActionDestroyUnit     ActionKind = "destroyUnit"
	ActionGainMana        ActionKind = "gainMana"
	ActionHealAllUnits    ActionKind = "healAllUnits"
	ActionDamageAllUnits  ActionKind = "damageAllUnits"
	ActionBuffAllUnits    ActionKind = "buffAllUnits"
	ActionDestroyAllUnits ActionKind = "destroyAllUnits"
	ActionAddKeyword      ActionKind = "addKeyword"
)

// TargetType names the entity set an action applies to.
type TargetType string

const (
	TargetNone        TargetType = ""
	TargetSelf        TargetType = "self"
	TargetPlayer      TargetType = "player"
	TargetOpponent    TargetType = "opponent"
	TargetAllFriendly TargetType = "all_friendly"
	TargetAllEnemy    TargetType = "all_enemy"
	TargetAllUnits    TargetType = "all_units"
	TargetAny         TargetType = "any_target"
)

// TargetFilter narrows an any_target selection.
type TargetFilter string

const (
	FilterNone           TargetFilter = ""
	FilterAnyUnit        TargetFilter = "unit"
	FilterFriendlyUnit   TargetFilter = "friendly_unit"
	FilterEnemyUnit      TargetFilter = "enemy_unit"
	FilterAnyCharacter   TargetFilter = "character"
	FilterEnemyCharacter TargetFilter = "enemy_character"
)

// DurationKind describes how long an effect lasts.
type DurationKind string

const (
	DurationNone      DurationKind = ""
	DurationThisTurn  DurationKind = "this_turn"
	DurationEndOfTurn DurationKind = "end_of_turn"
	DurationTurns     DurationKind = "turns"
	DurationPermanent DurationKind = "permanent"
)

// Duration is a DurationKind plus a turn count for DurationTurns.
type Duration struct {
	Kind  DurationKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Turns int          `json:"turns,omitempty" yaml:"turns,omitempty"`
}

// Expiring reports whether the duration ends after a number of turn ends.
func (d Duration) Expiring() bool {
	switch d.Kind {
	case DurationThisTurn, DurationEndOfTurn, DurationTurns:
		return true
	}
	return false
}

// RemainingTurns returns how many end-of-turn ticks the effect survives.
// Permanent and empty durations return -1.
func (d Duration) RemainingTurns() int {
	switch d.Kind {
	case DurationThisTurn, DurationEndOfTurn:
		return 1
	case DurationTurns:
		if d.Turns < 1 {
			return 1
		}
		return d.Turns
	}
	return -1
}

// StatModifiers is an attack/health delta, or base stats for summons.
type StatModifiers struct {
	Attack int `json:"attack" yaml:"attack"`
	Health int `json:"health" yaml:"health"`
}

// IsZero reports whether both deltas are zero.
func (s StatModifiers) IsZero() bool { return s.Attack == 0 && s.Health == 0 }

func (s StatModifiers) String() string {
	return fmt.Sprintf("%+d/%+d", s.Attack, s.Health)
}

// ManaPool selects which pool gainMana refills.
type ManaPool string

const (
	PoolNone  ManaPool = ""
	PoolMana  ManaPool = "mana"
	PoolSpell ManaPool = "spell_mana"
)

// Condition qualifies an action beyond its amount.
type Condition string

const (
	ConditionNone          Condition = ""
	ConditionUntilHandSize Condition = "until_hand_size"
)

// DiscardEntireHand is the discardCards amount meaning "the whole hand".
const DiscardEntireHand = -1

// ParsedAction is one executable step of an ability. Only the fields that are
// relevant to Kind are populated; see Validate.
type ParsedAction struct {
	Kind      ActionKind     `json:"kind"`
	Amount    int            `json:"amount,omitempty"`
	Target    TargetType     `json:"target,omitempty"`
	Filter    TargetFilter   `json:"filter,omitempty"`
	Stats     *StatModifiers `json:"stats,omitempty"`
	Keyword   string         `json:"keyword,omitempty"`
	Duration  Duration       `json:"duration,omitempty"`
	Condition Condition      `json:"condition,omitempty"`
	Token     string         `json:"token,omitempty"`
	Pool      ManaPool       `json:"pool,omitempty"`
}

// fieldSet describes which optional fields a kind may carry.
type fieldSet struct {
	amount, target, stats, keyword, duration, condition, token, pool bool
}

var kindFields = map[ActionKind]fieldSet{
	ActionDealDamage:      {amount: true, target: true},
	ActionGainHealth:      {amount: true, target: true},
	ActionDrawCards:       {amount: true, condition: true},
	ActionStatBuff:        {target: true, stats: true, duration: true},
	ActionDiscardCards:    {amount: true},
	ActionSummonUnit:      {amount: true, stats: true, token: true},
	ActionDestroyUnit:     {target: true},
	ActionGainMana:        {amount: true, pool: true},
	ActionHealAllUnits:    {amount: true, target: true},
	ActionDamageAllUnits:  {amount: true, target: true},
	ActionBuffAllUnits:    {target: true, stats: true, duration: true},
	ActionDestroyAllUnits: {target: true},
	ActionAddKeyword:      {target: true, keyword: true, duration: true},
}

// Validate checks that the action only carries fields relevant to its kind
// and that required fields are present.
func (a ParsedAction) Validate() error {
	fs, ok := kindFields[a.Kind]
	if !ok {
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if !fs.amount && a.Amount != 0 {
		return fmt.Errorf("%s does not carry an amount", a.Kind)
	}
	if !fs.target && a.Target != TargetNone {
		return fmt.Errorf("%s does not carry a target", a.Kind)
	}
	if a.Filter != FilterNone && a.Target != TargetAny {
		return fmt.Errorf("%s carries a target filter without any_target", a.Kind)
	}
	if !fs.stats && a.Stats != nil {
		return fmt.Errorf("%s does not carry stat modifiers", a.Kind)
	}
	if !fs.keyword && a.Keyword != "" {
		return fmt.Errorf("%s does not carry a keyword", a.Kind)
	}
	if !fs.duration && a.Duration.Kind != DurationNone {
		return fmt.Errorf("%s does not carry a duration", a.Kind)
	}
	if !fs.condition && a.Condition != ConditionNone {
		return fmt.Errorf("%s does not carry a condition", a.Kind)
	}
	if !fs.token && a.Token != "" {
		return fmt.Errorf("%s does not carry a token", a.Kind)
	}
	if !fs.pool && a.Pool != PoolNone {
		return fmt.Errorf("%s does not carry a mana pool", a.Kind)
	}

	switch a.Kind {
	case ActionAddKeyword:
		if a.Keyword == "" {
			return fmt.Errorf("addKeyword requires a keyword")
		}
	case ActionStatBuff, ActionBuffAllUnits:
		if a.Stats == nil {
			return fmt.Errorf("%s requires stat modifiers", a.Kind)
		}
	case ActionSummonUnit:
		if a.Stats == nil && a.Token == "" {
			return fmt.Errorf("summonUnit requires base stats or a token reference")
		}
	case ActionGainMana:
		if a.Pool == PoolNone {
			return fmt.Errorf("gainMana requires a pool")
		}
	}
	return nil
}

func (a ParsedAction) String() string {
	s := string(a.Kind)
	if a.Amount != 0 {
		s += fmt.Sprintf(" amount=%d", a.Amount)
	}
	if a.Target != TargetNone {
		s += " target=" + string(a.Target)
	}
	if a.Filter != FilterNone {
		s += " filter=" + string(a.Filter)
	}
	if a.Stats != nil {
		s += " stats=" + a.Stats.String()
	}
	if a.Keyword != "" {
		s += " keyword=" + a.Keyword
	}
	if a.Duration.Kind != DurationNone {
		s += " duration=" + string(a.Duration.Kind)
		if a.Duration.Kind == DurationTurns {
			s += fmt.Sprintf("(%d)", a.Duration.Turns)
		}
	}
	if a.Condition != ConditionNone {
		s += " condition=" + string(a.Condition)
	}
	if a.Token != "" {
		s += " token=" + a.Token
	}
	if a.Pool != PoolNone {
		s += " pool=" + string(a.Pool)
	}
	return s
}

// ParsedAbility is the compiled form of one ability text.
type ParsedAbility struct {
	Trigger    Trigger        `json:"trigger"`
	Actions    []ParsedAction `json:"actions"`
	IsCompound bool           `json:"is_compound"`
}

// Empty reports whether the ability has nothing to execute.
func (p ParsedAbility) Empty() bool { return len(p.Actions) == 0 }

// NeedsTarget reports whether any action requires an externally chosen target.
func (p ParsedAbility) NeedsTarget() bool {
	for _, a := range p.Actions {
		if a.Target == TargetAny {
			return true
		}
	}
	return false
}

// Warning records a fragment the compiler could not translate.
type Warning struct {
	Fragment string `json:"fragment"`
	Reason   string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %q", w.Reason, w.Fragment)
}
