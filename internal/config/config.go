// Package config loads duelcore settings from YAML and DUELCORE_ environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/emberline/duelcore/internal/game"
)

// EnvPrefix is prepended to every environment override, e.g.
// DUELCORE_RULES_BOARD_SIZE.
const EnvPrefix = "DUELCORE"

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Content ContentConfig `mapstructure:"content"`
	Storage StorageConfig `mapstructure:"storage"`
	Replay  ReplayConfig  `mapstructure:"replay"`
}

// ServerConfig configures the websocket host.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// TurnTimeout synthesizes a pass for the player holding up the match.
	// Zero disables the timer.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
	// AIDecider is "greedy" or "random".
	AIDecider string `mapstructure:"ai_decider"`
	// AllowedOrigins is empty to accept any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RulesConfig holds the match constants.
type RulesConfig struct {
	BoardSize      int `mapstructure:"board_size"`
	StartingHealth int `mapstructure:"starting_health"`
	MaxMana        int `mapstructure:"max_mana"`
	MaxSpellMana   int `mapstructure:"max_spell_mana"`
	StartingHand   int `mapstructure:"starting_hand"`
	MaxHandSize    int `mapstructure:"max_hand_size"`
	CounterCost    int `mapstructure:"counter_cost"`
	ActionHistory  int `mapstructure:"action_history"`
	RoundOneMana   int `mapstructure:"round_one_mana"`
}

// ContentConfig locates card content.
type ContentConfig struct {
	Cards string `mapstructure:"cards"`
	Deck  string `mapstructure:"deck"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// StorageConfig selects where match snapshots are kept.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	Dir         string `mapstructure:"dir"`
	DatabaseURL string `mapstructure:"database_url"`
}

// ReplayConfig controls replay recording.
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.turn_timeout", "90s")
	v.SetDefault("server.ai_decider", "greedy")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	d := game.DefaultRules()
	v.SetDefault("rules.board_size", d.BoardSize)
	v.SetDefault("rules.starting_health", d.StartingHealth)
	v.SetDefault("rules.max_mana", d.MaxMana)
	v.SetDefault("rules.max_spell_mana", d.MaxSpellMana)
	v.SetDefault("rules.starting_hand", d.StartingHand)
	v.SetDefault("rules.max_hand_size", d.MaxHandSize)
	v.SetDefault("rules.counter_cost", d.CounterCost)
	v.SetDefault("rules.action_history", d.ActionHistory)
	v.SetDefault("rules.round_one_mana", d.RoundOneMana)

	v.SetDefault("content.cards", "content/core.yaml")
	v.SetDefault("content.deck", "starter")

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.dir", "data/snapshots")
	v.SetDefault("storage.database_url", "")

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "data/replays")
}

// Load reads path (which may be empty) and applies defaults and environment
// overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	r := c.Rules
	if r.BoardSize < 1 {
		errs = append(errs, fmt.Errorf("rules.board_size must be positive, got %d", r.BoardSize))
	}
	if r.StartingHealth < 1 {
		errs = append(errs, fmt.Errorf("rules.starting_health must be positive, got %d", r.StartingHealth))
	}
	if r.MaxMana < 0 || r.MaxSpellMana < 0 || r.CounterCost < 0 || r.RoundOneMana < 0 {
		errs = append(errs, errors.New("rules mana values must not be negative"))
	}
	if r.MaxHandSize < r.StartingHand {
		errs = append(errs, fmt.Errorf("rules.max_hand_size %d is below starting_hand %d", r.MaxHandSize, r.StartingHand))
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverFile:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Server.TurnTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.turn_timeout must not be negative, got %s", c.Server.TurnTimeout))
	}
	switch c.Server.AIDecider {
	case "greedy", "random":
	default:
		errs = append(errs, fmt.Errorf("unknown server.ai_decider %q", c.Server.AIDecider))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// GameRules converts the rules section for the engine.
func (r RulesConfig) GameRules() game.Rules {
	return game.Rules{
		BoardSize:      r.BoardSize,
		StartingHealth: r.StartingHealth,
		MaxMana:        r.MaxMana,
		MaxSpellMana:   r.MaxSpellMana,
		StartingHand:   r.StartingHand,
		MaxHandSize:    r.MaxHandSize,
		CounterCost:    r.CounterCost,
		ActionHistory:  r.ActionHistory,
		RoundOneMana:   r.RoundOneMana,
	}
}
