// Package config holds the syncals configuration file model and its
// Viper-backed loading.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/viper"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/reconcile"
)

// Provider and sink types understood by the registry.
const (
	TypeICS      = "ics"
	TypeSnapshot = "snapshot"
	TypeSQLite   = "sqlite"
)

// SourceConfig configures one event source provider.
type SourceConfig struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Type string `mapstructure:"type" yaml:"type"`

	// File or URL locate the calendar. URLSecret reads the URL from the
	// environment instead.
	File      string     `mapstructure:"file" yaml:"file,omitempty"`
	URL       string     `mapstructure:"url" yaml:"url,omitempty"`
	URLSecret Secret     `mapstructure:"url_secret" yaml:"url_secret,omitempty"`
	Auth      AuthConfig `mapstructure:"auth" yaml:"auth,omitempty"`

	Origin         string   `mapstructure:"origin" yaml:"origin,omitempty"`
	Tags           []string `mapstructure:"tags" yaml:"tags,omitempty"`
	Timezone       string   `mapstructure:"timezone" yaml:"timezone,omitempty"`
	MaxOccurrences int      `mapstructure:"max_occurrences" yaml:"max_occurrences,omitempty"`
}

// AuthConfig authenticates requests for a calendar URL. Scheme is one of
// bearer, basic, header or query; Name is the basic auth user, the header
// or the query parameter.
type AuthConfig struct {
	Scheme string `mapstructure:"scheme" yaml:"scheme,omitempty"`
	Name   string `mapstructure:"name" yaml:"name,omitempty"`
	Secret Secret `mapstructure:"secret" yaml:"secret,omitempty"`
}

// TargetConfig configures the booking sink.
type TargetConfig struct {
	ID        string `mapstructure:"id" yaml:"id"`
	Type      string `mapstructure:"type" yaml:"type"`
	Path      string `mapstructure:"path" yaml:"path"`
	Origin    string `mapstructure:"origin" yaml:"origin,omitempty"`
	Menu      string `mapstructure:"menu" yaml:"menu,omitempty"`
	Timezone  string `mapstructure:"timezone" yaml:"timezone,omitempty"`
	RefPrefix string `mapstructure:"ref_prefix" yaml:"ref_prefix,omitempty"`
}

// MatchRules checks that origin and menu, when set, repeat the rules'
// target_origin and automation_menu. Bookings are recognised by those two
// values, so a target writing anything else is never matched or cancelled.
func (t TargetConfig) MatchRules(r *reconcile.Rules) error {
	if t.Origin != "" && t.Origin != r.TargetOrigin {
		return errors.NewValidationError("target.origin", t.Origin,
			fmt.Sprintf("must match rules target_origin %q", r.TargetOrigin))
	}
	if t.Menu != "" && t.Menu != r.AutomationMenu {
		return errors.NewValidationError("target.menu", t.Menu,
			fmt.Sprintf("must match rules automation_menu %q", r.AutomationMenu))
	}
	return nil
}

// ApplyConfig selects which planned changes reach the sink.
type ApplyConfig struct {
	SkipAdd    bool   `mapstructure:"skip_add" yaml:"skip_add"`
	SkipDelete bool   `mapstructure:"skip_delete" yaml:"skip_delete"`
	Strategy   string `mapstructure:"strategy" yaml:"strategy,omitempty"`
}

// ApplyStrategy resolves the strategy. An explicit strategy wins over the
// skip flags.
func (a ApplyConfig) ApplyStrategy() (reconcile.ApplyStrategy, error) {
	if a.Strategy != "" {
		return reconcile.ParseApplyStrategy(a.Strategy)
	}
	return reconcile.StrategyFor(a.SkipAdd, a.SkipDelete), nil
}

// CacheConfig configures the snapshot of the last fetch.
type CacheConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Resume bool   `mapstructure:"resume" yaml:"resume"`
}

// Config is the syncals configuration file.
type Config struct {
	// RulesFile loads engine rules from a separate YAML file. Without it
	// the inline Rules are used.
	RulesFile string          `mapstructure:"rules_file" yaml:"rules_file,omitempty"`
	Rules     reconcile.Rules `mapstructure:"rules" yaml:"rules"`

	Sources []SourceConfig `mapstructure:"sources" yaml:"sources"`
	Target  *TargetConfig  `mapstructure:"target" yaml:"target,omitempty"`
	Apply   ApplyConfig    `mapstructure:"apply" yaml:"apply"`
	Cache   CacheConfig    `mapstructure:"cache" yaml:"cache"`

	Schedule     string        `mapstructure:"schedule" yaml:"schedule,omitempty"`
	Listen       string        `mapstructure:"listen" yaml:"listen,omitempty"`
	RangeDays    int           `mapstructure:"range_days" yaml:"range_days"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

// Default returns a Config with default rules and no providers.
func Default() *Config {
	return &Config{
		Rules:        *reconcile.DefaultRules(),
		RangeDays:    constants.DefaultRangeDays,
		FetchTimeout: constants.SourceFetchTimeout,
	}
}

// Load decodes v on top of Default and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewConfigError("config", "decode failed", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks provider declarations and scalar settings.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources)+1)
	for i, s := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if s.ID == "" {
			return errors.NewValidationError(field+".id", s.ID, "id is required")
		}
		if seen[s.ID] {
			return errors.NewValidationError(field+".id", s.ID, "duplicate id")
		}
		seen[s.ID] = true
		if !slices.Contains(SourceTypes, s.Type) {
			return errors.NewValidationError(field+".type", s.Type, fmt.Sprintf("must be one of %v", SourceTypes))
		}
	}

	if t := c.Target; t != nil {
		if t.ID == "" {
			return errors.NewValidationError("target.id", t.ID, "id is required")
		}
		if seen[t.ID] {
			return errors.NewValidationError("target.id", t.ID, "duplicate id")
		}
		if !slices.Contains(TargetTypes, t.Type) {
			return errors.NewValidationError("target.type", t.Type, fmt.Sprintf("must be one of %v", TargetTypes))
		}
		if t.Path == "" {
			return errors.NewValidationError("target.path", t.Path, "path is required")
		}
		// rules_file is read later, the caller checks against those
		if c.RulesFile == "" {
			if err := t.MatchRules(&c.Rules); err != nil {
				return err
			}
		}
	}

	if _, err := c.Apply.ApplyStrategy(); err != nil {
		return errors.NewValidationError("apply.strategy", c.Apply.Strategy, err.Error())
	}
	if c.RangeDays <= 0 {
		return errors.NewValidationError("range_days", c.RangeDays, "must be positive")
	}
	if c.Cache.Resume && c.Cache.Path == "" {
		return errors.NewValidationError("cache.path", "", "resuming needs a cache path")
	}
	return nil
}

// SourceTypes lists the provider types a source may declare.
var SourceTypes = []string{TypeICS, TypeSnapshot}

// TargetTypes lists the sink types a target may declare.
var TargetTypes = []string{TypeSnapshot, TypeSQLite}

// LoadRules returns the engine rules, read from RulesFile when set.
func (c *Config) LoadRules() (*reconcile.Rules, error) {
	if c.RulesFile != "" {
		return reconcile.LoadRules(c.RulesFile)
	}
	r := c.Rules
	return &r, nil
}
