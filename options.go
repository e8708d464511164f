package syncals

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/reconcile"
	"github.com/syncals/syncals/pkg/sources"
)

// options holds the configuration of a Syncer.
type options struct {
	rules     *reconcile.Rules
	ruleset   *reconcile.Ruleset
	providers []sources.Provider
	sink      sources.Sink
	cache     sources.Cache
	resume    bool
	strategy  reconcile.ApplyStrategy
	schedule  string
	rangeDays int
	timeout   time.Duration
	logger    *zerolog.Logger
	now       func() time.Time
	confirm   ConfirmFunc
}

func defaults() *options {
	return &options{
		strategy:  reconcile.ApplyAll,
		rangeDays: constants.DefaultRangeDays,
		timeout:   constants.SourceFetchTimeout,
		now:       time.Now,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option is a function that configures a Syncer.
type Option func(*options) error

// WithRules compiles rules for the engine.
func WithRules(rules *reconcile.Rules) Option {
	return func(o *options) error {
		if rules == nil {
			return errors.NewValidationError("rules", nil, "rules are required")
		}
		o.rules = rules
		return nil
	}
}

// WithRuleset uses already compiled rules.
func WithRuleset(rs *reconcile.Ruleset) Option {
	return func(o *options) error {
		o.ruleset = rs
		return nil
	}
}

// WithProviders adds event source providers.
func WithProviders(providers ...sources.Provider) Option {
	return func(o *options) error {
		o.providers = append(o.providers, providers...)
		return nil
	}
}

// WithSink sets the booking target. Its bookings are fetched alongside the
// providers and changes are applied to it.
func WithSink(sink sources.Sink) Option {
	return func(o *options) error {
		o.sink = sink
		return nil
	}
}

// WithCache stores every fetch in cache.
func WithCache(cache sources.Cache) Option {
	return func(o *options) error {
		o.cache = cache
		return nil
	}
}

// WithResume reconciles the cached records instead of fetching.
func WithResume(enabled bool) Option {
	return func(o *options) error {
		o.resume = enabled
		return nil
	}
}

// WithStrategy limits which changes Apply hands to the sink.
func WithStrategy(strategy reconcile.ApplyStrategy) Option {
	return func(o *options) error {
		if _, err := reconcile.ParseApplyStrategy(string(strategy)); err != nil {
			return errors.NewValidationError("strategy", strategy, err.Error())
		}
		o.strategy = strategy
		return nil
	}
}

// WithSchedule sets the cron expression used by AutoSyncOn.
func WithSchedule(spec string) Option {
	return func(o *options) error {
		o.schedule = spec
		return nil
	}
}

// WithRangeDays sets how many days from today are fetched.
func WithRangeDays(days int) Option {
	return func(o *options) error {
		if days <= 0 {
			return errors.NewValidationError("range_days", days, "must be positive")
		}
		o.rangeDays = days
		return nil
	}
}

// WithFetchTimeout bounds each provider fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.timeout = d
		return nil
	}
}

// WithLogger sets the logger diagnostics and progress are written to.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithClock replaces the clock that anchors the fetch window.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		o.now = now
		return nil
	}
}

// ConfirmFunc is asked before Sync applies pending changes. pending is the
// part of result the strategy lets through. Returning false skips the apply.
type ConfirmFunc func(ctx context.Context, result *reconcile.Result, pending *reconcile.Changeset) (bool, error)

// WithConfirm makes Sync ask fn before applying. Runs with nothing to apply
// do not ask.
func WithConfirm(fn ConfirmFunc) Option {
	return func(o *options) error {
		o.confirm = fn
		return nil
	}
}
