// Package syncals keeps a booking system in step with a calendar.
//
// A Syncer fetches meeting records from one or more providers together with
// the existing bookings of a sink, reconciles them against compiled rules
// and applies the resulting adds and deletes to the sink. Runs can be
// triggered by hand or on a cron schedule, and callbacks fire for every
// booking the sink created or cancelled.
//
// Example usage:
//
//	rules, err := reconcile.LoadRules("rules.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := syncals.New(
//	    syncals.WithRules(rules),
//	    syncals.WithProviders(calendar),
//	    syncals.WithSink(bookings),
//	    syncals.WithStrategy(reconcile.ApplyAdditionsOnly),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s.OnAdded(func(b events.Record) {
//	    log.Printf("booked: %s", b)
//	})
//
//	// Inspect the plan without touching the sink
//	result, err := s.Plan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
//
//	// Or plan and apply in one run
//	run, err := s.Sync(ctx)
package syncals

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/logging"
	"github.com/syncals/syncals/pkg/reconcile"
)

// Compile-time interface check to ensure proper implementation.
var _ Syncer = (*client)(nil)

// Syncer plans and applies booking changes.
type Syncer interface {
	Planner
	Applier
	AutoSyncer
	Hooks

	// Sync plans and applies in one run.
	Sync(ctx context.Context) (*SyncResult, error)

	// Ruleset returns the compiled rules in use.
	Ruleset() *reconcile.Ruleset
}

// client is the Syncer implementation.
type client struct {
	mu      sync.Mutex
	running sync.Mutex
	options *options
	ruleset *reconcile.Ruleset
	hooks   *hooks

	// auto sync
	cron *cron.Cron
}

// New creates a Syncer. Rules are required, either raw or compiled.
func New(opts ...Option) (Syncer, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	rs := o.ruleset
	if rs == nil {
		if o.rules == nil {
			return nil, errors.NewValidationError("rules", nil, "rules or a compiled ruleset are required")
		}
		for _, d := range o.rules.Validate() {
			o.log().Warn().Str("kind", string(d.Kind)).Msg(d.Message)
		}
		rs, err = o.rules.Compile()
		if err != nil {
			return nil, errors.NewConfigError("rules", "compile failed", err)
		}
	}

	if len(o.providers) == 0 && !(o.resume && o.cache != nil) {
		return nil, errors.NewValidationError("providers", nil, "at least one provider is required")
	}
	if o.resume && o.cache == nil {
		return nil, errors.NewValidationError("resume", true, "resuming needs a cache")
	}

	return &client{
		options: o,
		ruleset: rs,
		hooks:   newHooks(),
	}, nil
}

// Ruleset returns the compiled rules in use.
func (c *client) Ruleset() *reconcile.Ruleset {
	return c.ruleset
}

// OnAdded registers a callback for created bookings.
func (c *client) OnAdded(fn AddedHook) {
	c.hooks.OnAdded(fn)
}

// OnDeleted registers a callback for cancelled bookings.
func (c *client) OnDeleted(fn DeletedHook) {
	c.hooks.OnDeleted(fn)
}

func (o *options) log() *zerolog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return logging.Default()
}
