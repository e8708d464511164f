package syncals

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/logging"
	"github.com/syncals/syncals/pkg/reconcile"
	"github.com/syncals/syncals/pkg/sources"
)

// Planner computes changes without applying them.
type Planner interface {
	// Plan fetches every provider and the sink and reconciles the records.
	Plan(ctx context.Context) (*reconcile.Result, error)
}

// Applier hands planned changes to the sink.
type Applier interface {
	// Apply applies the changes of result allowed by the strategy.
	Apply(ctx context.Context, result *reconcile.Result) (sources.ApplyReport, error)
}

// SyncResult is the outcome of one Sync run.
type SyncResult struct {
	RunID  string
	Result *reconcile.Result
	Report sources.ApplyReport
}

// Plan implements Planner. Any provider failure aborts the plan: a partial
// view of the source would turn missing meetings into deletes.
func (c *client) Plan(ctx context.Context) (*reconcile.Result, error) {
	ctx = c.context(ctx)
	logger := logging.FromContext(ctx)

	rng := events.Days(c.options.now(), c.options.rangeDays)
	records, err := c.collect(ctx, rng)
	if err != nil {
		return nil, err
	}

	result := reconcile.Reconcile(records, c.ruleset)
	logDiagnostics(logger, result.Diagnostics)
	logger.Info().
		Int("records", len(records)).
		Int("adds", result.Stats.Adds).
		Int("deletes", result.Stats.Deletes).
		Msg(result.Summary())

	return result, nil
}

func (c *client) collect(ctx context.Context, rng events.Range) ([]events.Record, error) {
	logger := logging.FromContext(ctx)

	if c.options.resume {
		records, err := c.options.cache.Load(ctx)
		if err != nil {
			return nil, errors.WrapResource("load", "cache", "", err)
		}
		logger.Info().Int("records", len(records)).Msg("Resuming from cached records")
		return records, nil
	}

	providers := make([]sources.Provider, 0, len(c.options.providers)+1)
	providers = append(providers, c.options.providers...)
	if c.options.sink != nil {
		providers = append(providers, c.options.sink)
	}

	records, err := sources.FetchAll(ctx, providers, rng, sources.WithTimeout(c.options.timeout))
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Time("from", rng.From).
		Time("to", rng.To).
		Int("records", len(records)).
		Msg("Fetched records")

	if c.options.cache != nil {
		if err := c.options.cache.Save(ctx, rng, records); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache fetched records")
		}
	}
	return records, nil
}

// Apply implements Applier.
func (c *client) Apply(ctx context.Context, result *reconcile.Result) (sources.ApplyReport, error) {
	ctx = c.context(ctx)
	logger := logging.FromContext(ctx)

	if c.options.sink == nil {
		return sources.ApplyReport{}, errors.NewConfigError("sink", "no sink configured", nil)
	}
	if result == nil || result.Changeset == nil {
		return sources.ApplyReport{}, nil
	}

	cs := result.Changeset.Filter(c.options.strategy)
	if !cs.HasChanges() {
		logger.Info().Str("strategy", string(c.options.strategy)).Msg("Nothing to apply")
		return sources.ApplyReport{}, nil
	}

	ctx = logging.WithSink(ctx, string(c.options.sink.ID()))
	ctx, cancel := context.WithTimeout(ctx, constants.ApplyTimeout)
	defer cancel()

	report, err := c.options.sink.Apply(ctx, cs.Changes)
	c.hooks.trigger(report)

	logger = logging.FromContext(ctx)
	for _, f := range report.Failures {
		logger.Error().Err(f.Err).Str("change", f.Change).Msg("Change failed")
	}
	logger.Info().
		Int("added", report.Added).
		Int("deleted", report.Deleted).
		Int("failed", len(report.Failures)).
		Msg("Applied changes")

	if err != nil {
		return report, errors.WrapResource("apply", "sink", string(c.options.sink.ID()), err)
	}
	return report, nil
}

// Sync plans and applies under the run id carried by ctx, or a fresh one.
// It fails with errors.ErrConflict while another Sync on the same Syncer is
// running, and with errors.ErrCanceled when the confirm callback declines.
func (c *client) Sync(ctx context.Context) (*SyncResult, error) {
	if !c.running.TryLock() {
		return nil, errors.ErrConflict
	}
	defer c.running.Unlock()

	ctx = c.context(ctx)
	runID := logging.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRun(ctx, runID)
	}

	result, err := c.Plan(ctx)
	if err != nil {
		return nil, err
	}
	run := &SyncResult{RunID: runID, Result: result}

	if c.options.sink == nil {
		return run, nil
	}
	if c.options.confirm != nil && result.Changeset != nil {
		pending := result.Changeset.Filter(c.options.strategy)
		if pending.HasChanges() {
			ok, err := c.options.confirm(ctx, result, pending)
			if err != nil {
				return run, err
			}
			if !ok {
				logging.FromContext(ctx).Info().Msg("Apply declined")
				return run, errors.ErrCanceled
			}
		}
	}
	run.Report, err = c.Apply(ctx, result)
	if err != nil {
		return run, err
	}
	return run, nil
}

// context attaches the configured logger unless ctx already carries one.
func (c *client) context(ctx context.Context) context.Context {
	if c.options.logger == nil {
		return ctx
	}
	return logging.WithLoggerIfAbsent(ctx, c.options.logger)
}

func logDiagnostics(logger *zerolog.Logger, diags reconcile.Diagnostics) {
	for _, d := range diags {
		var ev *zerolog.Event
		switch d.Severity {
		case reconcile.SeverityError:
			ev = logger.Error()
		case reconcile.SeverityWarning:
			ev = logger.Warn()
		default:
			ev = logger.Debug()
		}
		ev = ev.Str("kind", string(d.Kind))
		if d.Err != nil {
			ev = ev.Err(d.Err)
		}
		if d.Record != nil {
			ev = ev.Str("record", d.Record.String())
		}
		ev.Msg(d.Message)
	}
}
