package syncals

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoSyncer = (*client)(nil)

// AutoSyncer provides controls for scheduled syncs.
type AutoSyncer interface {
	// AutoSyncOn starts syncing on the configured cron schedule
	AutoSyncOn() error

	// AutoSyncOff stops scheduled syncs and waits for a running one
	AutoSyncOff() error
}

// AutoSyncOn starts syncing on the configured cron schedule.
func (c *client) AutoSyncOn() error {
	if c.options.schedule == "" {
		return errors.NewValidationError("schedule", "", "a cron schedule is required")
	}

	// Stop any existing schedule first
	if err := c.AutoSyncOff(); err != nil {
		return err
	}

	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := sched.AddFunc(c.options.schedule, c.scheduledSync); err != nil {
		return errors.NewValidationError("schedule", c.options.schedule, err.Error())
	}

	c.mu.Lock()
	c.cron = sched
	c.mu.Unlock()

	sched.Start()
	c.options.log().Info().Str("schedule", c.options.schedule).Msg("Auto sync started")
	return nil
}

// AutoSyncOff stops scheduled syncs and waits for a running one.
func (c *client) AutoSyncOff() error {
	c.mu.Lock()
	sched := c.cron
	c.cron = nil
	c.mu.Unlock()

	if sched == nil {
		return nil
	}
	<-sched.Stop().Done()
	c.options.log().Info().Msg("Auto sync stopped")
	return nil
}

func (c *client) scheduledSync() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.CommandTimeout)
	defer cancel()

	run, err := c.Sync(ctx)
	logger := logging.FromContext(c.context(ctx))
	switch {
	case errors.IsConflict(err):
		logger.Warn().Msg("Scheduled sync skipped, another sync is running")
		return
	case err != nil:
		logger.Error().Err(err).Msg("Scheduled sync failed")
		return
	}
	logger.Info().Str("run_id", run.RunID).Msg(run.Result.Summary())
}
