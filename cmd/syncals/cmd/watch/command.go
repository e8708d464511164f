// Package watch provides the watch command, which keeps syncing on a cron
// schedule until interrupted.
package watch

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncals/syncals"
	"github.com/syncals/syncals/cmd/application"
	"github.com/syncals/syncals/internal/cmd/output"
	"github.com/syncals/syncals/internal/server"
	"github.com/syncals/syncals/pkg/errors"
)

// NewCommand creates the watch command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Sync on a schedule until interrupted",
		Long: `Watch runs a sync on every tick of the configured cron schedule.
A tick that fires while the previous sync is still running is skipped.
Press Ctrl+C to stop; a sync in progress finishes first.

With --listen an HTTP API is served alongside: GET /health,
GET /api/v1/plan, POST /api/v1/sync, GET /api/v1/status and a WebSocket
stream of applied changes at /api/v1/updates/ws.`,
		Example: `  syncals watch                          # Use schedule from config
  syncals watch --schedule "@every 10m"  # Override the schedule
  syncals watch --now                    # Sync once before waiting
  syncals watch --listen :8080           # Serve the HTTP API too`,
		Args: cobra.NoArgs,
	}

	schedule := cmd.Flags().String("schedule", "", "cron schedule (default from config)")
	now := cmd.Flags().Bool("now", false, "run one sync immediately")
	listen := cmd.Flags().String("listen", "", "serve the HTTP API on this address (default from config)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		var opts []syncals.Option
		if *schedule != "" {
			opts = append(opts, syncals.WithSchedule(*schedule))
		}
		s, err := app.Syncer(ctx, opts...)
		if err != nil {
			return err
		}

		addr := *listen
		if addr == "" {
			settings, err := app.Settings()
			if err != nil {
				return err
			}
			addr = settings.Listen
		}
		var srvErr chan error
		if addr != "" {
			srv := server.New(s, server.Config{Addr: addr}, app.Logger())
			srvErr = make(chan error, 1)
			go func() { srvErr <- srv.Run(ctx) }()
		}

		logger := app.Logger()
		if *now {
			run, err := s.Sync(ctx)
			switch {
			case errors.IsCanceled(err):
				logger.Info().Msg("Interrupted before the first sync finished")
				return nil
			case errors.IsConflict(err):
				logger.Warn().Msg("Initial sync skipped, an API sync is running")
			case err != nil:
				return err
			default:
				if err := output.FormatReport(cmd.OutOrStdout(), run.RunID, run.Report, app.Flags()); err != nil {
					return err
				}
			}
		}

		if err := s.AutoSyncOn(); err != nil {
			return err
		}
		logger.Info().Msg("Watching, press Ctrl+C to stop")

		var runErr error
		select {
		case <-ctx.Done():
			if srvErr != nil {
				runErr = <-srvErr
			}
		case runErr = <-srvErr:
		}

		if err := s.AutoSyncOff(); err != nil {
			return fmt.Errorf("stopping schedule: %w", err)
		}
		logger.Info().Msg("Stopped")
		return runErr
	}

	return cmd
}
