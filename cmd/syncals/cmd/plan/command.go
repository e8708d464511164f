// Package plan provides the plan command, which shows the changes a sync
// would make without applying them.
package plan

import (
	"github.com/spf13/cobra"

	"github.com/syncals/syncals"
	"github.com/syncals/syncals/cmd/application"
	"github.com/syncals/syncals/internal/cmd/globals"
	"github.com/syncals/syncals/internal/cmd/output"
)

// NewCommand creates the plan command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plan",
		GroupID: "core",
		Short:   "Show the bookings a sync would create and cancel",
		Long: `Plan fetches meetings from every configured source together with the
bookings already in the target, reconciles them and prints the resulting
change list in application order. Nothing is written to the target.

Use -v to list skipped records and mapping problems, and -o wide to add
the per-stage counters. With --meetings the resolved source meetings and
their booking identities are listed instead of the changes.`,
		Example: `  syncals plan                  # Changes for the next 14 days
  syncals plan --days 3         # Narrow the window
  syncals plan --resume         # Re-plan the last fetch without fetching
  syncals plan -o json          # Machine-readable plan
  syncals plan --meetings       # Show how meetings resolve`,
		Args: cobra.NoArgs,
	}

	days, resume := globals.AddFetchFlags(cmd)
	meetings := cmd.Flags().Bool("meetings", false, "list resolved meetings instead of changes")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := app.Syncer(ctx, Options(*days, *resume)...)
		if err != nil {
			return err
		}
		result, err := s.Plan(ctx)
		if err != nil {
			return err
		}
		if *meetings {
			return output.FormatMeetings(cmd.OutOrStdout(), result.Meetings, s.Ruleset().Separator(), app.Flags())
		}
		return output.FormatPlan(cmd.OutOrStdout(), result, app.Flags())
	}

	return cmd
}

// Options maps fetch flags onto syncer options.
func Options(days int, resume bool) []syncals.Option {
	var opts []syncals.Option
	if days > 0 {
		opts = append(opts, syncals.WithRangeDays(days))
	}
	if resume {
		opts = append(opts, syncals.WithResume(true))
	}
	return opts
}
