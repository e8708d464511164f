// Package sync provides the sync command, which plans and applies changes.
package sync

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syncals/syncals"
	"github.com/syncals/syncals/cmd/application"
	"github.com/syncals/syncals/cmd/syncals/cmd/plan"
	"github.com/syncals/syncals/internal/cmd/globals"
	"github.com/syncals/syncals/internal/cmd/output"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/reconcile"
)

// NewCommand creates the sync command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Create and cancel bookings to match the calendar",
		Long: `Sync plans like the plan command and then hands the changes to the
booking target. Each change is applied on its own; failures are reported
and the remaining changes still run. The command exits non-zero when any
change failed.

Only bookings carrying the automation menu are ever cancelled. The plan
is shown and confirmed before anything is applied; --yes skips the
question, and a closed stdin counts as no.`,
		Example: `  syncals sync                  # Apply every change after confirming
  syncals sync --yes            # Apply without asking
  syncals sync --skip-delete    # Only create bookings
  syncals sync --strategy deletions-only
  syncals sync --dry-run        # Same as plan`,
		Args: cobra.NoArgs,
	}

	days, resume := globals.AddFetchFlags(cmd)
	apply := globals.AddApplyFlags(cmd)
	dryRun := cmd.Flags().Bool("dry-run", false, "plan only, do not apply")
	yes := cmd.Flags().BoolP("yes", "y", false, "apply without asking for confirmation")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		opts := plan.Options(*days, *resume)
		strategy, ok, err := apply.Resolve()
		if err != nil {
			return errors.NewValidationError("strategy", apply.Strategy, err.Error())
		}
		if ok {
			opts = append(opts, syncals.WithStrategy(strategy))
		}
		if *dryRun {
			opts = append(opts, syncals.WithStrategy(reconcile.ApplyNone))
		}

		flags := app.Flags()
		w := cmd.OutOrStdout()
		shown := false
		showPlan := func(res *reconcile.Result) error {
			if shown {
				return nil
			}
			shown = true
			return output.FormatPlan(w, res, flags)
		}
		if !*yes && !*dryRun {
			in := bufio.NewReader(cmd.InOrStdin())
			opts = append(opts, syncals.WithConfirm(
				func(_ context.Context, res *reconcile.Result, pending *reconcile.Changeset) (bool, error) {
					if err := showPlan(res); err != nil {
						return false, err
					}
					return confirm(in, cmd.ErrOrStderr(), pending.Summary)
				}))
		}

		s, err := app.Syncer(ctx, opts...)
		if err != nil {
			return err
		}
		run, err := s.Sync(ctx)
		if run != nil && stderrors.Is(err, errors.ErrCanceled) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Nothing applied.")
			return nil
		}
		if err != nil {
			return err
		}

		if err := showPlan(run.Result); err != nil {
			return err
		}
		if *dryRun {
			return nil
		}
		if !flags.Quiet {
			fmt.Fprintln(w)
		}
		if err := output.FormatReport(w, run.RunID, run.Report, flags); err != nil {
			return err
		}
		if err := run.Report.Err(); err != nil {
			return fmt.Errorf("%d of %d changes failed: %w",
				len(run.Report.Failures), len(run.Report.Failures)+run.Report.Applied(), err)
		}
		return nil
	}

	return cmd
}

// confirm asks whether to apply the pending changes. Only y or yes agree;
// end of input declines.
func confirm(in *bufio.Reader, w io.Writer, sum reconcile.ChangesetSummary) (bool, error) {
	fmt.Fprintf(w, "Apply %d changes (%d adds, %d deletes)? [y/N] ", sum.Total, sum.Adds, sum.Deletes)
	line, err := in.ReadString('\n')
	if err != nil && !stderrors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
