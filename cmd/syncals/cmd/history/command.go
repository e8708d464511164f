// Package history provides the history command, which reads the apply
// journal of a SQLite target.
package history

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncals/syncals/cmd/application"
	"github.com/syncals/syncals/internal/cmd/output"
	"github.com/syncals/syncals/internal/config"
	"github.com/syncals/syncals/internal/sources/sqlite"
	"github.com/syncals/syncals/pkg/errors"
)

// NewCommand creates the history command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history [run-id]",
		GroupID: "management",
		Short:   "Show journaled sync runs",
		Long: `History lists the runs journaled by a sqlite target, most recent first.
Given a run id it prints every change applied in that run with its outcome.`,
		Example: `  syncals history
  syncals history 3f1c2a9e-... -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := app.Settings()
			if err != nil {
				return err
			}
			t := settings.Target
			if t == nil || t.Type != config.TypeSQLite {
				return errors.NewConfigError("target", "history needs a sqlite target", nil)
			}

			ctx := cmd.Context()
			db, err := sqlite.Open(ctx, t.Path)
			if err != nil {
				return errors.WrapResource("open", "journal", t.Path, err)
			}
			defer func() { _ = db.Close() }()
			store := sqlite.New("history", db)

			flags := app.Flags()
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				runs, err := store.Runs(ctx)
				if err != nil {
					return err
				}
				if limit > 0 && len(runs) > limit {
					runs = runs[:limit]
				}
				if len(runs) == 0 {
					if !flags.Quiet {
						fmt.Fprintln(w, "No runs journaled")
					}
					return nil
				}
				rows := make([]Run, len(runs))
				for i, id := range runs {
					rows[i] = Run{ID: id}
				}
				return output.FormatAny(w, rows, flags)
			}

			entries, err := store.Journal(ctx, args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return errors.NewNotFoundError("run", args[0])
			}
			rows := make([]Entry, len(entries))
			for i, e := range entries {
				rows[i] = Entry{Op: e.Op, Ref: e.Ref, Change: e.Change, Error: e.Error}
			}
			return output.FormatAny(w, rows, flags)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

// Run is one journaled run.
type Run struct {
	ID string `json:"run_id" yaml:"run_id"`
}

// Entry is one journaled change of a run.
type Entry struct {
	Op     string `json:"op" yaml:"op"`
	Ref    string `json:"ref,omitempty" yaml:"ref,omitempty"`
	Change string `json:"change" yaml:"change"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}
