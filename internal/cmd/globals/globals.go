// Package globals provides the flags shared by syncals commands.
package globals

import (
	"github.com/spf13/cobra"

	"github.com/syncals/syncals/pkg/reconcile"
)

// Flags holds the persistent output flags.
type Flags struct {
	Output  string
	Quiet   bool
	Verbose bool
	NoColor bool
}

// ApplyFlags limit which planned changes reach the sink.
type ApplyFlags struct {
	SkipAdd    bool
	SkipDelete bool
	Strategy   string
}

// AddApplyFlags registers --skip-add, --skip-delete and --strategy.
func AddApplyFlags(cmd *cobra.Command) *ApplyFlags {
	f := &ApplyFlags{}
	cmd.Flags().BoolVar(&f.SkipAdd, "skip-add", false, "do not create bookings")
	cmd.Flags().BoolVar(&f.SkipDelete, "skip-delete", false, "do not cancel bookings")
	cmd.Flags().StringVar(&f.Strategy, "strategy", "", "apply strategy: all, additions-only, deletions-only, none (overrides the skip flags)")
	cmd.MarkFlagsMutuallyExclusive("strategy", "skip-add")
	cmd.MarkFlagsMutuallyExclusive("strategy", "skip-delete")
	return f
}

// Resolve returns the strategy the flags ask for. ok is false when none
// was given and the configured strategy applies.
func (f *ApplyFlags) Resolve() (s reconcile.ApplyStrategy, ok bool, err error) {
	switch {
	case f.Strategy != "":
		s, err = reconcile.ParseApplyStrategy(f.Strategy)
		return s, err == nil, err
	case f.SkipAdd || f.SkipDelete:
		return reconcile.StrategyFor(f.SkipAdd, f.SkipDelete), true, nil
	}
	return "", false, nil
}

// AddFetchFlags registers --days and --resume.
func AddFetchFlags(cmd *cobra.Command) (days *int, resume *bool) {
	days = cmd.Flags().Int("days", 0, "days to look ahead from today (default from config)")
	resume = cmd.Flags().Bool("resume", false, "reconcile the cached records of the last fetch instead of fetching")
	return days, resume
}
