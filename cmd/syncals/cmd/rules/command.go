// Package rules provides commands for inspecting the engine rules.
package rules

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncals/syncals/cmd/application"
	"github.com/syncals/syncals/internal/cmd/output"
	"github.com/syncals/syncals/internal/cmd/table"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/reconcile"
)

// NewCommand creates the rules command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		GroupID: "management",
		Short:   "Check and show the engine rules",
	}

	cmd.AddCommand(newCheckCommand(app))
	cmd.AddCommand(newShowCommand(app))
	return cmd
}

func newCheckCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Compile the rules and report problems",
		Long: `Check compiles the engine rules and lists mappings that compile but
will misbehave during resolution, such as rooms without an office or tags
containing the subject separator. Compile failures exit non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := app.Rules()
			if err != nil {
				return err
			}
			if _, err := r.Compile(); err != nil {
				return errors.NewConfigError("rules", "compile failed", err)
			}

			diags := r.Validate()
			flags := app.Flags()
			w := cmd.OutOrStdout()
			if len(diags) == 0 {
				if !flags.Quiet {
					fmt.Fprintln(w, "Rules OK")
				}
				return nil
			}
			return output.FormatAny(w, table.DiagnosticsToTableData(diags, reconcile.SeverityInfo), flags)
		},
	}
}

func newShowCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective rules",
		Long:  `Show prints the rules after defaults are applied, as YAML unless -o json is given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := app.Rules()
			if err != nil {
				return err
			}
			rs, err := r.Compile()
			if err != nil {
				return errors.NewConfigError("rules", "compile failed", err)
			}
			flags := *app.Flags()
			if flags.Output != string(output.FormatJSON) {
				flags.Output = string(output.FormatYAML)
			}
			return output.FormatAny(cmd.OutOrStdout(), rs.Rules(), &flags)
		},
	}
}
