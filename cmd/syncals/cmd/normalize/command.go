// Package normalize provides the normalize command, which shows how text
// is folded before comparison with the target.
package normalize

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syncals/syncals/cmd/application"
	"github.com/syncals/syncals/pkg/errors"
)

// NewCommand creates the normalize command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "normalize [text...]",
		GroupID: "management",
		Short:   "Normalize text as it would be compared against bookings",
		Long: `Normalize prints each argument, or each line of standard input when no
arguments are given, after the normalization applied to descriptions and
tags: Unicode NFKC, then narrowing to the target encoding with
full-width fallbacks.`,
		Example: `  syncals normalize "Ｒ１ meeting"
  cat subjects.txt | syncals normalize`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.Rules()
			if err != nil {
				return err
			}
			rs, err := r.Compile()
			if err != nil {
				return errors.NewConfigError("rules", "compile failed", err)
			}
			n := rs.Normalizer()
			w := cmd.OutOrStdout()

			if len(args) > 0 {
				for _, a := range args {
					fmt.Fprintln(w, n.Normalize(a))
				}
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				fmt.Fprintln(w, n.Normalize(strings.TrimRight(scanner.Text(), "\r")))
			}
			return scanner.Err()
		},
	}
}
