// Package cmd is the thin CLI entry point spec §1 scopes this engine
// down to: a binding layer over internal/migrate and internal/config,
// not a UX surface in its own right. Grounded directly on the teacher's
// cmd/root.go cobra wiring.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lockforge/schemaengine/internal/engineerr"
	_ "github.com/lockforge/schemaengine/internal/flavour/register"
)

var rootCmd = &cobra.Command{
	Use:   "schemaengine",
	Short: "schemaengine applies and diagnoses declarative schema migrations.",
	Long:  "schemaengine applies and diagnoses declarative schema migrations across Postgres and SQLite.",
}

// Execute runs the root command, exiting non-zero on failure. Per the
// error taxonomy's layering, a UserFacing error already carries a stable
// code and an operator-ready message and is printed verbatim; anything
// else is printed with a "schemaengine: " prefix so it reads as an
// unexpected failure rather than an intentional diagnostic.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if engineerr.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintf(os.Stderr, "schemaengine: %v\n", err)
		}
		os.Exit(1)
	}
}

var environmentFlag string

func init() {
	rootCmd.PersistentFlags().StringVarP(&environmentFlag, "env", "e", "", "named environment from schemaengine.toml")
}
