// Package cli implements the Knightly command-line interface using Cobra.
// Each subcommand lives in its own file and registers itself in init.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "knightly",
	Short: "Knightly, a chess puzzle trainer",
	Long: `Knightly trains tactical vision with short chess puzzles.
Play blitz, daily, rush and practice sessions through the local API,
or solve puzzles right here in the terminal with 'knightly play'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
