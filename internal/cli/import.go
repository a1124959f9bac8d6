package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/knightly-chess/knightly/internal/app/progress"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Restore progress, stats and settings from a backup file",
	Long:  `Restore a backup written by 'knightly export'. Stats and settings are replaced; progress records are merged.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := progress.DecodeBundle(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	db, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.ImportAll(cmd.Context(), b); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d progress records (export version %s).\n", len(b.Progress), b.Version)
	return nil
}
