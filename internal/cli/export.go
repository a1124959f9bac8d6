package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/knightly-chess/knightly/internal/app/progress"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write progress, stats and settings to a backup file",
	Long:  `Write a JSON backup. Use "-" to print it to stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	db, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := store.ExportAll(cmd.Context())
	if err != nil {
		return err
	}

	if args[0] == "-" {
		return progress.EncodeBundle(cmd.OutOrStdout(), b)
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := progress.EncodeBundle(f, b); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d progress records to %s\n", len(b.Progress), args[0])
	return nil
}
