package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(clearCmd)
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase puzzle progress and reset stats and settings",
	Long:  `Erase puzzle progress and reset stats and settings. The profile and earned badges are kept.`,
	RunE:  runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearYes && !confirm(cmd, "Erase all puzzle progress?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	db, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.ClearAll(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Training data cleared.")
	return nil
}
