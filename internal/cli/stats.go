package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/knightly-chess/knightly/internal/domain"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show solving statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	db, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Puzzles:\t%d attempted, %d solved\n", st.TotalPuzzles, st.SolvedPuzzles)
	fmt.Fprintf(w, "Accuracy:\t%.1f%%\n", st.Accuracy*100)
	fmt.Fprintf(w, "Streak:\t%d (best %d)\n", st.CurrentStreak, st.BestStreak)
	fmt.Fprintf(w, "Average time:\t%s\n", humanMs(st.AverageTimeMs))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "DIFFICULTY\tSOLVED\tATTEMPTED")
	for _, d := range domain.Difficulties {
		t := st.DifficultyBreakdown[d]
		fmt.Fprintf(w, "%s\t%d\t%d\n", d, t.Solved, t.Attempted)
	}
	return w.Flush()
}
