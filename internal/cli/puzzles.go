package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/infra/catalog"
)

func init() {
	puzzlesListCmd.Flags().StringVar(&listDifficulty, "difficulty", "", "Only list this tier")
	puzzlesListCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of puzzles (0 = all)")
	puzzlesCmd.AddCommand(puzzlesListCmd, puzzlesImportCmd)
	rootCmd.AddCommand(puzzlesCmd)
}

var (
	listDifficulty string
	listLimit      int
)

var puzzlesCmd = &cobra.Command{
	Use:   "puzzles",
	Short: "Browse and import puzzles",
}

var puzzlesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the puzzle catalog",
	RunE:    runPuzzlesList,
}

var puzzlesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add puzzles from a JSON file",
	Long:  `Upsert puzzles from a JSON array of {id, fen, moves, difficulty, rating, mainTactic, learningThemes, hint}.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPuzzlesImport,
}

func runPuzzlesList(cmd *cobra.Command, args []string) error {
	f := domain.PuzzleFilter{Limit: listLimit}
	if listDifficulty != "" {
		d, err := domain.ParseDifficulty(listDifficulty)
		if err != nil {
			return err
		}
		f.Difficulty = d
	}

	db, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	puzzles, err := db.ListPuzzles(ctx, f)
	if err != nil {
		return err
	}
	solved, err := store.SolvedPuzzleIDs(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(puzzles) == 0 {
		fmt.Fprintln(out, "No puzzles found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDIFFICULTY\tRATING\tMOVES\tTACTIC\tSOLVED")
	for _, p := range puzzles {
		mark := ""
		if solved[p.ID] {
			mark = "✓"
		}
		tactic := p.MainTactic
		if tactic == "" {
			tactic = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			p.ID, p.Difficulty, p.NominalRating(), len(p.Solution), tactic, mark)
	}
	return w.Flush()
}

func runPuzzlesImport(cmd *cobra.Command, args []string) error {
	puzzles, err := catalog.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	db, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.UpsertPuzzles(cmd.Context(), puzzles); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	unvalidated := 0
	for _, p := range puzzles {
		if !p.Validated() {
			unvalidated++
		}
	}
	fmt.Fprintf(out, "Imported %d puzzles.\n", len(puzzles))
	if unvalidated > 0 {
		fmt.Fprintf(out, "%d of them have solutions outside %d..%d moves and are flagged as unvalidated.\n",
			unvalidated, domain.MinSolutionMoves, domain.MaxSolutionMoves)
	}
	return nil
}
