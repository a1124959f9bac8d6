package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/knightly-chess/knightly/internal/app/engagement"
)

func init() {
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show rating, league, streak and badges",
	RunE:  runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	db, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	p, err := store.Profile(ctx)
	if err != nil {
		return err
	}
	ach := engagement.NewAchievementService(store)
	badges, err := ach.Collection(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	level := string(p.Level)
	if level == "" {
		level = "-"
	}
	fmt.Fprintf(w, "Level:\t%s\n", level)
	fmt.Fprintf(w, "Rating:\t%d (%s league)\n", p.Elo, p.League)
	fmt.Fprintf(w, "Daily streak:\t%d days\n", p.StreakCount)
	fmt.Fprintf(w, "Play time:\t%.0f min\n", p.TotalPlayTimeMin)
	if p.LastPlayedDate != nil {
		fmt.Fprintf(w, "Last played:\t%s\n", p.LastPlayedDate.Format("2006-01-02"))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "BADGE\tMILESTONE\tEARNED")
	for _, b := range badges {
		earned := "-"
		if b.EarnedAt != nil {
			earned = b.EarnedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s %s\t%d days\t%s\n", b.Icon, b.Name, b.Milestone, earned)
	}
	if def, remaining, ok, err := ach.NextMilestone(ctx); err == nil && ok {
		fmt.Fprintf(w, "\nNext: %s in %d days\n", def.Name, remaining)
	}
	return w.Flush()
}
