package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knightly-chess/knightly/internal/app/modes"
	"github.com/knightly-chess/knightly/internal/daemon"
	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/infra/chessrules"
)

func init() {
	playCmd.Flags().StringVar(&playDifficulty, "difficulty", "", "Puzzle tier: simple, medium, hard or ultra")
	rootCmd.AddCommand(playCmd)
}

var playDifficulty string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Solve practice puzzles in the terminal",
	Long: `Start a practice session. Type moves in SAN (Nf3, exd8=Q) or UCI (g1f3).
Commands: /hint, /reveal, /next, /eval, /board, /bye.`,
	RunE: runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	var opts []modes.Option
	if playDifficulty != "" {
		diff, err := domain.ParseDifficulty(playDifficulty)
		if err != nil {
			return err
		}
		opts = append(opts, modes.WithDifficulty(diff))
	}

	d, err := daemon.New()
	if err != nil {
		return fmt.Errorf("initialize daemon: %w", err)
	}
	defer d.Close()

	s, err := d.NewSession(domain.ModePractice, opts...)
	if err != nil {
		return err
	}
	p := &player{ctrl: s, rules: chessrules.New(), out: cmd.OutOrStdout()}
	err = p.run(cmd.Context(), cmd.InOrStdin())

	sum := s.Exit(context.Background())
	fmt.Fprintf(p.out, "Solved %d, missed %d.\n", sum.Solved, sum.Failed)
	if sum.Engagement != nil && sum.Engagement.Badge != nil {
		fmt.Fprintf(p.out, "New badge: %s\n", sum.Engagement.Badge.Name)
	}
	return err
}

// player runs the interactive loop over a practice controller.
type player struct {
	ctrl  modes.Controller
	rules *chessrules.Rules
	out   io.Writer
}

func (p *player) run(ctx context.Context, in io.Reader) error {
	if err := p.next(ctx); err != nil {
		return err
	}
	fmt.Fprintln(p.out, ">>> Type a move, or /hint /reveal /next /eval /board /bye")

	scanner := newLineScanner(in)
	for {
		fmt.Fprint(p.out, ">>> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "":
			continue
		case "/bye", "/exit", "/quit":
			fmt.Fprintln(p.out, "Goodbye!")
			return nil
		case "/hint":
			if hint, ok := p.ctrl.Hint(); ok {
				fmt.Fprintln(p.out, "Hint:", hint)
			} else {
				fmt.Fprintln(p.out, "No hint available.")
			}
		case "/reveal":
			sol, err := p.ctrl.Reveal(ctx)
			if err != nil {
				fmt.Fprintf(p.out, "Error: %v\n", err)
				continue
			}
			fmt.Fprintln(p.out, "Solution:", strings.Join(sol, " "))
			if err := p.next(ctx); err != nil {
				return err
			}
		case "/next":
			if err := p.next(ctx); err != nil {
				return err
			}
		case "/eval":
			p.eval(ctx)
		case "/board":
			p.show()
		default:
			if err := p.move(ctx, input); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func (p *player) move(ctx context.Context, input string) error {
	v := p.ctrl.View()
	if v.State == nil {
		return domain.ErrNoActivePuzzle
	}
	m, err := p.rules.ParseMove(v.State.FEN, input)
	if err != nil {
		fmt.Fprintf(p.out, "Cannot play %q here.\n", input)
		return nil
	}
	res, err := p.ctrl.SubmitMove(ctx, m)
	if err != nil {
		return err
	}

	switch {
	case res.Solved:
		fmt.Fprintf(p.out, "✓ %s  Solved!\n", res.SAN)
		return p.next(ctx)
	case res.Accepted:
		fmt.Fprintf(p.out, "✓ %s  %s to move.\n", res.SAN, p.side(res.FEN))
	case res.Reason == domain.RejectWrongMove:
		fmt.Fprintln(p.out, "✗ Not the move. Try again, or /hint.")
	default:
		fmt.Fprintf(p.out, "✗ Move rejected (%s).\n", res.Reason)
	}
	return nil
}

func (p *player) next(ctx context.Context) error {
	if _, err := p.ctrl.LoadNext(ctx); err != nil {
		if errors.Is(err, domain.ErrNoPuzzles) {
			return fmt.Errorf("%w: run 'knightly puzzles import FILE' first", err)
		}
		return err
	}
	p.show()
	return nil
}

func (p *player) show() {
	v := p.ctrl.View()
	if v.Puzzle == nil || v.State == nil {
		return
	}
	fmt.Fprintf(p.out, "\nPuzzle %s (%s, rating %d, %d moves)\n", v.Puzzle.ID, v.Puzzle.Difficulty, v.Puzzle.Rating, v.Puzzle.Moves)
	if diagram, err := p.rules.Diagram(v.State.FEN); err == nil {
		fmt.Fprintln(p.out, diagram)
	}
	fmt.Fprintf(p.out, "%s to move.\n", p.side(v.State.FEN))
}

func (p *player) eval(ctx context.Context) {
	a := p.ctrl.Analysis(ctx)
	if a == nil {
		fmt.Fprintln(p.out, "No analysis available.")
		return
	}
	switch {
	case a.MateIn != nil:
		fmt.Fprintf(p.out, "Engine: %s, mate in %d (depth %d)\n", a.BestMove, *a.MateIn, a.Depth)
	case a.ScoreCP != nil:
		fmt.Fprintf(p.out, "Engine: %s, %+.2f (depth %d)\n", a.BestMove, float64(*a.ScoreCP)/100, a.Depth)
	default:
		fmt.Fprintf(p.out, "Engine: %s (depth %d)\n", a.BestMove, a.Depth)
	}
}

func (p *player) side(fen string) string {
	if s, err := p.rules.SideToMove(fen); err == nil && s == "b" {
		return "Black"
	}
	return "White"
}
