package modes

import (
	"context"
	"time"

	"github.com/knightly-chess/knightly/internal/app/solver"
	"github.com/knightly-chess/knightly/internal/domain"
)

// practice has no clock and no rating or stats side effects. Solved puzzles
// are still remembered so selection can prefer new ones.
type practice struct {
	s *Session
}

func (p *practice) selectPuzzle(ctx context.Context) (domain.Puzzle, error) {
	return p.s.pick(ctx)
}

func (p *practice) solverOptions() []solver.Option { return nil }

func (p *practice) started(context.Context) {}

func (p *practice) finished(ctx context.Context, o domain.Outcome) {
	taken := p.s.attempt.Elapsed()
	p.s.countOutcome(o, taken)
	p.s.last = &Result{PuzzleID: p.s.current.ID, Outcome: o, TimeMs: taken.Milliseconds()}
	if o != domain.OutcomeSolved {
		p.s.streak = 0
		return
	}
	p.s.streak++
	p.s.saveProgress(ctx, true, taken, p.s.streak)
}

func (p *practice) next(domain.Outcome) (time.Duration, bool) { return 0, false }

func (p *practice) skip(context.Context) bool { return false }

func (p *practice) canReveal() {}
