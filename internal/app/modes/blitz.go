package modes

import (
	"context"
	"time"

	"github.com/knightly-chess/knightly/internal/app/scoring"
	"github.com/knightly-chess/knightly/internal/app/solver"
	"github.com/knightly-chess/knightly/internal/domain"
)

// blitz gives every puzzle its own countdown. Running out of time fails the
// attempt; wrong moves can be retried while the clock runs.
type blitz struct {
	s     *Session
	clock *Countdown
}

func (b *blitz) selectPuzzle(ctx context.Context) (domain.Puzzle, error) {
	return b.s.pick(ctx)
}

func (b *blitz) solverOptions() []solver.Option { return nil }

func (b *blitz) started(ctx context.Context) {
	b.clock = NewCountdown(b.s.deps.Clock, b.limit(ctx))
	b.arm()
}

// limit is the settings time limit, or the configured default.
func (b *blitz) limit(ctx context.Context) time.Duration {
	if gs, err := b.s.deps.Store.Settings(ctx); b.s.storeOK("read_settings", err) && gs.TimeLimitSec > 0 {
		return time.Duration(gs.TimeLimitSec) * time.Second
	}
	return b.s.deps.Config.BlitzLimit
}

func (b *blitz) arm() {
	b.s.schedule(b.clock.Remaining(), true, b.timeout)
}

func (b *blitz) timeout(ctx context.Context) {
	if b.s.solver.Status() != domain.StatusInProgress {
		return
	}
	b.s.solver.Timeout()
	b.s.finish(ctx, domain.OutcomeTimeout)
}

func (b *blitz) finished(ctx context.Context, o domain.Outcome) {
	taken := b.clock.Elapsed()
	b.clock.Pause()
	points := 0
	if o == domain.OutcomeSolved {
		points = scoring.PuzzleScore(b.clock.Limit(), taken, b.s.solver.Attempts(), b.s.current.Difficulty)
		b.s.streak++
	} else {
		b.s.streak = 0
	}
	b.s.recordScored(ctx, o, taken, points)
}

func (b *blitz) next(o domain.Outcome) (time.Duration, bool) {
	if o == domain.OutcomeSolved {
		return b.s.deps.Config.SolveDelay, true
	}
	return b.s.deps.Config.FailDelay, true
}

func (b *blitz) skip(ctx context.Context) bool {
	b.s.solver.Timeout()
	b.finished(ctx, domain.OutcomeFailed)
	return false
}

func (b *blitz) pause() {
	b.clock.Pause()
	b.s.stopTimers(&b.s.puzzleTimers)
}

func (b *blitz) resume() {
	b.clock.Resume()
	b.arm()
}

func (b *blitz) remaining() time.Duration {
	if b.clock == nil {
		return -1
	}
	return b.clock.Remaining()
}
