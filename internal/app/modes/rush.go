package modes

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/app/scoring"
	"github.com/knightly-chess/knightly/internal/app/solver"
	"github.com/knightly-chess/knightly/internal/domain"
)

// rush plays as many puzzles as fit in one global countdown. A wrong move
// fails the puzzle at once and resets the multiplier streak; every solve
// earns its base score times 1 + 0.1*streak.
type rush struct {
	s     *Session
	clock *Countdown
	saved bool
}

func (r *rush) begin() {
	r.clock = NewCountdown(r.s.deps.Clock, r.s.deps.Config.RushDuration)
	r.arm()
}

func (r *rush) arm() {
	r.s.schedule(r.clock.Remaining(), false, r.timeout)
}

// timeout ends the session. The attempt in progress is dropped uncounted.
func (r *rush) timeout(ctx context.Context) {
	if r.s.ended {
		return
	}
	r.s.ended = true
	if r.s.solver != nil && r.s.solver.Status() == domain.StatusInProgress {
		r.s.solver.Timeout()
	}
	r.s.gen++
	r.s.stopTimers(&r.s.puzzleTimers)
	r.end(ctx)
	r.s.log.Info("rush finished", zap.Int("score", r.s.score), zap.Int("solved", r.s.solved))
}

// end persists the session summary once.
func (r *rush) end(ctx context.Context) {
	if r.saved {
		return
	}
	r.saved = true
	sum := r.s.summary(r.s.deps.Clock.Now())
	r.s.storeOK("write_session", r.s.deps.Store.SaveSession(ctx, sum))
}

func (r *rush) selectPuzzle(ctx context.Context) (domain.Puzzle, error) {
	return r.s.pick(ctx)
}

func (r *rush) solverOptions() []solver.Option {
	return []solver.Option{solver.WithStrictMode()}
}

func (r *rush) started(context.Context) {}

func (r *rush) finished(ctx context.Context, o domain.Outcome) {
	taken := r.s.attempt.Elapsed()
	points := 0
	if o == domain.OutcomeSolved {
		base := scoring.PuzzleScore(r.s.deps.Config.BlitzLimit, taken, 1, r.s.current.Difficulty)
		points = scoring.RushPoints(base, r.s.streak)
		r.s.streak++
	} else {
		r.s.streak = 0
	}
	r.s.recordScored(ctx, o, taken, points)
}

func (r *rush) next(domain.Outcome) (time.Duration, bool) { return 0, true }

func (r *rush) skip(ctx context.Context) bool {
	r.s.solver.Timeout()
	r.finished(ctx, domain.OutcomeFailed)
	return false
}

func (r *rush) pause() {
	r.clock.Pause()
	r.s.stopTimers(&r.s.sessionTimers)
}

func (r *rush) resume() {
	r.clock.Resume()
	r.arm()
}

func (r *rush) remaining() time.Duration { return r.clock.Remaining() }
