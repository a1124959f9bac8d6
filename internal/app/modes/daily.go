package modes

import (
	"context"
	"errors"
	"time"

	"github.com/knightly-chess/knightly/internal/app/scoring"
	"github.com/knightly-chess/knightly/internal/app/solver"
	"github.com/knightly-chess/knightly/internal/domain"
)

// DailyIndex maps a date string onto a pool of n puzzles: the sum of its
// character codes modulo n.
func DailyIndex(date string, n int) int {
	if n <= 0 {
		return 0
	}
	sum := 0
	for _, r := range date {
		sum += int(r)
	}
	return sum % n
}

// daily serves one deterministic puzzle per calendar day. It is untimed and
// closes for the day once solved.
type daily struct {
	s *Session
}

func (d *daily) today() string { return scoring.DateKey(d.s.deps.Clock.Now()) }

func (d *daily) selectPuzzle(ctx context.Context) (domain.Puzzle, error) {
	date := d.today()
	rec, err := d.s.deps.Store.DailyRecord(ctx, date)
	if !d.s.storeOK("read_daily", err) {
		rec = nil
	}

	if rec != nil {
		p, err := d.s.deps.Puzzles.GetPuzzle(ctx, rec.PuzzleID)
		switch {
		case err == nil && rec.Solved:
			d.s.daily = rec
			return *p, domain.ErrDailyCompleted
		case err == nil:
			d.s.daily = rec
			return *p, nil
		case !errors.Is(err, domain.ErrPuzzleNotFound):
			return domain.Puzzle{}, err
		}
		// The assigned puzzle is gone; choose again.
	}

	p, err := d.choose(ctx, date)
	if err != nil {
		return domain.Puzzle{}, err
	}
	rec = &domain.DailyRecord{Date: date, PuzzleID: p.ID}
	d.s.storeOK("write_daily", d.s.deps.Store.SaveDailyRecord(ctx, *rec))
	d.s.daily = rec
	return p, nil
}

// choose indexes into the validated puzzles not used on other days, falling
// back to every validated puzzle and then to every puzzle.
func (d *daily) choose(ctx context.Context, date string) (domain.Puzzle, error) {
	used, err := d.s.deps.Store.UsedDailyPuzzles(ctx, date)
	if !d.s.storeOK("read_daily", err) {
		used = nil
	}
	filters := []domain.PuzzleFilter{
		{ValidatedOnly: true, ExcludeIDs: used},
		{ValidatedOnly: true},
		{},
	}
	for _, f := range filters {
		pool, err := d.s.deps.Puzzles.ListPuzzles(ctx, f)
		if err != nil {
			return domain.Puzzle{}, err
		}
		if len(pool) > 0 {
			return pool[DailyIndex(date, len(pool))], nil
		}
	}
	return domain.Puzzle{}, domain.ErrNoPuzzles
}

func (d *daily) solverOptions() []solver.Option { return nil }

func (d *daily) started(context.Context) {}

func (d *daily) finished(ctx context.Context, o domain.Outcome) {
	now := d.s.deps.Clock.Now()
	taken := d.s.attempt.Elapsed()
	if o != domain.OutcomeSolved {
		d.s.recordScored(ctx, o, taken, 0)
		return
	}
	points := scoring.PuzzleScore(d.s.deps.Config.DailyLimit, taken, d.s.solver.Attempts(), d.s.current.Difficulty)
	d.s.recordScored(ctx, o, taken, points)

	rec := domain.DailyRecord{
		Date:        d.today(),
		PuzzleID:    d.s.current.ID,
		Solved:      true,
		Score:       points,
		CompletedAt: &now,
	}
	d.s.storeOK("write_daily", d.s.deps.Store.SaveDailyRecord(ctx, rec))
	d.s.daily = &rec
}

func (d *daily) next(domain.Outcome) (time.Duration, bool) { return 0, false }

// skip keeps today's attempt; there is no other puzzle to move to.
func (d *daily) skip(context.Context) bool { return true }
