package sqlite

import (
	"context"
	"database/sql"

	"github.com/knightly-chess/knightly/internal/domain"
)

// ─── Daily History ──────────────────────────────────────────────────────────

// UpsertDailyRecord stores the daily record for its date. A solved day stays
// solved.
func (d *DB) UpsertDailyRecord(ctx context.Context, r domain.DailyRecord) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO daily_history (date, puzzle_id, solved, score, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			puzzle_id=excluded.puzzle_id,
			solved=(daily_history.solved OR excluded.solved),
			score=MAX(daily_history.score, excluded.score),
			completed_at=COALESCE(daily_history.completed_at, excluded.completed_at)`,
		r.Date, r.PuzzleID, r.Solved, r.Score, nullableUnixMilli(r.CompletedAt),
	)
	return err
}

// GetDailyRecord returns the record for date, or nil.
func (d *DB) GetDailyRecord(ctx context.Context, date string) (*domain.DailyRecord, error) {
	var (
		r         domain.DailyRecord
		completed sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT date, puzzle_id, solved, score, completed_at FROM daily_history WHERE date = ?`, date,
	).Scan(&r.Date, &r.PuzzleID, &r.Solved, &r.Score, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.CompletedAt = timeFromNull(completed)
	return &r, nil
}

// UsedDailyPuzzles returns the puzzle ids served on any date other than
// exceptDate.
func (d *DB) UsedDailyPuzzles(ctx context.Context, exceptDate string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT DISTINCT puzzle_id FROM daily_history WHERE date <> ? ORDER BY puzzle_id`, exceptDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
