package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/knightly-chess/knightly/internal/domain"
)

// ─── Puzzle Progress ────────────────────────────────────────────────────────

// UpsertProgress writes a progress record keyed by puzzle id. The stored best
// time only ever shrinks and a solved puzzle stays solved.
func (d *DB) UpsertProgress(ctx context.Context, p domain.PuzzleProgress) error {
	return upsertProgress(ctx, d.db, p)
}

func upsertProgress(ctx context.Context, ex execer, p domain.PuzzleProgress) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO progress (puzzle_id, solved, attempts, best_time_ms, last_attempt, streak)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(puzzle_id) DO UPDATE SET
			solved=(progress.solved OR excluded.solved),
			attempts=excluded.attempts,
			best_time_ms=CASE
				WHEN progress.best_time_ms IS NULL THEN excluded.best_time_ms
				WHEN excluded.best_time_ms IS NULL THEN progress.best_time_ms
				ELSE MIN(progress.best_time_ms, excluded.best_time_ms)
			END,
			last_attempt=COALESCE(excluded.last_attempt, progress.last_attempt),
			streak=COALESCE(excluded.streak, progress.streak)`,
		p.PuzzleID, p.Solved, attempts,
		nullableInt64(p.BestTimeMs), nullableUnixMilli(p.LastAttempt), nullableInt(p.Streak),
	)
	if err != nil {
		return fmt.Errorf("upsert progress %s: %w", p.PuzzleID, err)
	}
	return nil
}

// GetProgress returns the record for a puzzle, or nil when none exists.
func (d *DB) GetProgress(ctx context.Context, puzzleID string) (*domain.PuzzleProgress, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT puzzle_id, solved, attempts, best_time_ms, last_attempt, streak
		 FROM progress WHERE puzzle_id = ?`, puzzleID)
	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	return p, err
}

// ListProgress returns every progress record ordered by puzzle id.
func (d *DB) ListProgress(ctx context.Context) ([]domain.PuzzleProgress, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT puzzle_id, solved, attempts, best_time_ms, last_attempt, streak
		 FROM progress ORDER BY puzzle_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.PuzzleProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SolvedPuzzleIDs returns the ids of every solved puzzle.
func (d *DB) SolvedPuzzleIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT puzzle_id FROM progress WHERE solved = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func scanProgress(s scanner) (*domain.PuzzleProgress, error) {
	var (
		p           domain.PuzzleProgress
		best        sql.NullInt64
		lastAttempt sql.NullInt64
		streak      sql.NullInt64
	)
	if err := s.Scan(&p.PuzzleID, &p.Solved, &p.Attempts, &best, &lastAttempt, &streak); err != nil {
		return nil, err
	}
	p.BestTimeMs = int64FromNull(best)
	p.LastAttempt = timeFromNull(lastAttempt)
	p.Streak = intFromNull(streak)
	return &p, nil
}
