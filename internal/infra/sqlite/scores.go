package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/knightly-chess/knightly/internal/domain"
)

// ─── Scores & Sessions ──────────────────────────────────────────────────────

// InsertScore appends a score entry.
func (d *DB) InsertScore(ctx context.Context, e domain.ScoreEntry) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO scores (id, session_id, mode, puzzle_id, points, elo_delta, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, string(e.Mode), e.PuzzleID, e.Points, e.EloDelta, e.RecordedAt.UnixMilli(),
	)
	return err
}

// ListScores returns the entries of a session in recording order.
func (d *DB) ListScores(ctx context.Context, sessionID string) ([]domain.ScoreEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, session_id, mode, puzzle_id, points, elo_delta, recorded_at
		 FROM scores WHERE session_id = ? ORDER BY recorded_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScoreEntry
	for rows.Next() {
		var (
			e    domain.ScoreEntry
			mode string
			at   int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &mode, &e.PuzzleID, &e.Points, &e.EloDelta, &at); err != nil {
			return nil, err
		}
		e.Mode = domain.Mode(mode)
		e.RecordedAt = time.UnixMilli(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertSession stores a finished session summary.
func (d *DB) InsertSession(ctx context.Context, s domain.SessionSummary) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, mode, started_at, ended_at, score, solved, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, string(s.Mode), s.StartedAt.UnixMilli(), s.EndedAt.UnixMilli(), s.Score, s.Solved, s.Failed,
	)
	return err
}

// BestSession returns the highest-scoring session of a mode, or nil.
func (d *DB) BestSession(ctx context.Context, mode domain.Mode) (*domain.SessionSummary, error) {
	var (
		s              domain.SessionSummary
		m              string
		started, ended int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, mode, started_at, ended_at, score, solved, failed
		 FROM sessions WHERE mode = ? ORDER BY score DESC, ended_at ASC LIMIT 1`, string(mode),
	).Scan(&s.ID, &m, &started, &ended, &s.Score, &s.Solved, &s.Failed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Mode = domain.Mode(m)
	s.StartedAt = time.UnixMilli(started)
	s.EndedAt = time.UnixMilli(ended)
	return &s, nil
}
