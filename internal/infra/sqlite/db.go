// Package sqlite provides SQLite-based persistent storage for Knightly.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// PingContext checks database connectivity under ctx.
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Puzzle catalog
		`CREATE TABLE IF NOT EXISTS puzzles (
			id             TEXT PRIMARY KEY,
			fen            TEXT NOT NULL,
			moves          TEXT NOT NULL,
			difficulty     TEXT NOT NULL,
			rating         INTEGER,
			nominal_rating INTEGER NOT NULL,
			main_tactic    TEXT NOT NULL DEFAULT '',
			themes         TEXT NOT NULL DEFAULT '[]',
			hint           TEXT NOT NULL DEFAULT '',
			validated      BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_puzzles_rating ON puzzles(nominal_rating)`,
		`CREATE INDEX IF NOT EXISTS idx_puzzles_difficulty ON puzzles(difficulty)`,

		// Per-puzzle progress
		`CREATE TABLE IF NOT EXISTS progress (
			puzzle_id    TEXT PRIMARY KEY,
			solved       BOOLEAN NOT NULL DEFAULT 0,
			attempts     INTEGER NOT NULL DEFAULT 1,
			best_time_ms INTEGER,
			last_attempt INTEGER,
			streak       INTEGER
		)`,

		// Singleton JSON documents (profile, stats, settings)
		`CREATE TABLE IF NOT EXISTS documents (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		// Earned streak badges
		`CREATE TABLE IF NOT EXISTS achievements (
			id        TEXT PRIMARY KEY,
			earned_at INTEGER NOT NULL
		)`,

		// Daily puzzle history
		`CREATE TABLE IF NOT EXISTS daily_history (
			date         TEXT PRIMARY KEY,
			puzzle_id    TEXT NOT NULL,
			solved       BOOLEAN NOT NULL DEFAULT 0,
			score        INTEGER NOT NULL DEFAULT 0,
			completed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_puzzle ON daily_history(puzzle_id)`,

		// Score entries and finished sessions
		`CREATE TABLE IF NOT EXISTS scores (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL,
			mode        TEXT NOT NULL,
			puzzle_id   TEXT NOT NULL,
			points      INTEGER NOT NULL,
			elo_delta   INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_session ON scores(session_id)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			mode       TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at   INTEGER NOT NULL,
			score      INTEGER NOT NULL,
			solved     INTEGER NOT NULL,
			failed     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_mode_score ON sessions(mode, score)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// inTx runs fn in a transaction, rolling back on error.
func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnixMilli(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64)
	return &t
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func int64FromNull(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
