package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Document keys for the singleton records.
const (
	DocProfile  = "profile"
	DocStats    = "stats"
	DocSettings = "settings"
)

// ─── Documents ──────────────────────────────────────────────────────────────

// PutDocument stores v as JSON under key.
func (d *DB) PutDocument(ctx context.Context, key string, v any) error {
	return putDocument(ctx, d.db, key, v)
}

// PutDocuments stores several documents atomically.
func (d *DB) PutDocuments(ctx context.Context, docs map[string]any) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		for k, v := range docs {
			if err := putDocument(ctx, tx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDocument decodes the document under key into dst.
// Returns false if the key does not exist.
func (d *DB) GetDocument(ctx context.Context, key string, dst any) (bool, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return false, fmt.Errorf("decode document %s: %w", key, err)
	}
	return true, nil
}

// ResetTrainingData wipes progress and the daily history and replaces the
// given documents in one transaction. Profile, badges, scores and sessions
// are untouched unless listed in docs.
func (d *DB) ResetTrainingData(ctx context.Context, docs map[string]any) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM progress`); err != nil {
			return fmt.Errorf("clear progress: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_history`); err != nil {
			return fmt.Errorf("clear daily history: %w", err)
		}
		for k, v := range docs {
			if err := putDocument(ctx, tx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func putDocument(ctx context.Context, ex execer, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", key, err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write document %s: %w", key, err)
	}
	return nil
}
