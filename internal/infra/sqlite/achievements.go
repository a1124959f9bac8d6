package sqlite

import (
	"context"
	"time"

	"github.com/knightly-chess/knightly/internal/domain"
)

// ─── Badges ─────────────────────────────────────────────────────────────────

// AwardBadge records a badge as earned.
// Returns false if already earned (idempotent).
func (d *DB) AwardBadge(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO achievements (id, earned_at) VALUES (?, ?)`,
		id, at.UnixMilli(),
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil // true = newly earned
}

// ListBadges returns every earned badge, oldest first.
func (d *DB) ListBadges(ctx context.Context) ([]domain.EarnedBadge, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, earned_at FROM achievements ORDER BY earned_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	badges := []domain.EarnedBadge{}
	for rows.Next() {
		var (
			b  domain.EarnedBadge
			at int64
		)
		if err := rows.Scan(&b.ID, &at); err != nil {
			return nil, err
		}
		b.EarnedAt = time.UnixMilli(at)
		badges = append(badges, b)
	}
	return badges, rows.Err()
}
