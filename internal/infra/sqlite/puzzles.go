package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knightly-chess/knightly/internal/domain"
)

// ─── Puzzle Repository ──────────────────────────────────────────────────────

const puzzleColumns = `id, fen, moves, difficulty, rating, main_tactic, themes, hint`

// UpsertPuzzles inserts or replaces puzzles in one transaction.
func (d *DB) UpsertPuzzles(ctx context.Context, puzzles []domain.Puzzle) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO puzzles (id, fen, moves, difficulty, rating, nominal_rating, main_tactic, themes, hint, validated)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				fen=excluded.fen,
				moves=excluded.moves,
				difficulty=excluded.difficulty,
				rating=excluded.rating,
				nominal_rating=excluded.nominal_rating,
				main_tactic=excluded.main_tactic,
				themes=excluded.themes,
				hint=excluded.hint,
				validated=excluded.validated`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range puzzles {
			moves, err := json.Marshal(p.Solution)
			if err != nil {
				return err
			}
			themes, err := json.Marshal(nonNil(p.LearningThemes))
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx,
				p.ID, p.StartFEN, string(moves), string(p.Difficulty),
				nullableInt(p.Rating), p.NominalRating(),
				p.MainTactic, string(themes), p.Hint, p.Validated(),
			); err != nil {
				return fmt.Errorf("upsert puzzle %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// GetPuzzle retrieves a puzzle by id.
func (d *DB) GetPuzzle(ctx context.Context, id string) (*domain.Puzzle, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+puzzleColumns+` FROM puzzles WHERE id = ?`, id)
	p, err := scanPuzzle(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrPuzzleNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPuzzles returns puzzles matching f, ordered by rating then id.
func (d *DB) ListPuzzles(ctx context.Context, f domain.PuzzleFilter) ([]domain.Puzzle, error) {
	var (
		where []string
		args  []any
	)
	if f.Difficulty != "" {
		where = append(where, "difficulty = ?")
		args = append(args, string(f.Difficulty))
	}
	if f.MinRating > 0 {
		where = append(where, "nominal_rating >= ?")
		args = append(args, f.MinRating)
	}
	if f.MaxRating > 0 {
		where = append(where, "nominal_rating <= ?")
		args = append(args, f.MaxRating)
	}
	if f.ValidatedOnly {
		where = append(where, "validated = 1")
	}
	if len(f.ExcludeIDs) > 0 {
		where = append(where, "id NOT IN ("+placeholders(len(f.ExcludeIDs))+")")
		for _, id := range f.ExcludeIDs {
			args = append(args, id)
		}
	}

	q := `SELECT ` + puzzleColumns + ` FROM puzzles`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY nominal_rating, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var puzzles []domain.Puzzle
	for rows.Next() {
		p, err := scanPuzzle(rows)
		if err != nil {
			return nil, err
		}
		puzzles = append(puzzles, *p)
	}
	return puzzles, rows.Err()
}

// CountPuzzles returns the catalog size.
func (d *DB) CountPuzzles(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM puzzles`).Scan(&n)
	return n, err
}

func scanPuzzle(s scanner) (*domain.Puzzle, error) {
	var (
		p          domain.Puzzle
		moves      string
		themes     string
		difficulty string
		rating     sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.StartFEN, &moves, &difficulty, &rating, &p.MainTactic, &themes, &p.Hint); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(moves), &p.Solution); err != nil {
		return nil, fmt.Errorf("decode moves of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(themes), &p.LearningThemes); err != nil {
		return nil, fmt.Errorf("decode themes of %s: %w", p.ID, err)
	}
	if len(p.LearningThemes) == 0 {
		p.LearningThemes = nil
	}
	p.Difficulty = domain.Difficulty(difficulty)
	p.Rating = intFromNull(rating)
	return &p, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
