// Package catalog provides the built-in puzzle set and the JSON loader used
// to import more. The built-in set is seeded into the store on first start.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knightly-chess/knightly/internal/domain"
)

const initialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Catalog is the built-in puzzle set, easiest first.
var Catalog = []domain.Puzzle{
	{
		ID:             "fools-mate",
		StartFEN:       initialFEN,
		Solution:       []string{"f3", "e5", "g4", "Qh4#"},
		Difficulty:     domain.DifficultySimple,
		MainTactic:     "mate",
		LearningThemes: []string{"opening", "mateIn2"},
		Hint:           "The king's diagonal is wide open",
	},
	{
		ID:             "queen-fork",
		StartFEN:       "4k3/8/8/8/8/8/r7/3QK3 w - - 0 1",
		Solution:       []string{"Qa4+", "Kf7", "Qxa2+"},
		Difficulty:     domain.DifficultySimple,
		MainTactic:     "fork",
		LearningThemes: []string{"fork", "endgame"},
		Hint:           "Check the king and hit the rook at once",
	},
	{
		ID:             "knight-fork",
		StartFEN:       "r3k3/8/8/1N6/8/8/8/4K3 w - - 0 1",
		Solution:       []string{"Nc7+", "Kd7", "Nxa8"},
		Difficulty:     domain.DifficultySimple,
		MainTactic:     "fork",
		LearningThemes: []string{"fork", "knight"},
	},
	{
		ID:             "scholars-mate",
		StartFEN:       initialFEN,
		Solution:       []string{"e4", "e5", "Bc4", "Nc6", "Qh5", "Nf6", "Qxf7#"},
		Difficulty:     domain.DifficultyMedium,
		MainTactic:     "mate",
		LearningThemes: []string{"opening", "f7"},
		Hint:           "f7 is only defended by the king",
	},
	{
		ID:             "back-rank",
		StartFEN:       "2r3k1/5ppp/8/8/8/8/3Q1PPP/3R2K1 w - - 0 1",
		Solution:       []string{"Qd8+", "Rxd8", "Rxd8#"},
		Difficulty:     domain.DifficultyMedium,
		MainTactic:     "backRankMate",
		LearningThemes: []string{"sacrifice", "backRank"},
		Hint:           "The king has no luft",
	},
	{
		ID:             "smothered-mate",
		StartFEN:       "3r3k/6pp/7N/8/2Q5/8/5PPP/6K1 w - - 0 1",
		Solution:       []string{"Qg8+", "Rxg8", "Nf7#"},
		Difficulty:     domain.DifficultyHard,
		MainTactic:     "smotheredMate",
		LearningThemes: []string{"sacrifice", "knight"},
		Hint:           "Force the rook to block its own king",
	},
	{
		ID:             "legal-trap",
		StartFEN:       "rn1qkbnr/ppp2p1p/3p2p1/4p3/2B1P1b1/2N2N2/PPPP1PPP/R1BQK2R w KQkq - 0 5",
		Solution:       []string{"Nxe5", "Bxd1", "Bxf7+", "Ke7", "Nd5#"},
		Difficulty:     domain.DifficultyUltra,
		MainTactic:     "queenSacrifice",
		LearningThemes: []string{"opening", "pin", "mate"},
		Hint:           "The pin on your knight is not real",
	},
}

// Lookup returns the built-in puzzle with the given id, or nil.
func Lookup(id string) *domain.Puzzle {
	for i := range Catalog {
		if Catalog[i].ID == id {
			p := Catalog[i]
			return &p
		}
	}
	return nil
}

// Load decodes a JSON array of puzzles. Records without id or fen, or with
// an unknown difficulty, are rejected. Solutions outside 2..7 moves are
// kept and reported through Puzzle.Validated.
func Load(r io.Reader) ([]domain.Puzzle, error) {
	var puzzles []domain.Puzzle
	if err := json.NewDecoder(r).Decode(&puzzles); err != nil {
		return nil, fmt.Errorf("decode puzzles: %w", err)
	}
	for i := range puzzles {
		p := &puzzles[i]
		p.ID = strings.TrimSpace(p.ID)
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("puzzle #%d: id: %w", i, domain.ErrMissingField)
		case p.StartFEN == "":
			return nil, fmt.Errorf("puzzle %s: fen: %w", p.ID, domain.ErrMissingField)
		case len(p.Solution) == 0:
			return nil, fmt.Errorf("puzzle %s: moves: %w", p.ID, domain.ErrMissingField)
		}
		d, err := domain.ParseDifficulty(string(p.Difficulty))
		if err != nil {
			return nil, fmt.Errorf("puzzle %s: %w", p.ID, err)
		}
		p.Difficulty = d
	}
	return puzzles, nil
}

// LoadFile reads a puzzle file from disk.
func LoadFile(path string) ([]domain.Puzzle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Writer is the part of the store Seed needs.
type Writer interface {
	UpsertPuzzles(ctx context.Context, puzzles []domain.Puzzle) error
	CountPuzzles(ctx context.Context) (int, error)
}

// Seed writes the built-in catalog when the store holds no puzzles yet.
// It returns how many puzzles were written.
func Seed(ctx context.Context, w Writer) (int, error) {
	n, err := w.CountPuzzles(ctx)
	if err != nil {
		return 0, fmt.Errorf("count puzzles: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	if err := w.UpsertPuzzles(ctx, Catalog); err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	return len(Catalog), nil
}
