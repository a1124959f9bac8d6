package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ChessRules is the rules engine used to validate and apply moves.
// Positions are FEN strings so that every step is an immutable value.
type ChessRules interface {
	// LoadPosition checks that fen describes a playable position.
	LoadPosition(fen string) error

	// LegalMoves lists the legal moves of the piece on square, or of every
	// piece when square is empty.
	LegalMoves(fen, square string) ([]Move, error)

	// ApplyMove plays m on fen. Illegal moves return ErrIllegalMove.
	ApplyMove(fen string, m Move) (AppliedMove, error)
}

// AnalysisEngine is an optional position evaluator with an explicit lifecycle.
type AnalysisEngine interface {
	Initialize(ctx context.Context) error
	Analyze(ctx context.Context, fen string, depth int, budget time.Duration) (*Analysis, error)
	Shutdown() error
}

// PuzzleSource provides puzzles to the mode controllers.
type PuzzleSource interface {
	GetPuzzle(ctx context.Context, id string) (*Puzzle, error)
	ListPuzzles(ctx context.Context, f PuzzleFilter) ([]Puzzle, error)
	CountPuzzles(ctx context.Context) (int, error)
}

// PuzzleFilter narrows a puzzle listing. Zero values mean "any".
type PuzzleFilter struct {
	Difficulty    Difficulty
	MinRating     int // compared against NominalRating
	MaxRating     int
	ValidatedOnly bool
	ExcludeIDs    []string
	Limit         int
}
