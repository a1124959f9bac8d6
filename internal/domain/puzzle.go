// Package domain holds the pure types of the puzzle trainer.
// Domain types carry no infrastructure dependency: persistence, chess rules
// and the analysis engine are reached through the interfaces in interfaces.go.
package domain

import (
	"fmt"
	"strings"
)

// ─── Difficulty ─────────────────────────────────────────────────────────────

// Difficulty is the coarse difficulty tier of a puzzle.
type Difficulty string

const (
	DifficultySimple Difficulty = "simple"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyUltra  Difficulty = "ultra"
)

// Difficulties lists every tier from easiest to hardest.
var Difficulties = []Difficulty{DifficultySimple, DifficultyMedium, DifficultyHard, DifficultyUltra}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	return d.Index() >= 0
}

// Index returns the position of d in Difficulties, or -1.
func (d Difficulty) Index() int {
	for i, v := range Difficulties {
		if v == d {
			return i
		}
	}
	return -1
}

// StepUp returns the next harder tier, capped at ultra.
func (d Difficulty) StepUp() Difficulty {
	i := d.Index()
	if i < 0 || i == len(Difficulties)-1 {
		return d
	}
	return Difficulties[i+1]
}

// ParseDifficulty parses a difficulty name (case-insensitive).
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// nominalRatings are used when a puzzle ships without its own rating.
var nominalRatings = map[Difficulty]int{
	DifficultySimple: 600,
	DifficultyMedium: 900,
	DifficultyHard:   1200,
	DifficultyUltra:  1500,
}

// ─── Puzzle ─────────────────────────────────────────────────────────────────

// Solution length bounds for a validated puzzle.
const (
	MinSolutionMoves = 2
	MaxSolutionMoves = 7
)

// Puzzle is an immutable puzzle record from the seed dataset.
type Puzzle struct {
	ID             string     `json:"id"`
	StartFEN       string     `json:"fen"`
	Solution       []string   `json:"moves"`
	Difficulty     Difficulty `json:"difficulty"`
	Rating         *int       `json:"rating,omitempty"`
	MainTactic     string     `json:"mainTactic,omitempty"`
	LearningThemes []string   `json:"learningThemes,omitempty"`
	Hint           string     `json:"hint,omitempty"`
}

// Validated reports whether the solution length is within 2..7 moves.
// Puzzles outside the range are flagged, not rejected.
func (p Puzzle) Validated() bool {
	n := len(p.Solution)
	return n >= MinSolutionMoves && n <= MaxSolutionMoves
}

// NominalRating returns the puzzle rating, or the default for its difficulty.
func (p Puzzle) NominalRating() int {
	if p.Rating != nil {
		return *p.Rating
	}
	if r, ok := nominalRatings[p.Difficulty]; ok {
		return r
	}
	return nominalRatings[DifficultyMedium]
}

// ─── Moves ──────────────────────────────────────────────────────────────────

// Move is a candidate move as submitted by the user: squares in algebraic
// coordinates ("e2", "e4") and an optional promotion piece ("q", "r", "b", "n").
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI returns the move in long algebraic form ("e7e8q").
func (m Move) UCI() string {
	return strings.ToLower(m.From + m.To + m.Promotion)
}

// AppliedMove is the result of applying a legal move to a position.
type AppliedMove struct {
	SAN     string `json:"san"`
	UCI     string `json:"uci"`
	NextFEN string `json:"fen"`
}
