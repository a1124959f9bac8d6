package domain

import "time"

// ─── Solver State ───────────────────────────────────────────────────────────

// SolverStatus is the lifecycle state of a single puzzle attempt.
type SolverStatus string

const (
	StatusInProgress SolverStatus = "in_progress"
	StatusSolved     SolverStatus = "solved"
	StatusFailed     SolverStatus = "failed"
)

// Terminal reports whether no further moves are accepted.
func (s SolverStatus) Terminal() bool {
	return s == StatusSolved || s == StatusFailed
}

// RejectReason explains why a submitted move was not committed.
type RejectReason string

const (
	RejectIllegalMove   RejectReason = "illegal_move"
	RejectWrongMove     RejectReason = "wrong_move"
	RejectNotInProgress RejectReason = "not_in_progress"
)

// MoveResult is the outcome of one submitted move. Rejection is a value,
// not an error.
type MoveResult struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	SAN      string       `json:"san,omitempty"`
	Solved   bool         `json:"solved"`
	Failed   bool         `json:"failed"`
	FEN      string       `json:"fen"`
}

// SolverState is a read-only snapshot of an attempt.
type SolverState struct {
	PuzzleID       string       `json:"puzzleId"`
	Cursor         int          `json:"cursor"`
	AcceptedMoves  []string     `json:"acceptedMoves"`
	WrongMoveCount int          `json:"wrongMoveCount"`
	Status         SolverStatus `json:"status"`
	FEN            string       `json:"fen"`
}

// ─── Modes ──────────────────────────────────────────────────────────────────

// Mode identifies a play mode.
type Mode string

const (
	ModeBlitz    Mode = "blitz"
	ModeDaily    Mode = "daily"
	ModeRush     Mode = "rush"
	ModePractice Mode = "practice"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeBlitz, ModeDaily, ModeRush, ModePractice:
		return true
	}
	return false
}

// Outcome is the terminal result of a puzzle attempt handed to scoring.
type Outcome string

const (
	OutcomeSolved   Outcome = "solved"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeRevealed Outcome = "revealed"
)

// ─── Score Records ──────────────────────────────────────────────────────────

// ScoreEntry records the points earned on one puzzle.
type ScoreEntry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Mode       Mode      `json:"mode"`
	PuzzleID   string    `json:"puzzleId"`
	Points     int       `json:"points"`
	EloDelta   int       `json:"eloDelta"`
	RecordedAt time.Time `json:"recordedAt"`
}

// SessionSummary records a finished mode session (rush high scores).
type SessionSummary struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Score     int       `json:"score"`
	Solved    int       `json:"solved"`
	Failed    int       `json:"failed"`
}

// DailyRecord tracks which puzzle was served on a calendar day and whether
// it was completed.
type DailyRecord struct {
	Date        string     `json:"date"` // YYYY-MM-DD, local time
	PuzzleID    string     `json:"puzzleId"`
	Solved      bool       `json:"solved"`
	Score       int        `json:"score"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Analysis is the optional engine verdict on a position.
type Analysis struct {
	BestMove  string   `json:"bestMove,omitempty"`
	ScoreCP   *int     `json:"scoreCp,omitempty"`
	MateIn    *int     `json:"mateIn,omitempty"`
	Depth     int      `json:"depth"`
	Principal []string `json:"pv,omitempty"`
}
