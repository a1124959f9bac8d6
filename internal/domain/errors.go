package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.
// Move rejection is not an error; see MoveResult.

var (
	// Puzzle errors
	ErrPuzzleNotFound  = errors.New("puzzle not found")
	ErrNoPuzzles       = errors.New("no puzzles available")
	ErrInvalidPosition = errors.New("position could not be loaded")
	ErrIllegalMove     = errors.New("illegal move")

	// Mode errors
	ErrDailyCompleted  = errors.New("today's puzzle is already completed")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session has ended")
	ErrNoActivePuzzle  = errors.New("no puzzle loaded")
	ErrNotSupported    = errors.New("not available in this mode")

	// Import / settings errors
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidSetting = errors.New("invalid setting")

	// Engine errors
	ErrEngineUnavailable = errors.New("analysis engine unavailable")
)
