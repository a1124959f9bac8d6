// Package solver implements the single-attempt puzzle state machine.
//
//	InProgress --correct, more to go--> InProgress
//	InProgress --correct, last step---> Solved
//	InProgress --wrong----------------> InProgress (counted, not committed)
//	InProgress --timeout / reveal-----> Failed
//
// Solved and Failed are terminal until Reset. A Solver is not safe for
// concurrent use; its owner serializes access.
package solver

import (
	"fmt"
	"strings"

	"github.com/knightly-chess/knightly/internal/domain"
)

// Solver tracks one attempt at one puzzle.
type Solver struct {
	puzzle domain.Puzzle
	rules  domain.ChessRules
	strict bool

	cursor    int
	accepted  []string
	positions []string // positions[i] is the FEN before solution step i
	wrong     int
	status    domain.SolverStatus
}

// Option configures a Solver.
type Option func(*Solver)

// WithStrictMode makes a legal wrong move fail the attempt instead of
// allowing a retry. The move is still not committed.
func WithStrictMode() Option {
	return func(s *Solver) { s.strict = true }
}

// New loads the puzzle start position and returns a fresh attempt.
func New(p domain.Puzzle, rules domain.ChessRules, opts ...Option) (*Solver, error) {
	if err := rules.LoadPosition(p.StartFEN); err != nil {
		return nil, fmt.Errorf("load puzzle %s: %w", p.ID, err)
	}
	s := &Solver{puzzle: p, rules: rules}
	for _, o := range opts {
		o(s)
	}
	s.Reset()
	return s, nil
}

// Puzzle returns the puzzle being solved.
func (s *Solver) Puzzle() domain.Puzzle { return s.puzzle }

// Status returns the current lifecycle state.
func (s *Solver) Status() domain.SolverStatus { return s.status }

// CurrentFEN is the position after the accepted moves.
func (s *Solver) CurrentFEN() string { return s.positions[len(s.positions)-1] }

// Attempts counts the first try plus every wrong move.
func (s *Solver) Attempts() int { return 1 + s.wrong }

// State returns a snapshot safe to hand to other goroutines.
func (s *Solver) State() domain.SolverState {
	return domain.SolverState{
		PuzzleID:       s.puzzle.ID,
		Cursor:         s.cursor,
		AcceptedMoves:  append([]string(nil), s.accepted...),
		WrongMoveCount: s.wrong,
		Status:         s.status,
		FEN:            s.CurrentFEN(),
	}
}

// SubmitMove validates m against the rules and the expected solution step.
func (s *Solver) SubmitMove(m domain.Move) domain.MoveResult {
	if s.status != domain.StatusInProgress {
		return s.reject(domain.RejectNotInProgress)
	}

	applied, err := s.rules.ApplyMove(s.CurrentFEN(), m)
	if err != nil {
		return s.reject(domain.RejectIllegalMove)
	}

	if !matches(s.puzzle.Solution[s.cursor], applied) {
		s.wrong++
		if s.strict {
			s.status = domain.StatusFailed
		}
		res := s.reject(domain.RejectWrongMove)
		res.Failed = s.strict
		return res
	}

	s.accepted = append(s.accepted, applied.SAN)
	s.positions = append(s.positions, applied.NextFEN)
	s.cursor++
	if s.cursor == len(s.puzzle.Solution) {
		s.status = domain.StatusSolved
	}
	return domain.MoveResult{
		Accepted: true,
		SAN:      applied.SAN,
		Solved:   s.status == domain.StatusSolved,
		FEN:      applied.NextFEN,
	}
}

// RequestHint describes the expected next move without consuming an attempt.
func (s *Solver) RequestHint() (string, bool) {
	if s.status != domain.StatusInProgress || s.cursor >= len(s.puzzle.Solution) {
		return "", false
	}
	return hintFor(s.puzzle.Solution[s.cursor]), true
}

// Reveal returns the full solution and fails the attempt.
func (s *Solver) Reveal() []string {
	if s.status == domain.StatusInProgress {
		s.status = domain.StatusFailed
	}
	return append([]string(nil), s.puzzle.Solution...)
}

// Timeout fails an attempt in progress. It is a no-op on terminal states.
func (s *Solver) Timeout() {
	if s.status == domain.StatusInProgress {
		s.status = domain.StatusFailed
	}
}

// Reset restarts the same puzzle.
func (s *Solver) Reset() {
	s.cursor = 0
	s.accepted = nil
	s.positions = []string{s.puzzle.StartFEN}
	s.wrong = 0
	s.status = domain.StatusInProgress
	if len(s.puzzle.Solution) == 0 {
		s.status = domain.StatusSolved
	}
}

func (s *Solver) reject(reason domain.RejectReason) domain.MoveResult {
	return domain.MoveResult{
		Reason: reason,
		Failed: s.status == domain.StatusFailed,
		Solved: s.status == domain.StatusSolved,
		FEN:    s.CurrentFEN(),
	}
}

// ─── Notation ───────────────────────────────────────────────────────────────

// matches compares an expected solution step to the applied move, accepting
// SAN or UCI and ignoring check, mate and annotation suffixes.
func matches(expected string, applied domain.AppliedMove) bool {
	want := normalize(expected)
	return want == normalize(applied.SAN) || strings.EqualFold(want, applied.UCI)
}

func normalize(n string) string {
	return strings.TrimRight(strings.TrimSpace(n), "+#!?")
}

var pieceNames = map[byte]string{
	'K': "King",
	'Q': "Queen",
	'R': "Rook",
	'B': "Bishop",
	'N': "Knight",
}

func hintFor(notation string) string {
	n := normalize(notation)
	switch {
	case strings.HasPrefix(n, "O-O") || strings.HasPrefix(n, "0-0"):
		return "Castle your King"
	case n == "":
		return "Find the best move"
	case isCoordinate(n):
		return "Move the piece on " + strings.ToLower(n[:2])
	}
	if name, ok := pieceNames[n[0]]; ok {
		return "Move your " + name
	}
	return "Move a Pawn"
}

func isCoordinate(n string) bool {
	if len(n) != 4 && len(n) != 5 {
		return false
	}
	n = strings.ToLower(n)
	return n[0] >= 'a' && n[0] <= 'h' && n[1] >= '1' && n[1] <= '8' &&
		n[2] >= 'a' && n[2] <= 'h' && n[3] >= '1' && n[3] <= '8'
}
