package modes

import (
	"github.com/knightly-chess/knightly/internal/app/engagement"
	"github.com/knightly-chess/knightly/internal/domain"
)

// PuzzleView is what a client may see of a puzzle: never the solution.
type PuzzleView struct {
	ID             string            `json:"id"`
	FEN            string            `json:"fen"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	Rating         int               `json:"rating"`
	MainTactic     string            `json:"mainTactic,omitempty"`
	LearningThemes []string          `json:"learningThemes,omitempty"`
	Moves          int               `json:"moves"`
}

// NewPuzzleView hides the solution of p.
func NewPuzzleView(p domain.Puzzle) *PuzzleView {
	return &PuzzleView{
		ID:             p.ID,
		FEN:            p.StartFEN,
		Difficulty:     p.Difficulty,
		Rating:         p.NominalRating(),
		MainTactic:     p.MainTactic,
		LearningThemes: p.LearningThemes,
		Moves:          len(p.Solution),
	}
}

// Result is the scored outcome of the last finished attempt.
type Result struct {
	PuzzleID string         `json:"puzzleId"`
	Outcome  domain.Outcome `json:"outcome"`
	Points   int            `json:"points"`
	EloDelta int            `json:"eloDelta"`
	TimeMs   int64          `json:"timeMs"`
}

// View is a snapshot of a session for rendering.
type View struct {
	SessionID   string              `json:"sessionId"`
	Mode        domain.Mode         `json:"mode"`
	Puzzle      *PuzzleView         `json:"puzzle,omitempty"`
	State       *domain.SolverState `json:"state,omitempty"`
	RemainingMs *int64              `json:"remainingMs,omitempty"`
	Paused      bool                `json:"paused"`
	Score       int                 `json:"score"`
	Streak      int                 `json:"streak"`
	Solved      int                 `json:"solved"`
	Failed      int                 `json:"failed"`
	Last        *Result             `json:"last,omitempty"`
	Revealed    []string            `json:"revealed,omitempty"`
	Daily       *domain.DailyRecord `json:"daily,omitempty"`
	Ended       bool                `json:"ended"`
}

// Summary is returned by Exit.
type Summary struct {
	domain.SessionSummary
	Engagement *engagement.SessionReport `json:"engagement,omitempty"`
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		SessionID: s.id,
		Mode:      s.mode,
		Paused:    s.paused,
		Score:     s.score,
		Streak:    s.streak,
		Solved:    s.solved,
		Failed:    s.failed,
		Ended:     s.ended || s.exited,
		Revealed:  s.revealed,
	}
	if s.current != nil {
		v.Puzzle = NewPuzzleView(*s.current)
	}
	if s.solver != nil {
		st := s.solver.State()
		v.State = &st
	}
	if s.last != nil {
		last := *s.last
		v.Last = &last
	}
	if s.daily != nil {
		d := *s.daily
		v.Daily = &d
	}
	if t, ok := s.policy.(timed); ok && !v.Ended {
		if r := t.remaining(); r >= 0 {
			ms := r.Milliseconds()
			v.RemainingMs = &ms
		}
	}
	return v
}
