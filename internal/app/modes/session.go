// Package modes runs play sessions: blitz, daily, rush and practice.
//
// A Session owns one solver at a time, selects puzzles according to its
// mode, scores terminal outcomes and writes them through the progress
// store. Store failures are logged and counted but never stop play; the
// in-memory solver stays authoritative for the current session.
package modes

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/app/engagement"
	"github.com/knightly-chess/knightly/internal/app/progress"
	"github.com/knightly-chess/knightly/internal/app/scoring"
	"github.com/knightly-chess/knightly/internal/app/solver"
	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/infra/engine"
	"github.com/knightly-chess/knightly/internal/infra/metrics"
)

// Config holds the timing knobs of the modes.
type Config struct {
	BlitzLimit   time.Duration // per-puzzle limit when settings carry none
	FailDelay    time.Duration // pause after a blitz failure before advancing
	SolveDelay   time.Duration // pause after a blitz solve before advancing
	RushDuration time.Duration
	DailyLimit   time.Duration // nominal limit used to score the untimed daily
	EloK         int
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		BlitzLimit:   60 * time.Second,
		FailDelay:    3 * time.Second,
		SolveDelay:   1500 * time.Millisecond,
		RushDuration: 15 * time.Minute,
		DailyLimit:   60 * time.Second,
		EloK:         scoring.DefaultK,
	}
}

// Deps are the collaborators shared by every mode.
type Deps struct {
	Puzzles   domain.PuzzleSource
	Store     *progress.Store
	Rules     domain.ChessRules
	Clock     Clock
	Scheduler Scheduler
	Advisor   *engine.Advisor          // optional
	Streaks   *engagement.StreakService // optional
	Log       *zap.Logger
	Config    Config
	RandIntN  func(n int) int
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = systemClock{}
	}
	if d.Scheduler == nil {
		d.Scheduler = systemScheduler{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.RandIntN == nil {
		d.RandIntN = rand.Intn
	}
	def := DefaultConfig()
	if d.Config == (Config{}) {
		d.Config = def
	}
	if d.Config.BlitzLimit <= 0 {
		d.Config.BlitzLimit = def.BlitzLimit
	}
	if d.Config.FailDelay < 0 {
		d.Config.FailDelay = def.FailDelay
	}
	if d.Config.SolveDelay < 0 {
		d.Config.SolveDelay = def.SolveDelay
	}
	if d.Config.RushDuration <= 0 {
		d.Config.RushDuration = def.RushDuration
	}
	if d.Config.DailyLimit <= 0 {
		d.Config.DailyLimit = def.DailyLimit
	}
	if d.Config.EloK <= 0 {
		d.Config.EloK = def.EloK
	}
	return d
}

// Controller drives one play session.
type Controller interface {
	ID() string
	Mode() domain.Mode
	LoadNext(ctx context.Context) (domain.Puzzle, error)
	SubmitMove(ctx context.Context, m domain.Move) (domain.MoveResult, error)
	Hint() (string, bool)
	Reveal(ctx context.Context) ([]string, error)
	Analysis(ctx context.Context) *domain.Analysis
	Pause()
	Resume()
	View() View
	Exit(ctx context.Context) Summary
}

// Option configures a Session.
type Option func(*Session)

// WithDifficulty pins puzzle selection to d instead of the settings
// preference or the recommended tier.
func WithDifficulty(d domain.Difficulty) Option {
	return func(s *Session) { s.difficulty = d }
}

// policy is the mode-specific part of a session. Every method runs with the
// session lock held.
type policy interface {
	selectPuzzle(ctx context.Context) (domain.Puzzle, error)
	solverOptions() []solver.Option
	started(ctx context.Context)
	// finished records a terminal outcome. It never loads a puzzle.
	finished(ctx context.Context, o domain.Outcome)
	// next says how to advance after finished: after a delay, or not at all.
	next(o domain.Outcome) (delay time.Duration, auto bool)
	// skip is called when LoadNext replaces an attempt still in progress.
	// Returning true keeps the current attempt.
	skip(ctx context.Context) bool
}

// Optional policy capabilities.
type (
	pauser interface {
		pause()
		resume()
	}
	revealer interface{ canReveal() }
	ender    interface{ end(ctx context.Context) }
	timed    interface{ remaining() time.Duration }
)

// Session is a Controller for one mode.
type Session struct {
	mu         sync.Mutex
	id         string
	mode       domain.Mode
	deps       Deps
	log        *zap.Logger
	policy     policy
	difficulty domain.Difficulty

	startedAt   time.Time
	attempt     *Stopwatch // time spent on the current puzzle
	current     *domain.Puzzle
	solver      *solver.Solver
	seen        map[string]bool

	gen           uint64 // bumped whenever the current attempt is replaced
	puzzleTimers  []Timer
	sessionTimers []Timer

	paused bool
	ended  bool
	exited bool
	exit   *Summary

	score    int
	solved   int
	failed   int
	streak   int
	last     *Result
	revealed []string
	daily    *domain.DailyRecord
}

var _ Controller = (*Session)(nil)

// New creates a session for mode. No puzzle is loaded until LoadNext.
func New(mode domain.Mode, deps Deps, opts ...Option) (*Session, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if deps.Puzzles == nil || deps.Store == nil || deps.Rules == nil {
		return nil, errors.New("modes: puzzles, store and rules are required")
	}
	deps = deps.withDefaults()
	s := &Session{
		id:   uuid.NewString(),
		mode: mode,
		deps: deps,
		seen: make(map[string]bool),
	}
	s.log = deps.Log.With(zap.String("session", s.id), zap.String("mode", string(mode)))
	s.startedAt = deps.Clock.Now()
	for _, o := range opts {
		o(s)
	}

	switch mode {
	case domain.ModeBlitz:
		s.policy = &blitz{s: s}
	case domain.ModeDaily:
		s.policy = &daily{s: s}
	case domain.ModeRush:
		r := &rush{s: s}
		s.policy = r
		s.mu.Lock()
		r.begin()
		s.mu.Unlock()
	case domain.ModePractice:
		s.policy = &practice{s: s}
	}
	metrics.ActiveSessions.WithLabelValues(string(mode)).Inc()
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Mode returns the session mode.
func (s *Session) Mode() domain.Mode { return s.mode }

// LoadNext selects and loads the next puzzle. An attempt still in progress
// is abandoned first: blitz and rush count it as failed, daily keeps it.
func (s *Session) LoadNext(ctx context.Context) (domain.Puzzle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited || s.ended {
		return domain.Puzzle{}, domain.ErrSessionEnded
	}
	return s.loadNextLocked(ctx)
}

func (s *Session) loadNextLocked(ctx context.Context) (domain.Puzzle, error) {
	if s.solver != nil && s.solver.Status() == domain.StatusInProgress {
		if s.policy.skip(ctx) {
			return *s.current, nil
		}
	}
	s.stopTimers(&s.puzzleTimers)
	s.gen++
	s.paused = false
	s.revealed = nil

	p, err := s.policy.selectPuzzle(ctx)
	if errors.Is(err, domain.ErrDailyCompleted) {
		s.current = &p
		s.solver = nil
		return p, err
	}
	if err != nil {
		return domain.Puzzle{}, err
	}
	sv, err := solver.New(p, s.deps.Rules, s.policy.solverOptions()...)
	if err != nil {
		return domain.Puzzle{}, err
	}
	s.current = &p
	s.solver = sv
	s.seen[p.ID] = true
	s.attempt = NewStopwatch(s.deps.Clock)
	s.policy.started(ctx)
	s.log.Debug("puzzle loaded", zap.String("puzzle", p.ID), zap.String("difficulty", string(p.Difficulty)))
	return p, nil
}

// SubmitMove validates m against the current attempt. Rejections are
// reported in the result; errors mean no attempt can take the move.
func (s *Session) SubmitMove(ctx context.Context, m domain.Move) (domain.MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited || s.ended {
		return domain.MoveResult{}, domain.ErrSessionEnded
	}
	if s.solver == nil {
		if s.daily != nil && s.daily.Solved {
			return domain.MoveResult{}, domain.ErrDailyCompleted
		}
		return domain.MoveResult{}, domain.ErrNoActivePuzzle
	}
	if s.paused {
		return domain.MoveResult{Reason: domain.RejectNotInProgress, FEN: s.solver.CurrentFEN()}, nil
	}

	res := s.solver.SubmitMove(m)
	if res.Reason == domain.RejectWrongMove {
		metrics.WrongMoves.WithLabelValues(string(s.mode)).Inc()
	}
	switch {
	case res.Solved:
		s.finish(ctx, domain.OutcomeSolved)
	case res.Failed:
		s.finish(ctx, domain.OutcomeFailed)
	}
	return res, nil
}

// finish records o and advances according to the mode.
func (s *Session) finish(ctx context.Context, o domain.Outcome) {
	s.policy.finished(ctx, o)
	delay, auto := s.policy.next(o)
	switch {
	case !auto || s.ended:
	case delay <= 0:
		s.advance(ctx)
	default:
		s.schedule(delay, true, s.advance)
	}
}

func (s *Session) advance(ctx context.Context) {
	if _, err := s.loadNextLocked(ctx); err != nil {
		s.log.Warn("advance failed", zap.Error(err))
	}
}

// Hint returns a hint for the expected move without consuming an attempt.
func (s *Session) Hint() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.solver == nil || s.exited {
		return "", false
	}
	return s.solver.RequestHint()
}

// Reveal shows the full solution and fails the attempt. Only practice
// allows it.
func (s *Session) Reveal(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policy.(revealer); !ok {
		return nil, domain.ErrNotSupported
	}
	if s.exited {
		return nil, domain.ErrSessionEnded
	}
	if s.solver == nil {
		return nil, domain.ErrNoActivePuzzle
	}
	if s.solver.Status() != domain.StatusInProgress {
		return append([]string(nil), s.current.Solution...), nil
	}
	s.revealed = s.solver.Reveal()
	s.finish(ctx, domain.OutcomeRevealed)
	return s.revealed, nil
}

// Analysis asks the engine about the current position. The lock is not
// held during the engine call.
func (s *Session) Analysis(ctx context.Context) *domain.Analysis {
	s.mu.Lock()
	if s.solver == nil || s.exited {
		s.mu.Unlock()
		return nil
	}
	fen := s.solver.CurrentFEN()
	s.mu.Unlock()
	return s.deps.Advisor.Analyze(ctx, fen)
}

// Pause stops the attempt stopwatch and the clocks of timed modes, and
// rejects moves until Resume.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.exited || s.ended || s.solver == nil || s.solver.Status() != domain.StatusInProgress {
		return
	}
	s.paused = true
	s.attempt.Pause()
	if p, ok := s.policy.(pauser); ok {
		p.pause()
	}
}

// Resume restarts the clocks stopped by Pause.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused || s.exited {
		return
	}
	s.paused = false
	if s.attempt != nil {
		s.attempt.Resume()
	}
	if p, ok := s.policy.(pauser); ok {
		p.resume()
	}
}

// Exit stops every pending callback, persists what the mode keeps about the
// session and records the play time against the daily streak. Calling Exit
// again returns the same summary.
func (s *Session) Exit(ctx context.Context) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exit != nil {
		return *s.exit
	}
	s.exited = true
	s.gen++
	s.stopTimers(&s.puzzleTimers)
	s.stopTimers(&s.sessionTimers)
	if e, ok := s.policy.(ender); ok {
		e.end(ctx)
	}

	now := s.deps.Clock.Now()
	sum := Summary{SessionSummary: s.summary(now)}
	if s.deps.Streaks != nil {
		report, err := s.deps.Streaks.RecordSession(ctx, now.Sub(s.startedAt).Minutes(), now)
		if s.storeOK("record_session", err) {
			sum.Engagement = &report
		}
	}
	metrics.ActiveSessions.WithLabelValues(string(s.mode)).Dec()
	s.log.Info("session exited", zap.Int("score", s.score), zap.Int("solved", s.solved), zap.Int("failed", s.failed))
	s.exit = &sum
	return sum
}

func (s *Session) summary(end time.Time) domain.SessionSummary {
	return domain.SessionSummary{
		ID:        s.id,
		Mode:      s.mode,
		StartedAt: s.startedAt,
		EndedAt:   end,
		Score:     s.score,
		Solved:    s.solved,
		Failed:    s.failed,
	}
}

// ─── Timers ─────────────────────────────────────────────────────────────────

// schedule runs fn after d with the session lock held. Puzzle-scoped
// callbacks are dropped once the attempt they belong to was replaced; every
// callback is dropped after Exit.
func (s *Session) schedule(d time.Duration, puzzleScoped bool, fn func(ctx context.Context)) {
	gen := s.gen
	t := s.deps.Scheduler.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.exited || (puzzleScoped && s.gen != gen) {
			return
		}
		fn(context.Background())
	})
	if puzzleScoped {
		s.puzzleTimers = append(s.puzzleTimers, t)
	} else {
		s.sessionTimers = append(s.sessionTimers, t)
	}
}

func (s *Session) stopTimers(ts *[]Timer) {
	for _, t := range *ts {
		t.Stop()
	}
	*ts = nil
}

// ─── Outcome Recording ──────────────────────────────────────────────────────

// storeOK logs and counts a store failure. It reports whether err was nil.
func (s *Session) storeOK(op string, err error) bool {
	if err == nil {
		return true
	}
	metrics.StoreErrors.WithLabelValues(op).Inc()
	s.log.Warn("store operation failed", zap.String("op", op), zap.Error(err))
	return false
}

// countOutcome updates the session counters and metrics for a terminal
// attempt.
func (s *Session) countOutcome(o domain.Outcome, taken time.Duration) {
	p := s.current
	labels := []string{string(s.mode), string(p.Difficulty)}
	metrics.PuzzlesAttempted.WithLabelValues(labels...).Inc()
	if o == domain.OutcomeSolved {
		s.solved++
		metrics.PuzzlesSolved.WithLabelValues(labels...).Inc()
		metrics.SolveDuration.WithLabelValues(string(s.mode)).Observe(taken.Seconds())
	} else {
		s.failed++
	}
}

// recordScored writes stats, rating, progress and a score entry for a
// terminal attempt in a scored mode.
func (s *Session) recordScored(ctx context.Context, o domain.Outcome, taken time.Duration, points int) {
	p := *s.current
	solved := o == domain.OutcomeSolved
	s.countOutcome(o, taken)
	s.score += points
	res := &Result{PuzzleID: p.ID, Outcome: o, Points: points, TimeMs: taken.Milliseconds()}
	s.last = res

	// The session streak stands in when the stats cannot be read.
	streak := s.streak
	st, err := s.deps.Store.UpdateStats(ctx, func(st *domain.UserStats) {
		if solved {
			st.RecordSolve(p.Difficulty, taken)
		} else {
			st.RecordFailure(p.Difficulty)
		}
	})
	if s.storeOK("update_stats", err) {
		streak = st.CurrentStreak
	}

	delta, prof, err := s.deps.Store.UpdateElo(ctx, func(elo int) int {
		return scoring.EloChange(elo, p.NominalRating(), solved, s.deps.Config.EloK)
	})
	if s.storeOK("update_elo", err) {
		res.EloDelta = delta
		metrics.PlayerElo.Set(float64(prof.Elo))
	}

	s.saveProgress(ctx, solved, taken, streak)

	entry := domain.ScoreEntry{
		ID:         uuid.NewString(),
		SessionID:  s.id,
		Mode:       s.mode,
		PuzzleID:   p.ID,
		Points:     points,
		EloDelta:   res.EloDelta,
		RecordedAt: s.deps.Clock.Now(),
	}
	s.storeOK("write_score", s.deps.Store.RecordScore(ctx, entry))
}

// saveProgress upserts the per-puzzle record for the current attempt. A
// solve records the player's solve streak including this puzzle.
func (s *Session) saveProgress(ctx context.Context, solved bool, taken time.Duration, streak int) {
	id := s.current.ID
	prev, err := s.deps.Store.Progress(ctx, id)
	if !s.storeOK("read_progress", err) {
		return
	}
	now := s.deps.Clock.Now()
	rec := domain.PuzzleProgress{PuzzleID: id, Solved: solved, Attempts: 1, LastAttempt: &now}
	if prev != nil {
		rec.Attempts = prev.Attempts + 1
	}
	if solved {
		ms := taken.Milliseconds()
		rec.BestTimeMs = &ms
		rec.Streak = &streak
	}
	s.storeOK("write_progress", s.deps.Store.SaveProgress(ctx, rec))
}
