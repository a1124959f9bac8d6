// Package progress is the persistence contract of the trainer: profile,
// per-puzzle progress, aggregate stats, settings, badges, daily history and
// score records. Every failure is returned wrapped; nothing is swallowed.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/knightly-chess/knightly/internal/app/scoring"
	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/infra/sqlite"
)

// Store owns every persisted trainer entity. Read-modify-write updates of
// the stats and profile documents are serialized, so sessions finishing
// together do not lose each other's changes.
type Store struct {
	db  *sqlite.DB
	now func() time.Time

	mu sync.Mutex // guards stats and profile updates
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a progress store over db.
func NewStore(db *sqlite.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ─── Profile ────────────────────────────────────────────────────────────────

// DefaultProfile is the profile of a new player.
func DefaultProfile() domain.UserProfile {
	return domain.UserProfile{
		Level:  domain.LevelBeginner,
		Elo:    domain.StartingElo,
		League: scoring.LeagueFromElo(domain.StartingElo),
		Badges: []domain.EarnedBadge{},
	}
}

// Profile returns the stored profile, creating the default on first access.
// The league always matches the rating.
func (s *Store) Profile(ctx context.Context) (domain.UserProfile, error) {
	p := DefaultProfile()
	ok, err := s.db.GetDocument(ctx, sqlite.DocProfile, &p)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	if !ok {
		if err := s.db.PutDocument(ctx, sqlite.DocProfile, p); err != nil {
			return domain.UserProfile{}, fmt.Errorf("create profile: %w", err)
		}
	}
	p.League = scoring.LeagueFromElo(p.Elo)

	badges, err := s.db.ListBadges(ctx)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("list badges: %w", err)
	}
	p.Badges = badges
	return p, nil
}

// UpdateProfile merges u into the profile. The league is recomputed from
// the rating, the tutorial flag only moves forward and play time never
// shrinks.
func (s *Store) UpdateProfile(ctx context.Context, u domain.ProfileUpdate) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProfile(ctx, u)
}

// UpdateElo applies change to the current rating in one step and returns
// the rating difference and the updated profile.
func (s *Store) UpdateElo(ctx context.Context, change func(elo int) int) (int, domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.Profile(ctx)
	if err != nil {
		return 0, domain.UserProfile{}, err
	}
	delta := change(p.Elo)
	elo := p.Elo + delta
	p, err = s.updateProfile(ctx, domain.ProfileUpdate{Elo: &elo})
	if err != nil {
		return 0, domain.UserProfile{}, err
	}
	return delta, p, nil
}

func (s *Store) updateProfile(ctx context.Context, u domain.ProfileUpdate) (domain.UserProfile, error) {
	p, err := s.Profile(ctx)
	if err != nil {
		return domain.UserProfile{}, err
	}

	if u.Level != nil {
		if !u.Level.Valid() {
			return domain.UserProfile{}, fmt.Errorf("level %q: %w", *u.Level, domain.ErrInvalidSetting)
		}
		p.Level = *u.Level
	}
	if u.Elo != nil {
		p.Elo = *u.Elo
	}
	if u.StreakCount != nil {
		p.StreakCount = *u.StreakCount
	}
	if u.LastPlayedDate != nil {
		t := *u.LastPlayedDate
		p.LastPlayedDate = &t
	}
	if u.TotalPlayTimeMin != nil && *u.TotalPlayTimeMin > p.TotalPlayTimeMin {
		p.TotalPlayTimeMin = *u.TotalPlayTimeMin
	}
	if u.HasCompletedTutorial != nil && *u.HasCompletedTutorial {
		p.HasCompletedTutorial = true
	}
	p.League = scoring.LeagueFromElo(p.Elo)

	// Badges live in their own table.
	doc := p
	doc.Badges = nil
	if err := s.db.PutDocument(ctx, sqlite.DocProfile, doc); err != nil {
		return domain.UserProfile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// AwardBadge awards the milestone badge for streakCount. It returns nil when
// streakCount is not a milestone or the badge was already earned.
func (s *Store) AwardBadge(ctx context.Context, streakCount int) (*domain.Badge, error) {
	def, ok := scoring.BadgeForStreak(streakCount)
	if !ok {
		return nil, nil
	}
	at := s.now()
	isNew, err := s.db.AwardBadge(ctx, def.ID, at)
	if err != nil {
		return nil, fmt.Errorf("award badge %s: %w", def.ID, err)
	}
	if !isNew {
		return nil, nil
	}
	return &domain.Badge{BadgeDef: def, EarnedAt: at}, nil
}

// ─── Puzzle Progress ────────────────────────────────────────────────────────

// SaveProgress upserts a progress record keyed by puzzle id.
func (s *Store) SaveProgress(ctx context.Context, p domain.PuzzleProgress) error {
	if p.PuzzleID == "" {
		return fmt.Errorf("save progress: puzzleId: %w", domain.ErrMissingField)
	}
	if err := s.db.UpsertProgress(ctx, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Progress returns the record of a puzzle, or nil if it was never attempted.
func (s *Store) Progress(ctx context.Context, puzzleID string) (*domain.PuzzleProgress, error) {
	p, err := s.db.GetProgress(ctx, puzzleID)
	if err != nil {
		return nil, fmt.Errorf("get progress %s: %w", puzzleID, err)
	}
	return p, nil
}

// AllProgress returns every progress record.
func (s *Store) AllProgress(ctx context.Context) ([]domain.PuzzleProgress, error) {
	all, err := s.db.ListProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return all, nil
}

// SolvedPuzzleIDs returns the set of solved puzzle ids.
func (s *Store) SolvedPuzzleIDs(ctx context.Context) (map[string]bool, error) {
	ids, err := s.db.SolvedPuzzleIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list solved: %w", err)
	}
	return ids, nil
}

// ─── Stats & Settings ───────────────────────────────────────────────────────

// Stats returns the aggregate stats, zeroed when none were saved yet.
func (s *Store) Stats(ctx context.Context) (domain.UserStats, error) {
	st := domain.NewUserStats()
	if _, err := s.db.GetDocument(ctx, sqlite.DocStats, &st); err != nil {
		return domain.UserStats{}, fmt.Errorf("get stats: %w", err)
	}
	for _, d := range domain.Difficulties {
		if _, ok := st.DifficultyBreakdown[d]; !ok {
			st.DifficultyBreakdown[d] = domain.DifficultyTally{}
		}
	}
	return st, nil
}

// SetStats replaces the stats. Derived fields are stored as given; callers
// run UserStats.Recompute first.
func (s *Store) SetStats(ctx context.Context, st domain.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStats(ctx, st)
}

// UpdateStats applies fn to the current stats and stores the result in one
// step.
func (s *Store) UpdateStats(ctx context.Context, fn func(st *domain.UserStats)) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.Stats(ctx)
	if err != nil {
		return domain.UserStats{}, err
	}
	fn(&st)
	if err := s.setStats(ctx, st); err != nil {
		return domain.UserStats{}, err
	}
	return st, nil
}

func (s *Store) setStats(ctx context.Context, st domain.UserStats) error {
	if err := s.db.PutDocument(ctx, sqlite.DocStats, st); err != nil {
		return fmt.Errorf("set stats: %w", err)
	}
	return nil
}

// Settings returns the game settings, or the defaults.
func (s *Store) Settings(ctx context.Context) (domain.GameSettings, error) {
	gs := domain.DefaultSettings()
	if _, err := s.db.GetDocument(ctx, sqlite.DocSettings, &gs); err != nil {
		return domain.GameSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return gs, nil
}

// SetSettings validates and replaces the game settings.
func (s *Store) SetSettings(ctx context.Context, gs domain.GameSettings) error {
	if err := ValidateSettings(gs); err != nil {
		return err
	}
	if err := s.db.PutDocument(ctx, sqlite.DocSettings, gs); err != nil {
		return fmt.Errorf("set settings: %w", err)
	}
	return nil
}

// ValidateSettings checks the fields that have a domain.
func ValidateSettings(gs domain.GameSettings) error {
	var errs []error
	if gs.EngineStrength < domain.MinEngineStrength || gs.EngineStrength > domain.MaxEngineStrength {
		errs = append(errs, fmt.Errorf("engineStrength %d outside %d..%d: %w",
			gs.EngineStrength, domain.MinEngineStrength, domain.MaxEngineStrength, domain.ErrInvalidSetting))
	}
	if gs.TimeLimitSec < 0 {
		errs = append(errs, fmt.Errorf("timeLimit %d: %w", gs.TimeLimitSec, domain.ErrInvalidSetting))
	}
	if gs.DifficultyPreference != domain.AdaptiveDifficulty && !domain.Difficulty(gs.DifficultyPreference).Valid() {
		errs = append(errs, fmt.Errorf("difficulty %q: %w", gs.DifficultyPreference, domain.ErrInvalidSetting))
	}
	return errors.Join(errs...)
}

// ClearAll wipes progress and the daily history and resets stats and
// settings to their defaults. The profile, earned badges and the score log
// are kept.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.ResetTrainingData(ctx, map[string]any{
		sqlite.DocStats:    domain.NewUserStats(),
		sqlite.DocSettings: domain.DefaultSettings(),
	})
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// ─── Daily History ──────────────────────────────────────────────────────────

// DailyRecord returns the record for a YYYY-MM-DD date, or nil.
func (s *Store) DailyRecord(ctx context.Context, date string) (*domain.DailyRecord, error) {
	r, err := s.db.GetDailyRecord(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("get daily %s: %w", date, err)
	}
	return r, nil
}

// SaveDailyRecord stores the daily record of its date.
func (s *Store) SaveDailyRecord(ctx context.Context, r domain.DailyRecord) error {
	if err := s.db.UpsertDailyRecord(ctx, r); err != nil {
		return fmt.Errorf("save daily %s: %w", r.Date, err)
	}
	return nil
}

// UsedDailyPuzzles lists puzzles already served on other days.
func (s *Store) UsedDailyPuzzles(ctx context.Context, exceptDate string) ([]string, error) {
	ids, err := s.db.UsedDailyPuzzles(ctx, exceptDate)
	if err != nil {
		return nil, fmt.Errorf("list daily history: %w", err)
	}
	return ids, nil
}

// ─── Scores & Sessions ──────────────────────────────────────────────────────

// RecordScore appends a score entry.
func (s *Store) RecordScore(ctx context.Context, e domain.ScoreEntry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	if err := s.db.InsertScore(ctx, e); err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	return nil
}

// SaveSession stores a finished session summary.
func (s *Store) SaveSession(ctx context.Context, sum domain.SessionSummary) error {
	if err := s.db.InsertSession(ctx, sum); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// BestSessionScore returns the high score of a mode, 0 when none.
func (s *Store) BestSessionScore(ctx context.Context, mode domain.Mode) (int, error) {
	best, err := s.db.BestSession(ctx, mode)
	if err != nil {
		return 0, fmt.Errorf("best session: %w", err)
	}
	if best == nil {
		return 0, nil
	}
	return best.Score, nil
}
