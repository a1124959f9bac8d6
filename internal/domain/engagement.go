// Progression and engagement types.
// Profile, aggregate stats, settings, leagues, streak badges and the
// export bundle that carries them between installations.

package domain

import "time"

// ─── League ─────────────────────────────────────────────────────────────────

// League is a coarse tier label derived from ELO. It is never set on its own.
type League string

const (
	LeagueStone    League = "stone"
	LeagueBronze   League = "bronze"
	LeagueSilver   League = "silver"
	LeagueGold     League = "gold"
	LeaguePlatinum League = "platinum"
	LeagueDiamond  League = "diamond"
	LeagueMaster   League = "master"
)

// ─── Profile ────────────────────────────────────────────────────────────────

// PlayerLevel is the self-declared experience level chosen at onboarding.
type PlayerLevel string

const (
	LevelBeginner PlayerLevel = "beginner"
	LevelAmateur  PlayerLevel = "amateur"
)

// Valid reports whether l is a known level.
func (l PlayerLevel) Valid() bool {
	return l == LevelBeginner || l == LevelAmateur
}

// StartingElo is the rating of a fresh profile.
const StartingElo = 400

// EarnedBadge records when a badge was earned.
type EarnedBadge struct {
	ID       string    `json:"id"`
	EarnedAt time.Time `json:"earnedAt"`
}

// UserProfile is the persistent player profile (singleton).
type UserProfile struct {
	Level                PlayerLevel   `json:"level"`
	Elo                  int           `json:"elo"`
	League               League        `json:"league"`
	StreakCount          int           `json:"streakCount"` // daily-activity streak
	LastPlayedDate       *time.Time    `json:"lastPlayedDate,omitempty"`
	Badges               []EarnedBadge `json:"badges"`
	TotalPlayTimeMin     float64       `json:"totalPlayTime"`
	HasCompletedTutorial bool          `json:"hasCompletedTutorial"`
}

// HasBadge reports whether a badge id was already earned.
func (p UserProfile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// ProfileUpdate is a partial profile update; nil fields are left unchanged.
// League is absent on purpose: it follows Elo.
type ProfileUpdate struct {
	Level                *PlayerLevel `json:"level,omitempty"`
	Elo                  *int         `json:"elo,omitempty"`
	StreakCount          *int         `json:"streakCount,omitempty"`
	LastPlayedDate       *time.Time   `json:"lastPlayedDate,omitempty"`
	TotalPlayTimeMin     *float64     `json:"totalPlayTime,omitempty"`
	HasCompletedTutorial *bool        `json:"hasCompletedTutorial,omitempty"`
}

// BadgeDef describes a streak-milestone badge.
type BadgeDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Milestone   int    `json:"milestone"`
}

// Badge is a badge definition together with the moment it was earned.
type Badge struct {
	BadgeDef
	EarnedAt time.Time `json:"earnedAt"`
}

// ─── Stats ──────────────────────────────────────────────────────────────────

// DifficultyTally counts attempts and solves for one difficulty.
type DifficultyTally struct {
	Solved    int `json:"solved"`
	Attempted int `json:"attempted"`
}

// UserStats is the aggregate solving record (singleton).
type UserStats struct {
	TotalPuzzles        int                            `json:"totalPuzzles"`
	SolvedPuzzles       int                            `json:"solvedPuzzles"`
	CurrentStreak       int                            `json:"currentStreak"`
	BestStreak          int                            `json:"bestStreak"`
	TotalTimeMs         int64                          `json:"totalTime"`
	AverageTimeMs       int64                          `json:"averageTime"`
	Accuracy            float64                        `json:"accuracy"`
	DifficultyBreakdown map[Difficulty]DifficultyTally `json:"difficultyBreakdown"`
}

// NewUserStats returns zeroed stats with an empty bucket per difficulty.
func NewUserStats() UserStats {
	s := UserStats{DifficultyBreakdown: make(map[Difficulty]DifficultyTally, len(Difficulties))}
	for _, d := range Difficulties {
		s.DifficultyBreakdown[d] = DifficultyTally{}
	}
	return s
}

// Recompute refreshes the derived fields: accuracy, average time and the
// running maximum of the streak.
func (s *UserStats) Recompute() {
	if s.TotalPuzzles > 0 {
		s.Accuracy = float64(s.SolvedPuzzles) / float64(s.TotalPuzzles)
	} else {
		s.Accuracy = 0
	}
	if s.SolvedPuzzles > 0 {
		s.AverageTimeMs = s.TotalTimeMs / int64(s.SolvedPuzzles)
	} else {
		s.AverageTimeMs = 0
	}
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
}

// RecordSolve counts a solved attempt taking d.
func (s *UserStats) RecordSolve(diff Difficulty, d time.Duration) {
	s.ensureBreakdown()
	s.TotalPuzzles++
	s.SolvedPuzzles++
	s.CurrentStreak++
	s.TotalTimeMs += d.Milliseconds()
	t := s.DifficultyBreakdown[diff]
	t.Attempted++
	t.Solved++
	s.DifficultyBreakdown[diff] = t
	s.Recompute()
}

// RecordFailure counts a failed or timed-out attempt and breaks the streak.
func (s *UserStats) RecordFailure(diff Difficulty) {
	s.ensureBreakdown()
	s.TotalPuzzles++
	s.CurrentStreak = 0
	t := s.DifficultyBreakdown[diff]
	t.Attempted++
	s.DifficultyBreakdown[diff] = t
	s.Recompute()
}

// Consistent reports whether the counter invariants hold.
func (s UserStats) Consistent() bool {
	if s.SolvedPuzzles > s.TotalPuzzles {
		return false
	}
	for _, t := range s.DifficultyBreakdown {
		if t.Solved > t.Attempted {
			return false
		}
	}
	return true
}

func (s *UserStats) ensureBreakdown() {
	if s.DifficultyBreakdown == nil {
		s.DifficultyBreakdown = make(map[Difficulty]DifficultyTally, len(Difficulties))
	}
}

// ─── Progress ───────────────────────────────────────────────────────────────

// PuzzleProgress is the per-puzzle solving record.
type PuzzleProgress struct {
	PuzzleID    string     `json:"puzzleId"`
	Solved      bool       `json:"solved"`
	Attempts    int        `json:"attempts"`
	BestTimeMs  *int64     `json:"bestTime,omitempty"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
	Streak      *int       `json:"streak,omitempty"`
}

// ─── Settings ───────────────────────────────────────────────────────────────

// Engine strength bounds (UCI "Skill Level").
const (
	MinEngineStrength = 1
	MaxEngineStrength = 20
)

// AdaptiveDifficulty lets the trainer pick the difficulty from rating and accuracy.
const AdaptiveDifficulty = "adaptive"

// GameSettings is pure configuration (singleton).
type GameSettings struct {
	Theme                string `json:"theme"`
	PieceStyle           string `json:"pieceStyle"`
	TimeLimitSec         int    `json:"timeLimit"`
	DifficultyPreference string `json:"difficulty"`
	SoundEnabled         bool   `json:"soundEnabled"`
	AnimationsEnabled    bool   `json:"animationsEnabled"`
	EngineStrength       int    `json:"engineStrength"`
}

// DefaultSettings returns the settings of a fresh installation.
func DefaultSettings() GameSettings {
	return GameSettings{
		Theme:                "classic",
		PieceStyle:           "standard",
		TimeLimitSec:         60,
		DifficultyPreference: AdaptiveDifficulty,
		SoundEnabled:         true,
		AnimationsEnabled:    true,
		EngineStrength:       10,
	}
}

// ─── Export ─────────────────────────────────────────────────────────────────

// ExportVersion is written into every export bundle.
const ExportVersion = "1.0"

// ExportBundle is the user-facing backup file.
type ExportBundle struct {
	Version    string           `json:"version"`
	ExportDate time.Time        `json:"exportDate"`
	Progress   []PuzzleProgress `json:"progress"`
	Stats      UserStats        `json:"stats"`
	Settings   GameSettings     `json:"settings"`
}
