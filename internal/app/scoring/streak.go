package scoring

import (
	"time"

	"github.com/knightly-chess/knightly/internal/domain"
)

// MinQualifyingMinutes is the session length that counts toward a streak.
const MinQualifyingMinutes = 10

// streakGrace is the longest gap that keeps a streak alive.
const streakGrace = 48 * time.Hour

// StreakResult is the outcome of CalculateStreak.
type StreakResult struct {
	NewStreak int  `json:"newStreak"`
	IsReset   bool `json:"isReset"`
	Earned    bool `json:"earnedStreak"`
}

// CalculateStreak applies one play session to a daily streak.
//
// A gap longer than two days decays the streak to the highest milestone
// already reached. Otherwise the streak grows by one when the session lasted
// at least ten minutes and no qualifying session was recorded earlier on the
// same local calendar day. A zero lastPlayed means the player never played.
func CalculateStreak(current int, lastPlayed time.Time, sessionMinutes float64, now time.Time) StreakResult {
	if !lastPlayed.IsZero() && now.Sub(lastPlayed) > streakGrace {
		return StreakResult{NewStreak: MilestoneFloor(current), IsReset: true}
	}

	if sessionMinutes < MinQualifyingMinutes {
		return StreakResult{NewStreak: current}
	}
	if !lastPlayed.IsZero() && DateKey(lastPlayed.In(now.Location())) == DateKey(now) {
		return StreakResult{NewStreak: current}
	}
	return StreakResult{NewStreak: current + 1, Earned: true}
}

// MilestoneFloor returns the highest streak milestone not above n, or 0.
func MilestoneFloor(n int) int {
	floor := 0
	for _, b := range badgeTable {
		if b.Milestone <= n && b.Milestone > floor {
			floor = b.Milestone
		}
	}
	return floor
}

// DateKey formats t as a local YYYY-MM-DD calendar key.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ─── Difficulty Recommendation ──────────────────────────────────────────────

type difficultyBand struct {
	below int // exclusive upper ELO bound; 0 for the open-ended last band
	base  domain.Difficulty
}

type levelTable struct {
	bands     []difficultyBand
	threshold float64
}

var recommendTables = map[domain.PlayerLevel]levelTable{
	domain.LevelBeginner: {
		bands: []difficultyBand{
			{700, domain.DifficultySimple},
			{1000, domain.DifficultyMedium},
			{1300, domain.DifficultyHard},
			{0, domain.DifficultyUltra},
		},
		threshold: 0.70,
	},
	domain.LevelAmateur: {
		bands: []difficultyBand{
			{600, domain.DifficultySimple},
			{900, domain.DifficultyMedium},
			{1200, domain.DifficultyHard},
			{0, domain.DifficultyUltra},
		},
		threshold: 0.75,
	},
}

// RecommendedDifficulty picks a difficulty from the player's level and ELO
// band, stepping up one tier when recent accuracy clears the level threshold.
// Unknown levels are treated as beginner.
func RecommendedDifficulty(level domain.PlayerLevel, elo int, recentAccuracy float64) domain.Difficulty {
	tbl, ok := recommendTables[level]
	if !ok {
		tbl = recommendTables[domain.LevelBeginner]
	}

	d := tbl.bands[len(tbl.bands)-1].base
	for _, b := range tbl.bands {
		if b.below == 0 || elo < b.below {
			d = b.base
			break
		}
	}
	if recentAccuracy >= tbl.threshold {
		d = d.StepUp()
	}
	return d
}
