// Package scoring implements the pure progression formulas: puzzle score,
// ELO change, league tiers, daily streak and difficulty recommendation.
// Nothing here touches storage or the clock; callers pass "now" in.
package scoring

import (
	"math"
	"time"

	"github.com/knightly-chess/knightly/internal/domain"
)

// DefaultK is the ELO K-factor used by every mode.
const DefaultK = 32

// Score bounds.
const (
	MinScore = 1
	MaxScore = 10
)

const (
	baseScore     = 5.0
	maxTimeBonus  = 3.0
	maxAccBonus   = 2.0
	accBonusDecay = 0.5
)

var difficultyBonus = map[domain.Difficulty]float64{
	domain.DifficultySimple: 0,
	domain.DifficultyMedium: 1,
	domain.DifficultyHard:   2,
	domain.DifficultyUltra:  3,
}

// PuzzleScore rates a solved puzzle from 1 to 10.
// A zero timeLimit means untimed, which earns no time bonus.
func PuzzleScore(timeLimit, timeTaken time.Duration, attempts int, d domain.Difficulty) int {
	timeBonus := 0.0
	if timeLimit > 0 {
		timeBonus = clamp(maxTimeBonus*(1-float64(timeTaken)/float64(timeLimit)), 0, maxTimeBonus)
	}

	accBonus := maxAccBonus
	if attempts > 1 {
		accBonus = math.Max(0, maxAccBonus-float64(attempts-1)*accBonusDecay)
	}

	raw := baseScore + timeBonus + accBonus + difficultyBonus[d]
	return int(clamp(math.Round(raw), MinScore, MaxScore))
}

// ExpectedScore is the logistic win expectancy of a player against a puzzle.
func ExpectedScore(currentElo, puzzleRating int) float64 {
	return 1 / (1 + math.Pow(10, float64(puzzleRating-currentElo)/400))
}

// EloChange returns the signed rating delta for one attempt. The resulting
// rating is not clamped; it may go negative.
func EloChange(currentElo, puzzleRating int, solved bool, k int) int {
	actual := 0.0
	if solved {
		actual = 1
	}
	return int(math.Round(float64(k) * (actual - ExpectedScore(currentElo, puzzleRating))))
}

// leagueFloors are exclusive upper bounds, ascending.
var leagueFloors = []struct {
	below  int
	league domain.League
}{
	{800, domain.LeagueStone},
	{1000, domain.LeagueBronze},
	{1200, domain.LeagueSilver},
	{1400, domain.LeagueGold},
	{1600, domain.LeaguePlatinum},
	{1800, domain.LeagueDiamond},
}

// LeagueFromElo maps a rating to its league.
func LeagueFromElo(elo int) domain.League {
	for _, f := range leagueFloors {
		if elo < f.below {
			return f.league
		}
	}
	return domain.LeagueMaster
}

// RushPoints is the rush-mode reward for a solve: the base score scaled by
// ten percent per puzzle already in the current streak.
func RushPoints(base, streak int) int {
	if streak < 0 {
		streak = 0
	}
	return int(math.Round(float64(base) * (1 + 0.1*float64(streak))))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
