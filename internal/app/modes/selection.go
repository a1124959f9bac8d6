package modes

import (
	"context"

	"github.com/knightly-chess/knightly/internal/app/scoring"
	"github.com/knightly-chess/knightly/internal/domain"
)

// targetDifficulty is the pinned tier, else the settings preference, else
// the tier recommended for the player's level, rating and accuracy.
func (s *Session) targetDifficulty(ctx context.Context) domain.Difficulty {
	if s.difficulty.Valid() {
		return s.difficulty
	}
	if gs, err := s.deps.Store.Settings(ctx); s.storeOK("read_settings", err) {
		if d, err := domain.ParseDifficulty(gs.DifficultyPreference); err == nil {
			return d
		}
	}

	level, elo, accuracy := domain.LevelBeginner, domain.StartingElo, 0.0
	if p, err := s.deps.Store.Profile(ctx); s.storeOK("read_profile", err) {
		level, elo = p.Level, p.Elo
	}
	if st, err := s.deps.Store.Stats(ctx); s.storeOK("read_stats", err) {
		accuracy = st.Accuracy
	}
	return scoring.RecommendedDifficulty(level, elo, accuracy)
}

// pick chooses a random puzzle of the target difficulty, preferring puzzles
// the player has not solved and skipping those already served in this
// session. It widens to every difficulty, then to repeats, before giving up.
func (s *Session) pick(ctx context.Context) (domain.Puzzle, error) {
	seen := make([]string, 0, len(s.seen))
	for id := range s.seen {
		seen = append(seen, id)
	}

	filters := []domain.PuzzleFilter{
		{Difficulty: s.targetDifficulty(ctx), ExcludeIDs: seen},
		{ExcludeIDs: seen},
		{},
	}
	var pool []domain.Puzzle
	for _, f := range filters {
		var err error
		pool, err = s.deps.Puzzles.ListPuzzles(ctx, f)
		if err != nil {
			return domain.Puzzle{}, err
		}
		if len(pool) > 0 {
			break
		}
	}
	if len(pool) == 0 {
		return domain.Puzzle{}, domain.ErrNoPuzzles
	}

	if solved, err := s.deps.Store.SolvedPuzzleIDs(ctx); s.storeOK("read_progress", err) && len(solved) > 0 {
		unsolved := make([]domain.Puzzle, 0, len(pool))
		for _, p := range pool {
			if !solved[p.ID] {
				unsolved = append(unsolved, p)
			}
		}
		if len(unsolved) > 0 {
			pool = unsolved
		}
	}
	return pool[s.deps.RandIntN(len(pool))], nil
}
