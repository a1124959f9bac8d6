package progress_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knightly-chess/knightly/internal/app/progress"
	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/infra/sqlite"
)

// testStore creates a store over a temporary SQLite database.
func testStore(t *testing.T) *progress.Store {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return progress.NewStore(db)
}

func ptr[T any](v T) *T { return &v }

// ═══════════════════════════════════════════════════════════════════════════
// Profile
// ═══════════════════════════════════════════════════════════════════════════

func TestProfile_DefaultCreatedOnce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelBeginner, p.Level)
	assert.Equal(t, 400, p.Elo)
	assert.Equal(t, domain.LeagueStone, p.League)
	assert.Empty(t, p.Badges)
	assert.Zero(t, p.StreakCount)
}

func TestUpdateProfile_RecomputesLeague(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p, err := s.UpdateProfile(ctx, domain.ProfileUpdate{Elo: ptr(1450)})
	require.NoError(t, err)
	assert.Equal(t, domain.LeaguePlatinum, p.League)

	again, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1450, again.Elo)
	assert.Equal(t, domain.LeaguePlatinum, again.League)
}

func TestUpdateProfile_MonotonicFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.UpdateProfile(ctx, domain.ProfileUpdate{
		TotalPlayTimeMin:     ptr(42.0),
		HasCompletedTutorial: ptr(true),
	})
	require.NoError(t, err)

	p, err := s.UpdateProfile(ctx, domain.ProfileUpdate{
		TotalPlayTimeMin:     ptr(10.0),
		HasCompletedTutorial: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 42.0, p.TotalPlayTimeMin)
	assert.True(t, p.HasCompletedTutorial)
}

func TestUpdateProfile_InvalidLevel(t *testing.T) {
	s := testStore(t)
	_, err := s.UpdateProfile(context.Background(), domain.ProfileUpdate{Level: ptr(domain.PlayerLevel("grandmaster"))})
	assert.ErrorIs(t, err, domain.ErrInvalidSetting)
}

func TestAwardBadge_Idempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	b, err := s.AwardBadge(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "streak-10", b.ID)

	b, err = s.AwardBadge(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = s.AwardBadge(ctx, 11)
	require.NoError(t, err)
	assert.Nil(t, b)

	p, err := s.Profile(ctx)
	require.NoError(t, err)
	require.Len(t, p.Badges, 1)
	assert.Equal(t, "streak-10", p.Badges[0].ID)
}

// ═══════════════════════════════════════════════════════════════════════════
// Stats & Settings
// ═══════════════════════════════════════════════════════════════════════════

func TestStats_DefaultAndReplace(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.TotalPuzzles)
	assert.Len(t, st.DifficultyBreakdown, 4)

	st.RecordSolve(domain.DifficultyHard, 12*time.Second)
	require.NoError(t, s.SetStats(ctx, st))

	got, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestSetSettings_Validation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	gs := domain.DefaultSettings()
	gs.EngineStrength = 21
	assert.ErrorIs(t, s.SetSettings(ctx, gs), domain.ErrInvalidSetting)

	gs = domain.DefaultSettings()
	gs.DifficultyPreference = "extreme"
	assert.ErrorIs(t, s.SetSettings(ctx, gs), domain.ErrInvalidSetting)

	gs = domain.DefaultSettings()
	gs.DifficultyPreference = string(domain.DifficultyHard)
	gs.EngineStrength = 20
	require.NoError(t, s.SetSettings(ctx, gs))

	got, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, gs, got)
}

func TestClearAll_PreservesProfile(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.UpdateProfile(ctx, domain.ProfileUpdate{Elo: ptr(900)})
	require.NoError(t, err)
	_, err = s.AwardBadge(ctx, 20)
	require.NoError(t, err)
	require.NoError(t, s.SaveProgress(ctx, domain.PuzzleProgress{PuzzleID: "p1", Solved: true, Attempts: 1}))
	st := domain.NewUserStats()
	st.RecordSolve(domain.DifficultySimple, time.Second)
	require.NoError(t, s.SetStats(ctx, st))

	require.NoError(t, s.ClearAll(ctx))

	all, err := s.AllProgress(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	cleared, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleared.TotalPuzzles)

	p, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 900, p.Elo)
	assert.Len(t, p.Badges, 1)
}

func TestClearAll_ResetsDailyHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveDailyRecord(ctx, domain.DailyRecord{Date: "2026-03-14", PuzzleID: "p1", Solved: true}))

	require.NoError(t, s.ClearAll(ctx))

	r, err := s.DailyRecord(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Nil(t, r)
}

// ═══════════════════════════════════════════════════════════════════════════
// Concurrent updates
// ═══════════════════════════════════════════════════════════════════════════

func TestUpdateStatsAndElo_Concurrent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateStats(ctx, func(st *domain.UserStats) {
				st.RecordSolve(domain.DifficultySimple, time.Second)
			})
			assert.NoError(t, err)
			_, _, err = s.UpdateElo(ctx, func(int) int { return 25 })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, st.TotalPuzzles)
	assert.Equal(t, n, st.SolvedPuzzles)
	assert.Equal(t, n, st.CurrentStreak)

	p, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StartingElo+n*25, p.Elo)
	assert.Equal(t, domain.LeagueBronze, p.League)
}

func TestUpdateElo_ReturnsDelta(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	delta, p, err := s.UpdateElo(ctx, func(elo int) int {
		assert.Equal(t, domain.StartingElo, elo)
		return -16
	})
	require.NoError(t, err)
	assert.Equal(t, -16, delta)
	assert.Equal(t, domain.StartingElo-16, p.Elo)
}

// ═══════════════════════════════════════════════════════════════════════════
// Export / Import
// ═══════════════════════════════════════════════════════════════════════════

func TestExportImport_RoundTrip(t *testing.T) {
	src := testStore(t)
	ctx := context.Background()
	at := time.Now()

	require.NoError(t, src.SaveProgress(ctx, domain.PuzzleProgress{PuzzleID: "p1", Solved: true, Attempts: 2, BestTimeMs: ptr(int64(8000)), LastAttempt: &at}))
	require.NoError(t, src.SaveProgress(ctx, domain.PuzzleProgress{PuzzleID: "p2", Attempts: 1}))
	st := domain.NewUserStats()
	st.RecordSolve(domain.DifficultyMedium, 8*time.Second)
	st.RecordFailure(domain.DifficultyHard)
	require.NoError(t, src.SetStats(ctx, st))
	gs := domain.DefaultSettings()
	gs.Theme = "midnight"
	require.NoError(t, src.SetSettings(ctx, gs))

	bundle, err := src.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportVersion, bundle.Version)

	var buf bytes.Buffer
	require.NoError(t, progress.EncodeBundle(&buf, bundle))
	decoded, err := progress.DecodeBundle(&buf)
	require.NoError(t, err)

	dst := testStore(t)
	require.NoError(t, dst.ImportAll(ctx, decoded))

	gotStats, err := dst.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, gotStats)

	gotSettings, err := dst.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, gs, gotSettings)

	for _, p := range bundle.Progress {
		got, err := dst.Progress(ctx, p.PuzzleID)
		require.NoError(t, err)
		require.NotNil(t, got, "progress %s", p.PuzzleID)
		assert.Equal(t, p.Solved, got.Solved)
		assert.Equal(t, p.Attempts, got.Attempts)
	}
}

func TestDecodeBundle_MissingField(t *testing.T) {
	for _, field := range []string{"progress", "stats", "settings"} {
		t.Run(field, func(t *testing.T) {
			doc := map[string]string{
				"progress": `"progress": []`,
				"stats":    `"stats": {}`,
				"settings": `"settings": {}`,
			}
			delete(doc, field)
			var parts []string
			for _, v := range doc {
				parts = append(parts, v)
			}
			body := `{"version": "1.0", ` + strings.Join(parts, ", ") + `}`

			_, err := progress.DecodeBundle(strings.NewReader(body))
			require.ErrorIs(t, err, domain.ErrMissingField)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestDecodeBundle_Malformed(t *testing.T) {
	_, err := progress.DecodeBundle(strings.NewReader(`{not json`))
	assert.Error(t, err)
}

// ═══════════════════════════════════════════════════════════════════════════
// Daily & Sessions
// ═══════════════════════════════════════════════════════════════════════════

func TestDailyHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDailyRecord(ctx, domain.DailyRecord{Date: "2026-01-01", PuzzleID: "a", Solved: true}))
	require.NoError(t, s.SaveDailyRecord(ctx, domain.DailyRecord{Date: "2026-01-02", PuzzleID: "b"}))

	r, err := s.DailyRecord(ctx, "2026-01-01")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Solved)

	used, err := s.UsedDailyPuzzles(ctx, "2026-01-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, used)
}

func TestBestSessionScore(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	best, err := s.BestSessionScore(ctx, domain.ModeRush)
	require.NoError(t, err)
	assert.Zero(t, best)

	now := time.Now()
	require.NoError(t, s.SaveSession(ctx, domain.SessionSummary{ID: "x", Mode: domain.ModeRush, StartedAt: now, EndedAt: now, Score: 31}))
	require.NoError(t, s.RecordScore(ctx, domain.ScoreEntry{ID: "e1", SessionID: "x", Mode: domain.ModeRush, PuzzleID: "p", Points: 9}))

	best, err = s.BestSessionScore(ctx, domain.ModeRush)
	require.NoError(t, err)
	assert.Equal(t, 31, best)
}

func TestStore_ClosedDatabaseReturnsErrors(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	s := progress.NewStore(db)
	require.NoError(t, db.Close())

	ctx := context.Background()
	_, err = s.Profile(ctx)
	assert.Error(t, err)
	assert.Error(t, s.SaveProgress(ctx, domain.PuzzleProgress{PuzzleID: "p"}))
	_, err = s.Stats(ctx)
	assert.Error(t, err)
}
