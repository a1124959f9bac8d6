package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knightly-chess/knightly/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "state.db")); os.IsNotExist(err) {
		t.Error("state.db should exist")
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

// ─── Puzzles ────────────────────────────────────────────────────────────────

func samplePuzzles() []domain.Puzzle {
	return []domain.Puzzle{
		{ID: "p1", StartFEN: "fen1", Solution: []string{"e4", "e5"}, Difficulty: domain.DifficultySimple},
		{ID: "p2", StartFEN: "fen2", Solution: []string{"Qd8+", "Rxd8", "Rxd8#"}, Difficulty: domain.DifficultyMedium,
			Rating: intPtr(1050), MainTactic: "back rank", LearningThemes: []string{"mate", "backRank"}, Hint: "Look at the eighth rank"},
		{ID: "p3", StartFEN: "fen3", Solution: []string{"Nf7#"}, Difficulty: domain.DifficultyHard},
	}
}

func TestUpsertPuzzles_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertPuzzles(ctx, samplePuzzles()); err != nil {
		t.Fatalf("UpsertPuzzles() error: %v", err)
	}

	got, err := db.GetPuzzle(ctx, "p2")
	if err != nil {
		t.Fatalf("GetPuzzle() error: %v", err)
	}
	if got.Rating == nil || *got.Rating != 1050 {
		t.Errorf("rating = %v, want 1050", got.Rating)
	}
	if len(got.Solution) != 3 || got.Solution[2] != "Rxd8#" {
		t.Errorf("solution = %v", got.Solution)
	}
	if len(got.LearningThemes) != 2 || got.Hint != "Look at the eighth rank" {
		t.Errorf("metadata = %+v", got)
	}

	n, err := db.CountPuzzles(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountPuzzles() = %d, %v; want 3", n, err)
	}
}

func TestGetPuzzle_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetPuzzle(context.Background(), "missing")
	if !errors.Is(err, domain.ErrPuzzleNotFound) {
		t.Errorf("error = %v, want ErrPuzzleNotFound", err)
	}
}

func TestListPuzzles_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.UpsertPuzzles(ctx, samplePuzzles()); err != nil {
		t.Fatalf("UpsertPuzzles() error: %v", err)
	}

	tests := []struct {
		name   string
		filter domain.PuzzleFilter
		want   []string
	}{
		{"all", domain.PuzzleFilter{}, []string{"p1", "p2", "p3"}},
		{"difficulty", domain.PuzzleFilter{Difficulty: domain.DifficultyMedium}, []string{"p2"}},
		{"validated", domain.PuzzleFilter{ValidatedOnly: true}, []string{"p1", "p2"}},
		{"rating range", domain.PuzzleFilter{MinRating: 1000, MaxRating: 1100}, []string{"p2"}},
		{"exclude", domain.PuzzleFilter{ExcludeIDs: []string{"p1", "p3"}}, []string{"p2"}},
		{"limit", domain.PuzzleFilter{Limit: 1}, []string{"p1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListPuzzles(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListPuzzles() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d puzzles, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.ID != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, p.ID, tt.want[i])
				}
			}
		})
	}
}

// ─── Progress ───────────────────────────────────────────────────────────────

func TestUpsertProgress_KeepsMinimumBestTime(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	writes := []domain.PuzzleProgress{
		{PuzzleID: "p1", Solved: true, Attempts: 1, BestTimeMs: int64Ptr(9000), LastAttempt: &now},
		{PuzzleID: "p1", Solved: true, Attempts: 2, BestTimeMs: int64Ptr(12000), LastAttempt: &now},
		{PuzzleID: "p1", Solved: false, Attempts: 3, LastAttempt: &now},
	}
	for _, w := range writes {
		if err := db.UpsertProgress(ctx, w); err != nil {
			t.Fatalf("UpsertProgress() error: %v", err)
		}
	}

	got, err := db.GetProgress(ctx, "p1")
	if err != nil || got == nil {
		t.Fatalf("GetProgress() = %v, %v", got, err)
	}
	if got.BestTimeMs == nil || *got.BestTimeMs != 9000 {
		t.Errorf("best time = %v, want 9000", got.BestTimeMs)
	}
	if !got.Solved {
		t.Error("solved flag should be sticky")
	}
	if got.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", got.Attempts)
	}
	if got.LastAttempt == nil || got.LastAttempt.UnixMilli() != now.UnixMilli() {
		t.Errorf("last attempt = %v", got.LastAttempt)
	}
}

func TestGetProgress_Missing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.GetProgress(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("GetProgress() = %v, %v; want nil, nil", got, err)
	}
}

func TestSolvedPuzzleIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_ = db.UpsertProgress(ctx, domain.PuzzleProgress{PuzzleID: "a", Solved: true, Attempts: 1})
	_ = db.UpsertProgress(ctx, domain.PuzzleProgress{PuzzleID: "b", Attempts: 1})

	ids, err := db.SolvedPuzzleIDs(ctx)
	if err != nil {
		t.Fatalf("SolvedPuzzleIDs() error: %v", err)
	}
	if !ids["a"] || ids["b"] {
		t.Errorf("ids = %v", ids)
	}
}

// ─── Documents ──────────────────────────────────────────────────────────────

func TestDocuments_PutGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var s domain.GameSettings
	ok, err := db.GetDocument(ctx, DocSettings, &s)
	if err != nil || ok {
		t.Fatalf("GetDocument() on empty db = %v, %v", ok, err)
	}

	want := domain.DefaultSettings()
	want.EngineStrength = 17
	if err := db.PutDocument(ctx, DocSettings, want); err != nil {
		t.Fatalf("PutDocument() error: %v", err)
	}
	ok, err = db.GetDocument(ctx, DocSettings, &s)
	if err != nil || !ok {
		t.Fatalf("GetDocument() = %v, %v", ok, err)
	}
	if s != want {
		t.Errorf("settings = %+v, want %+v", s, want)
	}
}

func TestResetTrainingData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_ = db.UpsertProgress(ctx, domain.PuzzleProgress{PuzzleID: "p1", Solved: true, Attempts: 1})
	_ = db.PutDocument(ctx, DocProfile, domain.UserProfile{Elo: 777})
	_, _ = db.AwardBadge(ctx, "streak-10", time.Now())
	_ = db.UpsertDailyRecord(ctx, domain.DailyRecord{Date: "2026-03-01", PuzzleID: "p1", Solved: true})

	if err := db.ResetTrainingData(ctx, map[string]any{DocStats: domain.NewUserStats()}); err != nil {
		t.Fatalf("ResetTrainingData() error: %v", err)
	}

	all, _ := db.ListProgress(ctx)
	if len(all) != 0 {
		t.Errorf("progress not cleared: %v", all)
	}
	var p domain.UserProfile
	if ok, _ := db.GetDocument(ctx, DocProfile, &p); !ok || p.Elo != 777 {
		t.Errorf("profile should survive reset, got %+v", p)
	}
	badges, _ := db.ListBadges(ctx)
	if len(badges) != 1 {
		t.Errorf("badges should survive reset, got %v", badges)
	}
	if r, _ := db.GetDailyRecord(ctx, "2026-03-01"); r != nil {
		t.Errorf("daily history not cleared: %+v", r)
	}
}

// ─── Badges ─────────────────────────────────────────────────────────────────

func TestAwardBadge_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.AwardBadge(ctx, "streak-10", time.Now())
	if err != nil || !first {
		t.Fatalf("first AwardBadge() = %v, %v", first, err)
	}
	second, err := db.AwardBadge(ctx, "streak-10", time.Now())
	if err != nil || second {
		t.Fatalf("second AwardBadge() = %v, %v; want false", second, err)
	}
	badges, _ := db.ListBadges(ctx)
	if len(badges) != 1 {
		t.Errorf("expected 1 badge, got %d", len(badges))
	}
}

// ─── Daily History ──────────────────────────────────────────────────────────

func TestDailyRecord_SolvedIsSticky(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_ = db.UpsertDailyRecord(ctx, domain.DailyRecord{Date: "2026-03-01", PuzzleID: "p1", Solved: true, Score: 8, CompletedAt: &now})
	_ = db.UpsertDailyRecord(ctx, domain.DailyRecord{Date: "2026-03-01", PuzzleID: "p1"})

	r, err := db.GetDailyRecord(ctx, "2026-03-01")
	if err != nil || r == nil {
		t.Fatalf("GetDailyRecord() = %v, %v", r, err)
	}
	if !r.Solved || r.Score != 8 || r.CompletedAt == nil {
		t.Errorf("record = %+v", r)
	}

	missing, err := db.GetDailyRecord(ctx, "2026-03-02")
	if err != nil || missing != nil {
		t.Errorf("missing day = %v, %v", missing, err)
	}
}

func TestUsedDailyPuzzles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_ = db.UpsertDailyRecord(ctx, domain.DailyRecord{Date: "2026-03-01", PuzzleID: "p1"})
	_ = db.UpsertDailyRecord(ctx, domain.DailyRecord{Date: "2026-03-02", PuzzleID: "p2"})

	used, err := db.UsedDailyPuzzles(ctx, "2026-03-02")
	if err != nil {
		t.Fatalf("UsedDailyPuzzles() error: %v", err)
	}
	if len(used) != 1 || used[0] != "p1" {
		t.Errorf("used = %v, want [p1]", used)
	}
}

// ─── Scores & Sessions ──────────────────────────────────────────────────────

func TestScoresAndSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i, pts := range []int{8, 10} {
		e := domain.ScoreEntry{
			ID: string(rune('a' + i)), SessionID: "s1", Mode: domain.ModeRush,
			PuzzleID: "p1", Points: pts, RecordedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := db.InsertScore(ctx, e); err != nil {
			t.Fatalf("InsertScore() error: %v", err)
		}
	}
	scores, err := db.ListScores(ctx, "s1")
	if err != nil || len(scores) != 2 || scores[1].Points != 10 {
		t.Fatalf("ListScores() = %v, %v", scores, err)
	}

	if best, _ := db.BestSession(ctx, domain.ModeRush); best != nil {
		t.Fatalf("expected no best session yet, got %+v", best)
	}
	_ = db.InsertSession(ctx, domain.SessionSummary{ID: "s1", Mode: domain.ModeRush, StartedAt: now, EndedAt: now, Score: 18})
	_ = db.InsertSession(ctx, domain.SessionSummary{ID: "s2", Mode: domain.ModeRush, StartedAt: now, EndedAt: now, Score: 42})
	_ = db.InsertSession(ctx, domain.SessionSummary{ID: "s3", Mode: domain.ModeBlitz, StartedAt: now, EndedAt: now, Score: 99})

	best, err := db.BestSession(ctx, domain.ModeRush)
	if err != nil || best == nil {
		t.Fatalf("BestSession() = %v, %v", best, err)
	}
	if best.ID != "s2" || best.Score != 42 {
		t.Errorf("best = %+v, want s2/42", best)
	}
}
