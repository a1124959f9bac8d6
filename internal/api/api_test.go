package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knightly-chess/knightly/internal/app/engagement"
	"github.com/knightly-chess/knightly/internal/app/modes"
	"github.com/knightly-chess/knightly/internal/app/progress"
	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/health"
	"github.com/knightly-chess/knightly/internal/infra/catalog"
	"github.com/knightly-chess/knightly/internal/infra/chessrules"
	"github.com/knightly-chess/knightly/internal/infra/sqlite"
)

type testEnv struct {
	srv   *httptest.Server
	hub   *Hub
	store *progress.Store
	rules *chessrules.Rules
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	require.NoError(t, err)
	_, err = catalog.Seed(context.Background(), db)
	require.NoError(t, err)

	store := progress.NewStore(db)
	rules := chessrules.New()
	deps := modes.Deps{
		Puzzles:  db,
		Store:    store,
		Rules:    rules,
		Streaks:  engagement.NewStreakService(store, nil),
		RandIntN: func(int) int { return 0 },
	}
	hub := NewHub(func(mode domain.Mode, opts ...modes.Option) (modes.Controller, error) {
		return modes.New(mode, deps, opts...)
	}, 0, nil)

	checker := health.NewChecker(db, dir, nil)
	checker.RunOnce(context.Background())

	s := NewServer(Services{
		Store:        store,
		Puzzles:      db,
		Achievements: engagement.NewAchievementService(store),
		Health:       checker,
		Sessions:     hub,
	})
	s.EnableMetrics()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		hub.CloseAll(context.Background())
		db.Close()
	})
	return &testEnv{srv: ts, hub: hub, store: store, rules: rules}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (e *testEnv) createSession(t *testing.T, mode domain.Mode, diff domain.Difficulty) modes.View {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{Mode: mode, Difficulty: diff})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[modes.View](t, body)
}

// ─── Health / Metrics ───────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.Contains(t, string(body), `"puzzles"`)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "knightly_")
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, http.MethodOptions, "/api/profile", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

// ─── Trainer Routes ─────────────────────────────────────────────────────────

func TestProfile_DefaultsAndPatch(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StartingElo, decode[domain.UserProfile](t, body).Elo)

	resp, body = e.do(t, http.MethodPatch, "/api/profile", `{"hasCompletedTutorial":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.True(t, decode[domain.UserProfile](t, body).HasCompletedTutorial)

	resp, _ = e.do(t, http.MethodPatch, "/api/profile", `{"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettings_Validation(t *testing.T) {
	e := newTestEnv(t)
	gs := domain.DefaultSettings()
	gs.EngineStrength = 50
	resp, body := e.do(t, http.MethodPut, "/api/settings", gs)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "engineStrength")

	gs.EngineStrength = 5
	gs.Theme = "dark"
	resp, _ = e.do(t, http.MethodPut, "/api/settings", gs)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = e.do(t, http.MethodGet, "/api/settings", nil)
	got := decode[domain.GameSettings](t, body)
	assert.Equal(t, 5, got.EngineStrength)
	assert.Equal(t, "dark", got.Theme)
}

func TestPuzzles_HideSolution(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/api/puzzles?difficulty=simple", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "solution")
	list := decode[struct {
		Puzzles []modes.PuzzleView `json:"puzzles"`
	}](t, body)
	assert.Len(t, list.Puzzles, 3)

	resp, _ = e.do(t, http.MethodGet, "/api/puzzles?difficulty=impossible", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/api/puzzles/back-rank", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, decode[modes.PuzzleView](t, body).Moves)

	resp, body = e.do(t, http.MethodGet, "/api/puzzles/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)
}

func TestExportImportClear(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.SaveProgress(ctx, domain.PuzzleProgress{PuzzleID: "back-rank", Solved: true, Attempts: 2}))

	resp, exported := e.do(t, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "knightly-export-")

	resp, _ = e.do(t, http.MethodPost, "/api/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/progress/back-rank", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/api/import", `{"progress":[],"settings":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "stats")

	resp, body = e.do(t, http.MethodPost, "/api/import", string(exported))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"imported":1}`, string(body))

	resp, body = e.do(t, http.MethodGet, "/api/progress/back-rank", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[domain.PuzzleProgress](t, body).Attempts)
}

func TestAchievements(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/api/achievements", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[struct {
		Badges []engagement.BadgeStatus `json:"badges"`
		Next   map[string]any           `json:"next"`
	}](t, body)
	assert.NotEmpty(t, got.Badges)
	assert.NotNil(t, got.Next)
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func TestSession_PracticeSolve(t *testing.T) {
	e := newTestEnv(t)
	v := e.createSession(t, domain.ModePractice, domain.DifficultySimple)
	require.NotNil(t, v.Puzzle)
	p := catalog.Lookup(v.Puzzle.ID)
	require.NotNil(t, p)
	base := "/api/sessions/" + v.SessionID

	resp, body := e.do(t, http.MethodGet, base+"/hint", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[map[string]string](t, body)["hint"])

	fen := v.State.FEN
	var last MoveResponse
	for _, san := range p.Solution {
		m, err := e.rules.ParseMove(fen, san)
		require.NoError(t, err)
		resp, body := e.do(t, http.MethodPost, base+"/moves", m)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		last = decode[MoveResponse](t, body)
		require.True(t, last.Result.Accepted, "%s: %s", san, last.Result.Reason)
		fen = last.Result.FEN
	}
	assert.True(t, last.Result.Solved)
	assert.Equal(t, 1, last.View.Solved)

	resp, body = e.do(t, http.MethodGet, "/api/progress/"+p.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[domain.PuzzleProgress](t, body).Solved)

	resp, body = e.do(t, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := decode[modes.View](t, body)
	assert.NotEqual(t, p.ID, next.Puzzle.ID)

	resp, body = e.do(t, http.MethodPost, base+"/reveal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	revealed := decode[struct {
		Solution []string `json:"solution"`
	}](t, body)
	assert.Equal(t, catalog.Lookup(next.Puzzle.ID).Solution, revealed.Solution)

	resp, body = e.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sum := decode[modes.Summary](t, body)
	assert.Equal(t, 1, sum.Solved)
	assert.Equal(t, 1, sum.Failed)

	resp, _ = e.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, e.hub.Len())
}

func TestSession_Errors(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{Mode: "marathon"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{Mode: domain.ModeBlitz, Difficulty: "easy"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	v := e.createSession(t, domain.ModeBlitz, "")
	base := "/api/sessions/" + v.SessionID
	require.NotNil(t, v.RemainingMs)

	resp, _ = e.do(t, http.MethodPost, base+"/reveal", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, base+"/moves", `{"from":"e2"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, base+"/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[modes.View](t, body).Paused)

	resp, body = e.do(t, http.MethodPost, base+"/moves", domain.Move{From: "e2", To: "e4"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.RejectNotInProgress, decode[MoveResponse](t, body).Result.Reason)

	resp, body = e.do(t, http.MethodPost, base+"/resume", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[modes.View](t, body).Paused)

	resp, body = e.do(t, http.MethodGet, base+"/analysis", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"available":false,"analysis":null}`, string(body))

	e.do(t, http.MethodDelete, base, nil)
	resp, _ = e.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSession_DailyCompletedStillReturnsView(t *testing.T) {
	e := newTestEnv(t)
	v := e.createSession(t, domain.ModeDaily, "")
	require.NotNil(t, v.Daily)
	require.NoError(t, e.store.SaveDailyRecord(context.Background(), domain.DailyRecord{
		Date: v.Daily.Date, PuzzleID: v.Daily.PuzzleID, Solved: true,
	}))

	again := e.createSession(t, domain.ModeDaily, "")
	require.NotNil(t, again.Daily)
	assert.True(t, again.Daily.Solved)

	resp, body := e.do(t, http.MethodPost, "/api/sessions/"+again.SessionID+"/moves", domain.Move{From: "e2", To: "e4"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "already completed")
}

// ─── Hub ────────────────────────────────────────────────────────────────────

type stubController struct {
	modes.Controller
	id     string
	exited int
}

func (c *stubController) ID() string { return c.id }
func (c *stubController) Mode() domain.Mode { return domain.ModePractice }
func (c *stubController) Exit(context.Context) modes.Summary {
	c.exited++
	return modes.Summary{SessionSummary: domain.SessionSummary{ID: c.id}}
}

func TestHub_ReapIdle(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	n := 0
	var made []*stubController
	h := NewHub(func(domain.Mode, ...modes.Option) (modes.Controller, error) {
		n++
		c := &stubController{id: string(rune('a' + n - 1))}
		made = append(made, c)
		return c, nil
	}, time.Minute, nil)
	h.now = func() time.Time { return now }

	_, err := h.Create(domain.ModePractice)
	require.NoError(t, err)
	now = now.Add(50 * time.Second)
	_, err = h.Create(domain.ModePractice)
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, h.Reap(context.Background()))
	assert.Equal(t, 1, made[0].exited)
	assert.Equal(t, 0, made[1].exited)

	_, err = h.Get("a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	now = now.Add(50 * time.Second)
	_, err = h.Get("b") // touch
	require.NoError(t, err)
	assert.Equal(t, 0, h.Reap(context.Background()))

	h.CloseAll(context.Background())
	assert.Equal(t, 1, made[1].exited)
	assert.Equal(t, 0, h.Len())
}
