package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/knightly-chess/knightly/internal/domain"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// fakeUCI is a scripted UCI engine on the far side of two pipes.
type fakeUCI struct {
	mu       sync.Mutex
	received []string
	hangGo   int // number of "go" commands to leave unanswered until "stop"
}

func (f *fakeUCI) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func (f *fakeUCI) run(cmds io.Reader, out io.WriteCloser) {
	defer out.Close()
	sc := bufio.NewScanner(cmds)
	for sc.Scan() {
		cmd := sc.Text()
		f.mu.Lock()
		f.received = append(f.received, cmd)
		hang := strings.HasPrefix(cmd, "go") && f.hangGo > 0
		if hang {
			f.hangGo--
		}
		f.mu.Unlock()

		switch {
		case cmd == "uci":
			fmt.Fprintln(out, "id name FakeFish")
			fmt.Fprintln(out, "uciok")
		case cmd == "isready":
			fmt.Fprintln(out, "readyok")
		case strings.HasPrefix(cmd, "go"):
			if hang {
				continue
			}
			fmt.Fprintln(out, "info depth 1 seldepth 1 score cp 12 nodes 20 pv d2d4")
			fmt.Fprintln(out, "info depth 8 score cp 35 nodes 9000 pv e2e4 e7e5 g1f3")
			fmt.Fprintln(out, "info string NNUE enabled")
			fmt.Fprintln(out, "bestmove e2e4 ponder e7e5")
		case cmd == "stop":
			fmt.Fprintln(out, "bestmove d2d4")
		case cmd == "quit":
			return
		}
	}
}

func newFakeEngine(t *testing.T, f *fakeUCI, strength int) *UCIEngine {
	t.Helper()
	cmdR, cmdW := io.Pipe()
	outR, outW := io.Pipe()
	go f.run(cmdR, outW)
	e := newPiped(outR, cmdW, strength)
	t.Cleanup(func() { e.Shutdown() })
	return e
}

// ─── UCI Engine ─────────────────────────────────────────────────────────────

func TestUCI_HandshakeSetsSkillLevel(t *testing.T) {
	f := &fakeUCI{}
	e := newFakeEngine(t, f, 7)

	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	cmds := f.commands()
	want := []string{"uci", "setoption name Skill Level value 7", "isready"}
	if len(cmds) < len(want) {
		t.Fatalf("commands = %v", cmds)
	}
	for i, c := range want {
		if cmds[i] != c {
			t.Errorf("command[%d] = %q, want %q", i, cmds[i], c)
		}
	}
}

func TestUCI_Analyze(t *testing.T) {
	f := &fakeUCI{}
	e := newFakeEngine(t, f, 0)
	ctx := context.Background()
	if err := e.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	res, err := e.Analyze(ctx, startFEN, 8, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if res.BestMove != "e2e4" {
		t.Errorf("best move = %q, want e2e4", res.BestMove)
	}
	if res.Depth != 8 || res.ScoreCP == nil || *res.ScoreCP != 35 {
		t.Errorf("analysis = %+v", res)
	}
	if len(res.Principal) != 3 {
		t.Errorf("pv = %v", res.Principal)
	}

	cmds := f.commands()
	var sawPosition, sawGo bool
	for _, c := range cmds {
		sawPosition = sawPosition || c == "position fen "+startFEN
		sawGo = sawGo || c == "go depth 8 movetime 500"
	}
	if !sawPosition || !sawGo {
		t.Errorf("commands = %v", cmds)
	}
}

func TestUCI_AnalyzeBeforeInitialize(t *testing.T) {
	e := NewUCI("/nonexistent/stockfish", 10, nil)
	_, err := e.Analyze(context.Background(), startFEN, 5, time.Second)
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Errorf("error = %v, want ErrEngineUnavailable", err)
	}
}

func TestUCI_CancelledSearchIsDrained(t *testing.T) {
	f := &fakeUCI{hangGo: 1}
	e := newFakeEngine(t, f, 0)
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := e.Analyze(ctx, startFEN, 20, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}

	// The stale "bestmove d2d4" must not leak into the next result.
	res, err := e.Analyze(context.Background(), startFEN, 8, 0)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if res.BestMove != "e2e4" {
		t.Errorf("best move = %q, want e2e4", res.BestMove)
	}
}

func TestUCI_StartMissingBinary(t *testing.T) {
	e := NewUCI("/nonexistent/stockfish", 10, nil)
	if err := e.Initialize(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
}

func TestParseInfo_Mate(t *testing.T) {
	var res domain.Analysis
	parseInfo("info depth 12 score mate 2 pv d2d8 c8d8 d1d8", &res)
	if res.MateIn == nil || *res.MateIn != 2 || res.ScoreCP != nil {
		t.Errorf("analysis = %+v", res)
	}
	parseInfo("info currmove e2e4 currmovenumber 1", &res)
	if res.Depth != 12 {
		t.Errorf("info without score changed depth to %d", res.Depth)
	}
}

// ─── Advisor ────────────────────────────────────────────────────────────────

type stubEngine struct {
	delay time.Duration
	err   error
}

func (s stubEngine) Initialize(context.Context) error { return nil }
func (s stubEngine) Shutdown() error                  { return nil }
func (s stubEngine) Analyze(ctx context.Context, fen string, depth int, budget time.Duration) (*domain.Analysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	select {
	case <-time.After(s.delay):
		return &domain.Analysis{BestMove: "e2e4", Depth: depth}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestAdvisor_ReturnsAnalysis(t *testing.T) {
	a := NewAdvisor(stubEngine{}, 10, time.Second, nil)
	res := a.Analyze(context.Background(), startFEN)
	if res == nil || res.BestMove != "e2e4" || res.Depth != 10 {
		t.Errorf("analysis = %+v", res)
	}
}

func TestAdvisor_DegradesOnTimeout(t *testing.T) {
	a := NewAdvisor(stubEngine{delay: time.Second}, 10, 30*time.Millisecond, nil)
	start := time.Now()
	if res := a.Analyze(context.Background(), startFEN); res != nil {
		t.Errorf("expected nil analysis, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("advisor blocked for %v", elapsed)
	}
}

func TestAdvisor_DegradesWhenUnavailable(t *testing.T) {
	a := NewAdvisor(nil, 10, time.Second, nil)
	if res := a.Analyze(context.Background(), startFEN); res != nil {
		t.Errorf("expected nil analysis, got %+v", res)
	}

	var nilAdvisor *Advisor
	if res := nilAdvisor.Analyze(context.Background(), startFEN); res != nil {
		t.Error("nil advisor should return nil")
	}
}

func TestOpen_MissingBinaryIsUnavailable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	e := Open(t.TempDir(), "", 10, nil)
	if _, ok := e.(Unavailable); !ok {
		t.Errorf("Open() = %T, want Unavailable", e)
	}
}
