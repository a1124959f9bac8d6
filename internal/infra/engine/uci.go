// Package engine provides the optional position analysis backend.
// This file drives a UCI engine (Stockfish or compatible) as a subprocess
// over stdin/stdout.
//
//	Initialize → uci / uciok → setoption Skill Level → isready / readyok
//	Analyze    → position fen … → go depth N movetime T → info … → bestmove
//	Shutdown   → quit, then kill if the process lingers
package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/domain"
)

// quitGrace is how long Shutdown waits for the process after "quit".
const quitGrace = 2 * time.Second

// UCIEngine is a domain.AnalysisEngine speaking the UCI protocol.
type UCIEngine struct {
	path     string
	strength int
	log      *zap.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	in      io.WriteCloser
	out     io.Reader
	lines   chan string
	started bool
	pending bool // an abandoned search still owes a bestmove line
}

var _ domain.AnalysisEngine = (*UCIEngine)(nil)

// NewUCI creates an engine that runs the binary at path. The process is not
// started until Initialize.
func NewUCI(path string, strength int, log *zap.Logger) *UCIEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &UCIEngine{path: path, strength: strength, log: log}
}

// newPiped attaches an engine to existing streams instead of a process.
func newPiped(out io.Reader, in io.WriteCloser, strength int) *UCIEngine {
	return &UCIEngine{out: out, in: in, strength: strength, log: zap.NewNop()}
}

// Initialize starts the process and performs the UCI handshake.
func (e *UCIEngine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if e.in == nil {
		if err := e.startProcess(); err != nil {
			return err
		}
	}
	e.lines = make(chan string, 64)
	go readLines(e.out, e.lines)

	if err := e.handshake(ctx); err != nil {
		e.killLocked()
		return fmt.Errorf("uci handshake: %w", err)
	}
	e.started = true
	e.log.Info("analysis engine ready", zap.String("path", e.path), zap.Int("strength", e.strength))
	return nil
}

func (e *UCIEngine) startProcess() error {
	cmd := exec.Command(e.path)
	configureProcess(cmd)
	in, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("engine stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start engine %s: %w", e.path, err)
	}
	e.cmd, e.in, e.out = cmd, in, out
	return nil
}

func (e *UCIEngine) handshake(ctx context.Context) error {
	if err := e.send("uci"); err != nil {
		return err
	}
	if _, err := e.waitFor(ctx, "uciok"); err != nil {
		return err
	}
	if e.strength >= domain.MinEngineStrength && e.strength <= domain.MaxEngineStrength {
		if err := e.send(fmt.Sprintf("setoption name Skill Level value %d", e.strength)); err != nil {
			return err
		}
	}
	return e.sync(ctx)
}

// sync blocks until the engine has processed every command sent so far.
func (e *UCIEngine) sync(ctx context.Context) error {
	if err := e.send("isready"); err != nil {
		return err
	}
	_, err := e.waitFor(ctx, "readyok")
	return err
}

// Analyze searches fen to the given depth, bounded by budget and ctx.
// A cancelled search is stopped and its result discarded.
func (e *UCIEngine) Analyze(ctx context.Context, fen string, depth int, budget time.Duration) (*domain.Analysis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil, domain.ErrEngineUnavailable
	}
	if e.pending {
		if _, err := e.waitFor(ctx, "bestmove"); err != nil {
			return nil, err
		}
		e.pending = false
	}

	if err := e.send("position fen " + fen); err != nil {
		return nil, err
	}
	goCmd := "go"
	if depth > 0 {
		goCmd += " depth " + strconv.Itoa(depth)
	}
	if budget > 0 {
		goCmd += " movetime " + strconv.FormatInt(budget.Milliseconds(), 10)
	}
	if err := e.send(goCmd); err != nil {
		return nil, err
	}

	res := &domain.Analysis{}
	for {
		select {
		case <-ctx.Done():
			_ = e.send("stop")
			e.pending = true
			return nil, ctx.Err()
		case line, ok := <-e.lines:
			if !ok {
				e.started = false
				return nil, fmt.Errorf("engine exited: %w", domain.ErrEngineUnavailable)
			}
			switch {
			case strings.HasPrefix(line, "info "):
				parseInfo(line, res)
			case strings.HasPrefix(line, "bestmove"):
				fields := strings.Fields(line)
				if len(fields) > 1 && fields[1] != "(none)" {
					res.BestMove = fields[1]
				}
				return res, nil
			}
		}
	}
}

// Shutdown asks the engine to quit and reaps the process.
func (e *UCIEngine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.in == nil {
		return nil
	}
	_ = e.send("quit")
	err := e.in.Close()
	e.in = nil
	e.started = false

	if e.cmd != nil {
		done := make(chan error, 1)
		go func() { done <- e.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(quitGrace):
			e.cmd.Process.Kill()
			<-done
		}
		e.cmd = nil
	}
	return err
}

func (e *UCIEngine) killLocked() {
	if e.in != nil {
		e.in.Close()
		e.in = nil
	}
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
		e.cmd.Wait()
		e.cmd = nil
	}
}

func (e *UCIEngine) send(cmd string) error {
	if e.in == nil {
		return domain.ErrEngineUnavailable
	}
	if _, err := io.WriteString(e.in, cmd+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	return nil
}

func (e *UCIEngine) waitFor(ctx context.Context, prefix string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-e.lines:
			if !ok {
				return "", fmt.Errorf("engine exited: %w", domain.ErrEngineUnavailable)
			}
			if strings.HasPrefix(line, prefix) {
				return line, nil
			}
		}
	}
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		out <- strings.TrimSpace(sc.Text())
	}
}

// parseInfo folds one "info" line into res. Lines without a score
// (currmove, nodes, strings) are ignored.
func parseInfo(line string, res *domain.Analysis) {
	f := strings.Fields(line)
	var (
		depth   int
		cp, mt  *int
		pv      []string
		hasInfo bool
	)
	for i := 1; i < len(f); i++ {
		switch f[i] {
		case "depth":
			if i+1 < len(f) {
				depth, _ = strconv.Atoi(f[i+1])
				i++
			}
		case "score":
			if i+2 < len(f) {
				v, err := strconv.Atoi(f[i+2])
				if err == nil {
					switch f[i+1] {
					case "cp":
						cp, hasInfo = &v, true
					case "mate":
						mt, hasInfo = &v, true
					}
				}
				i += 2
			}
		case "pv":
			pv = append([]string(nil), f[i+1:]...)
			i = len(f)
		case "string":
			return
		}
	}
	if !hasInfo {
		return
	}
	res.Depth = depth
	res.ScoreCP, res.MateIn = cp, mt
	if len(pv) > 0 {
		res.Principal = pv
	}
}

// ─── Discovery ──────────────────────────────────────────────────────────────

// FindStockfish searches for a UCI engine binary in home/bin, then PATH.
func FindStockfish(home string) (string, error) {
	exe := "stockfish"
	if runtime.GOOS == "windows" {
		exe = "stockfish.exe"
	}

	binPath := filepath.Join(home, "bin", exe)
	if _, err := os.Stat(binPath); err == nil {
		return binPath, nil
	}
	if path, err := exec.LookPath(exe); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("stockfish not found in %s or PATH: %w",
		filepath.Join(home, "bin"), domain.ErrEngineUnavailable)
}
