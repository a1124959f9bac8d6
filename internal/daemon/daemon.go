package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/api"
	"github.com/knightly-chess/knightly/internal/app/engagement"
	"github.com/knightly-chess/knightly/internal/app/modes"
	"github.com/knightly-chess/knightly/internal/app/progress"
	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/health"
	"github.com/knightly-chess/knightly/internal/infra/catalog"
	"github.com/knightly-chess/knightly/internal/infra/chessrules"
	"github.com/knightly-chess/knightly/internal/infra/engine"
	"github.com/knightly-chess/knightly/internal/infra/sqlite"
)

// engineStartTimeout bounds the UCI handshake at startup.
const engineStartTimeout = 5 * time.Second

// reapInterval is how often idle HTTP sessions are looked at.
const reapInterval = time.Minute

// Daemon is the core Knightly runtime. It wires together all services.
type Daemon struct {
	Config       Config
	Log          *zap.Logger
	DB           *sqlite.DB
	Store        *progress.Store
	Engine       domain.AnalysisEngine
	Advisor      *engine.Advisor
	Streaks      *engagement.StreakService
	Achievements *engagement.AchievementService
	Health       *health.Checker
	Sessions     *api.Hub
	Server       *api.Server

	deps      modes.Deps
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New loads the config and creates a Daemon.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, log)
}

// OpenStore opens the database under the configured directory and makes
// sure the puzzle catalog is present. The seed file, if any, is upserted on
// every start.
func OpenStore(ctx context.Context, cfg Config, log *zap.Logger) (*sqlite.DB, *progress.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir := cfg.Store.Dir
	if dir == "" {
		dir = knightlyHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	n, err := catalog.Seed(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("seed catalog: %w", err)
	}
	if n > 0 {
		log.Info("puzzle catalog seeded", zap.Int("puzzles", n))
	}
	if cfg.Store.SeedFile != "" {
		ps, err := catalog.LoadFile(cfg.Store.SeedFile)
		if err == nil {
			err = db.UpsertPuzzles(ctx, ps)
		}
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("seed file %s: %w", cfg.Store.SeedFile, err)
		}
		log.Info("seed file loaded", zap.String("path", cfg.Store.SeedFile), zap.Int("puzzles", len(ps)))
	}
	return db, progress.NewStore(db), nil
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, log *zap.Logger) (*Daemon, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = knightlyHome()
	}
	ctx := context.Background()

	db, store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		Config:       cfg,
		Log:          log,
		DB:           db,
		Store:        store,
		Streaks:      engagement.NewStreakService(store, log.Named("engagement")),
		Achievements: engagement.NewAchievementService(store),
	}

	// ─── Analysis engine ───────────────────────────────────────────────
	d.Engine = d.openEngine(ctx)
	d.Advisor = engine.NewAdvisor(d.Engine, cfg.Engine.Depth,
		parseDuration(cfg.Engine.Timeout, 3*time.Second), log.Named("engine"))

	// ─── Health ────────────────────────────────────────────────────────
	d.Health = health.NewChecker(db, cfg.Store.Dir, log.Named("health"), health.Check{
		Name:     "engine",
		Optional: true,
		CheckFn: func(context.Context) error {
			if _, ok := d.Engine.(engine.Unavailable); ok {
				return domain.ErrEngineUnavailable
			}
			return nil
		},
	})

	// ─── Sessions ──────────────────────────────────────────────────────
	d.deps = modes.Deps{
		Puzzles: db,
		Store:   store,
		Rules:   chessrules.New(),
		Advisor: d.Advisor,
		Streaks: d.Streaks,
		Log:     log.Named("modes"),
		Config:  cfg.Modes.Timings(),
	}
	d.Sessions = api.NewHub(func(mode domain.Mode, opts ...modes.Option) (modes.Controller, error) {
		return d.NewSession(mode, opts...)
	}, parseDuration(cfg.API.SessionTTL, api.DefaultSessionTTL), log.Named("hub"))

	// ─── HTTP API ──────────────────────────────────────────────────────
	d.Server = api.NewServer(api.Services{
		Store:        store,
		Puzzles:      db,
		Achievements: d.Achievements,
		Health:       d.Health,
		Sessions:     d.Sessions,
		Log:          log.Named("api"),
	})
	d.Server.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}

	return d, nil
}

// openEngine starts the configured engine with the strength from the game
// settings. Any failure degrades to Unavailable.
func (d *Daemon) openEngine(ctx context.Context) domain.AnalysisEngine {
	if !d.Config.Engine.Enabled {
		return engine.Unavailable{}
	}
	strength := domain.DefaultSettings().EngineStrength
	if gs, err := d.Store.Settings(ctx); err == nil {
		strength = gs.EngineStrength
	}

	e := engine.Open(d.Config.Store.Dir, d.Config.Engine.Path, strength, d.Log.Named("engine"))
	if _, ok := e.(engine.Unavailable); ok {
		return e
	}
	ictx, cancel := context.WithTimeout(ctx, engineStartTimeout)
	defer cancel()
	if err := e.Initialize(ictx); err != nil {
		d.Log.Warn("analysis engine failed to start", zap.Error(err))
		_ = e.Shutdown()
		return engine.Unavailable{}
	}
	return e
}

// NewSession creates a play session sharing the daemon's services.
func (d *Daemon) NewSession(mode domain.Mode, opts ...modes.Option) (*modes.Session, error) {
	return modes.New(mode, d.deps, opts...)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)
	go d.Sessions.RunReaper(ctx, reapInterval)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		signal.Stop(sigCh)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		d.Close()
	}()

	fmt.Printf("Knightly serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-done
		return err
	}
	<-done
	return nil
}

// Close exits every live session and releases the engine and database.
// It is safe to call more than once.
func (d *Daemon) Close() {
	d.closeOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		ctx := context.Background()
		if d.Sessions != nil {
			d.Sessions.CloseAll(ctx)
		}
		if d.Engine != nil {
			if err := d.Engine.Shutdown(); err != nil {
				d.Log.Warn("engine shutdown", zap.Error(err))
			}
		}
		if d.DB != nil {
			_ = d.DB.Close()
		}
	})
}
