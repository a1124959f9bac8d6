// Package health runs periodic checks over the store and data directory
// with simple auto-recovery. Optional checks are reported but never make
// the trainer unhealthy.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/infra/catalog"
	"github.com/knightly-chess/knightly/internal/infra/metrics"
	"github.com/knightly-chess/knightly/internal/infra/sqlite"
)

// DefaultInterval is how often Run repeats the checks.
const DefaultInterval = 60 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	Optional  bool
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Optional  bool      `json:"optional,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      *zap.Logger
}

// NewChecker creates a checker with the store, data directory and puzzle
// catalog checks, plus any extra ones.
func NewChecker(db *sqlite.DB, dataDir string, log *zap.Logger, extra ...Check) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	checks := []Check{
		{
			Name:    "sqlite",
			CheckFn: db.PingContext,
		},
		{
			Name: "data_dir",
			CheckFn: func(ctx context.Context) error {
				return checkWritable(dataDir)
			},
			RecoverFn: func(ctx context.Context) error {
				return os.MkdirAll(dataDir, 0o755)
			},
		},
		{
			Name: "puzzles",
			CheckFn: func(ctx context.Context) error {
				n, err := db.CountPuzzles(ctx)
				if err != nil {
					return err
				}
				if n == 0 {
					return errors.New("puzzle catalog is empty")
				}
				return nil
			},
			RecoverFn: func(ctx context.Context) error {
				_, err := catalog.Seed(ctx, db)
				return err
			},
		},
	}
	return &Checker{
		interval: DefaultInterval,
		checks:   append(checks, extra...),
		log:      log,
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check now. A failed check with a recovery action is
// recovered and checked again.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{Name: check.Name, Optional: check.Optional, CheckedAt: time.Now()}
		err := check.CheckFn(ctx)
		if err != nil && check.RecoverFn != nil {
			if rerr := check.RecoverFn(ctx); rerr == nil {
				if err = check.CheckFn(ctx); err == nil {
					s.Recovered = true
					metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
					c.log.Info("health check recovered", zap.String("check", check.Name))
				}
			} else {
				err = fmt.Errorf("%w (recovery: %v)", err, rerr)
			}
		}

		s.Healthy = err == nil
		if err != nil {
			s.Error = err.Error()
			if check.Optional {
				c.log.Debug("optional health check failed", zap.String("check", check.Name), zap.Error(err))
			} else {
				c.log.Warn("health check failed", zap.String("check", check.Name), zap.Error(err))
			}
		}
		gauge := 0.0
		if s.Healthy {
			gauge = 1
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(gauge)
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all required checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy && !s.Optional {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(filepath.Clean(name))
}
