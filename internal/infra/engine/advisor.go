package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/infra/metrics"
)

// Advisor bounds every analysis call with a timeout and turns failures into
// "no analysis". Engine absence is expected and never surfaces as an error.
type Advisor struct {
	engine  domain.AnalysisEngine
	depth   int
	timeout time.Duration
	log     *zap.Logger
}

// NewAdvisor wraps e. A nil e behaves like Unavailable.
func NewAdvisor(e domain.AnalysisEngine, depth int, timeout time.Duration, log *zap.Logger) *Advisor {
	if e == nil {
		e = Unavailable{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Advisor{engine: e, depth: depth, timeout: timeout, log: log}
}

// Analyze returns the engine verdict on fen, or nil.
func (a *Advisor) Analyze(ctx context.Context, fen string) *domain.Analysis {
	if a == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// Leave the engine room to answer "stop" before the deadline.
	budget := a.timeout * 3 / 4

	start := time.Now()
	res, err := a.engine.Analyze(ctx, fen, a.depth, budget)
	metrics.AnalysisLatency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.AnalysisRequests.WithLabelValues("ok").Inc()
		return res
	case errors.Is(err, domain.ErrEngineUnavailable):
		metrics.AnalysisRequests.WithLabelValues("unavailable").Inc()
	case errors.Is(err, context.DeadlineExceeded):
		metrics.AnalysisRequests.WithLabelValues("timeout").Inc()
		a.log.Warn("analysis timed out", zap.Duration("timeout", a.timeout), zap.String("fen", fen))
	default:
		metrics.AnalysisRequests.WithLabelValues("error").Inc()
		a.log.Warn("analysis failed", zap.Error(err), zap.String("fen", fen))
	}
	return nil
}

// Engine exposes the wrapped engine for lifecycle management.
func (a *Advisor) Engine() domain.AnalysisEngine { return a.engine }
