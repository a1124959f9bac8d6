package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/domain"
)

// Unavailable is the engine used when no binary is installed or analysis is
// disabled. Every analysis reports ErrEngineUnavailable.
type Unavailable struct{}

var _ domain.AnalysisEngine = Unavailable{}

func (Unavailable) Initialize(context.Context) error { return nil }

func (Unavailable) Analyze(context.Context, string, int, time.Duration) (*domain.Analysis, error) {
	return nil, domain.ErrEngineUnavailable
}

func (Unavailable) Shutdown() error { return nil }

// Open returns a UCI engine for path, discovering one under home when path
// is empty. A missing binary yields Unavailable.
func Open(home, path string, strength int, log *zap.Logger) domain.AnalysisEngine {
	if log == nil {
		log = zap.NewNop()
	}
	if path == "" {
		found, err := FindStockfish(home)
		if err != nil {
			log.Warn("analysis engine not found, hints fall back to the solution", zap.Error(err))
			return Unavailable{}
		}
		path = found
	}
	return NewUCI(path, strength, log)
}
