// Package metrics provides Prometheus metrics for Knightly.
// Counters and gauges for puzzle outcomes, rating, sessions, storage
// failures, engine analysis and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "knightly"

// ─── Puzzles ────────────────────────────────────────────────────────────────

// PuzzlesAttempted counts finished attempts by mode and difficulty.
var PuzzlesAttempted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "puzzles_attempted_total",
	Help:      "Total finished puzzle attempts.",
}, []string{"mode", "difficulty"})

// PuzzlesSolved counts solved attempts by mode and difficulty.
var PuzzlesSolved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "puzzles_solved_total",
	Help:      "Total solved puzzles.",
}, []string{"mode", "difficulty"})

// WrongMoves counts legal moves that did not match the solution.
var WrongMoves = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "wrong_moves_total",
	Help:      "Total legal moves rejected as wrong.",
}, []string{"mode"})

// SolveDuration tracks the time to solve a puzzle.
var SolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: Namespace,
	Name:      "solve_duration_seconds",
	Help:      "Time taken to solve a puzzle.",
	Buckets:   []float64{2, 5, 10, 20, 30, 60, 120, 300},
}, []string{"mode"})

// ─── Player ─────────────────────────────────────────────────────────────────

// PlayerElo is the current player rating.
var PlayerElo = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: Namespace,
	Name:      "player_elo",
	Help:      "Current player ELO rating.",
})

// ActiveSessions tracks open mode sessions.
var ActiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: Namespace,
	Name:      "sessions_active",
	Help:      "Number of open play sessions.",
}, []string{"mode"})

// ─── Storage ────────────────────────────────────────────────────────────────

// StoreErrors counts persistence failures that gameplay continued past.
var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "store_errors_total",
	Help:      "Total persistence failures by operation.",
}, []string{"op"})

// ─── Engine ─────────────────────────────────────────────────────────────────

// AnalysisRequests counts engine analysis calls by result
// (ok, timeout, unavailable, error).
var AnalysisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "analysis_requests_total",
	Help:      "Total engine analysis requests by result.",
}, []string{"result"})

// AnalysisLatency tracks engine analysis duration.
var AnalysisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: Namespace,
	Name:      "analysis_latency_seconds",
	Help:      "Engine analysis duration in seconds.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: Namespace,
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
