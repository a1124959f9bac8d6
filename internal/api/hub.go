package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/app/modes"
	"github.com/knightly-chess/knightly/internal/domain"
)

// DefaultSessionTTL is how long an untouched session survives.
const DefaultSessionTTL = 30 * time.Minute

// Factory creates a controller for a mode.
type Factory func(mode domain.Mode, opts ...modes.Option) (modes.Controller, error)

type hubEntry struct {
	ctrl     modes.Controller
	lastUsed time.Time
}

// Hub keeps the live play sessions of the HTTP layer, keyed by session id.
// Idle sessions are exited and dropped by the reaper.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*hubEntry
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewHub creates a session hub.
func NewHub(factory Factory, ttl time.Duration, log *zap.Logger) *Hub {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[string]*hubEntry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// Create starts a session and registers it.
func (h *Hub) Create(mode domain.Mode, opts ...modes.Option) (modes.Controller, error) {
	ctrl, err := h.factory(mode, opts...)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.sessions[ctrl.ID()] = &hubEntry{ctrl: ctrl, lastUsed: h.now()}
	h.mu.Unlock()
	return ctrl, nil
}

// Get returns a live session and marks it used.
func (h *Hub) Get(id string) (modes.Controller, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastUsed = h.now()
	return e.ctrl, nil
}

// Remove exits and drops a session.
func (h *Hub) Remove(ctx context.Context, id string) (modes.Summary, error) {
	h.mu.Lock()
	e, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return modes.Summary{}, domain.ErrSessionNotFound
	}
	return e.ctrl.Exit(ctx), nil
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Reap exits every session idle for longer than the TTL and returns how
// many were dropped.
func (h *Hub) Reap(ctx context.Context) int {
	cutoff := h.now().Add(-h.ttl)
	var idle []modes.Controller
	h.mu.Lock()
	for id, e := range h.sessions {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.ctrl)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, c := range idle {
		c.Exit(ctx)
		h.log.Info("idle session reaped", zap.String("session", c.ID()), zap.String("mode", string(c.Mode())))
	}
	return len(idle)
}

// RunReaper reaps idle sessions every interval until ctx is cancelled.
// Call in a goroutine.
func (h *Hub) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Reap(ctx)
		}
	}
}

// CloseAll exits every session.
func (h *Hub) CloseAll(ctx context.Context) {
	h.mu.Lock()
	all := h.sessions
	h.sessions = make(map[string]*hubEntry)
	h.mu.Unlock()
	for _, e := range all {
		e.ctrl.Exit(ctx)
	}
}
