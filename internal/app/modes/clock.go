package modes

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay on their own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ─── Countdown ──────────────────────────────────────────────────────────────

// Countdown is a pausable timer value. Elapsed time is always measured from
// a reference start; resuming moves the reference forward instead of adding
// up the pieces between pauses.
type Countdown struct {
	mu     sync.Mutex
	clock  Clock
	limit  time.Duration
	start  time.Time
	paused bool
	frozen time.Duration // remaining time captured by Pause
}

// NewCountdown starts a countdown of limit.
func NewCountdown(clock Clock, limit time.Duration) *Countdown {
	return &Countdown{clock: clock, limit: limit, start: clock.Now()}
}

// Limit is the full duration of the countdown.
func (c *Countdown) Limit() time.Duration { return c.limit }

// Elapsed is now minus the reference start, capped at the limit.
func (c *Countdown) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit - c.remainingLocked()
}

// Remaining is the time left, never negative.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// Expired reports whether no time is left.
func (c *Countdown) Expired() bool { return c.Remaining() == 0 }

// Paused reports whether the countdown is stopped.
func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Pause captures the remaining time. Pausing twice is a no-op.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.frozen = c.remainingLocked()
	c.paused = true
}

// Resume sets a new reference start so that the captured remaining time is
// what is left.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.start = c.clock.Now().Add(-(c.limit - c.frozen))
	c.paused = false
}

func (c *Countdown) remainingLocked() time.Duration {
	if c.paused {
		return c.frozen
	}
	r := c.limit - c.clock.Now().Sub(c.start)
	if r < 0 {
		return 0
	}
	if r > c.limit {
		return c.limit
	}
	return r
}

// ─── Stopwatch ──────────────────────────────────────────────────────────────

// Stopwatch measures time spent on one attempt. Paused time is not counted.
type Stopwatch struct {
	mu     sync.Mutex
	clock  Clock
	start  time.Time
	paused bool
	frozen time.Duration // elapsed time captured by Pause
}

// NewStopwatch starts a stopwatch at the clock's current time.
func NewStopwatch(clock Clock) *Stopwatch {
	return &Stopwatch{clock: clock, start: clock.Now()}
}

// Elapsed is the running time so far, never negative.
func (w *Stopwatch) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.elapsedLocked()
}

// Pause freezes the elapsed time. Pausing twice is a no-op.
func (w *Stopwatch) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paused {
		return
	}
	w.frozen = w.elapsedLocked()
	w.paused = true
}

// Resume moves the reference start so the frozen time is what has elapsed.
func (w *Stopwatch) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.paused {
		return
	}
	w.start = w.clock.Now().Add(-w.frozen)
	w.paused = false
}

func (w *Stopwatch) elapsedLocked() time.Duration {
	if w.paused {
		return w.frozen
	}
	if d := w.clock.Now().Sub(w.start); d > 0 {
		return d
	}
	return 0
}
