// Package ratelimit implements fixed-window request budgets for external
// collaborators. When a budget is exhausted the caller is expected to skip
// the work for the rest of the window, not fail the run.
package ratelimit

import (
	"sync"
	"time"
)

// Window is the reset period of a limiter.
type Window string

const (
	Hourly Window = "hourly"
	Daily  Window = "daily"
)

// Limiter counts requests inside a fixed window that resets when the
// wall-clock window rolls over.
type Limiter struct {
	mu      sync.Mutex
	window  Window
	limit   int
	count   int
	started time.Time
	now     func() time.Time
}

// New creates a limiter with the given per-window budget. A limit of zero or
// less means unlimited.
func New(window Window, limit int) *Limiter {
	l := &Limiter{window: window, limit: limit, now: time.Now}
	l.started = l.windowStart(l.now())
	return l
}

func (l *Limiter) windowStart(t time.Time) time.Time {
	if l.window == Daily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	return t.Truncate(time.Hour)
}

func (l *Limiter) rollover() {
	start := l.windowStart(l.now())
	if start.After(l.started) {
		l.started = start
		l.count = 0
	}
}

// Allow consumes one request from the window budget. It returns false when
// the budget is exhausted.
func (l *Limiter) Allow() bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	if l.count >= l.limit {
		return false
	}
	l.count++
	return true
}

// Remaining reports how many requests are left in the current window.
func (l *Limiter) Remaining() int {
	if l.limit <= 0 {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	return l.limit - l.count
}
