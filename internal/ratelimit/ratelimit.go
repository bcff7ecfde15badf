// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ratelimit implements fixed-window request throttling keyed by
// client address. Counters live in process memory; each limiter instance is
// scoped to one server process.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter counts requests per key within a fixed window and denies anything
// above the configured maximum until the window elapses.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count   int
	startAt time.Time
}

// New creates a limiter allowing max requests per period for each key.
func New(max int, period time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		max:     max,
		period:  period,
		now:     time.Now,
	}
}

// Allow increments the counter for key and reports whether the request is
// within quota. A window that has elapsed is reset before counting.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.startAt) >= l.period {
		l.windows[key] = &window{count: 1, startAt: now}
		return true
	}

	w.count++
	return w.count <= l.max
}

// Reset forgets the window for a key, forgiving its earlier attempts. Callers
// use it once a key has proven legitimate, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Prune drops windows that elapsed before the current instant so the map does
// not grow without bound under a churn of client addresses.
func (l *Limiter) Prune() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.startAt) >= l.period {
			delete(l.windows, key)
		}
	}
}

// StartJanitor runs Prune on an interval until the context is cancelled.
func (l *Limiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.period
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Prune()
			}
		}
	}()
}
