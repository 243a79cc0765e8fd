package ratelimit

import (
	"sync"
	"time"

	"github.com/sievework/prospector/core"
)

// Limiter is a fixed-window rate limiter keyed by (provider|domain) strings.
// Each key gets an independent window; counters reset when the window
// elapses. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	clock   core.Clock
	windows map[string]*window
}

type window struct {
	start    time.Time
	duration time.Duration
	maxCalls int
	calls    int
}

// NewLimiter creates a Limiter on the given clock. A nil clock uses the
// system clock.
func NewLimiter(clock core.Clock) *Limiter {
	if clock == nil {
		clock = core.SystemClock()
	}
	return &Limiter{
		clock:   clock,
		windows: make(map[string]*window),
	}
}

// CanProceed reports whether a call under key is allowed right now, and
// counts it when allowed. Beyond maxCalls within windowDuration it returns
// false until the window elapses.
func (l *Limiter) CanProceed(key string, maxCalls int, windowDuration time.Duration) bool {
	if maxCalls <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= w.duration || w.maxCalls != maxCalls || w.duration != windowDuration {
		w = &window{start: now, duration: windowDuration, maxCalls: maxCalls}
		l.windows[key] = w
	}

	if w.calls >= w.maxCalls {
		return false
	}
	w.calls++
	return true
}

// WaitTime returns how long a caller must wait before a call under key can
// proceed. Zero means the key is not currently limited.
func (l *Limiter) WaitTime(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		return 0
	}

	now := l.clock.Now()
	remaining := w.duration - now.Sub(w.start)
	if remaining <= 0 || w.calls < w.maxCalls {
		return 0
	}
	return remaining
}
