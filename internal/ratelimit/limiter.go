// Package ratelimit implements a process-local fixed-window admission
// controller. It gates inbound ingestion/matching triggers and outbound calls
// to the AI scorer, with independent keys and limits for each.
package ratelimit

import (
	"math/rand"
	"sync"
	"time"
)

// Windows are fixed-size and reset wholesale once the window elapses. This
// trades fairness at window boundaries for O(1) memory per key.
type entry struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

// Decision is the outcome of a Check call.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// Limiter is safe for concurrent use. Expired entries are reclaimed by an
// opportunistic probabilistic sweep instead of a background timer.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	// sweepChance is the 1-in-N probability of sweeping on a Check call.
	sweepChance int
	now         func() time.Time
	rnd         func(n int) int
}

func New() *Limiter {
	return &Limiter{
		entries:     make(map[string]*entry),
		sweepChance: 50,
		now:         time.Now,
		rnd:         rand.Intn,
	}
}

// Check records one request against the key and reports whether it is within
// the limit for the window.
func (l *Limiter) Check(key string, limit int, window time.Duration) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rnd(l.sweepChance) == 0 {
		l.sweepLocked(now)
	}

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= e.window {
		e = &entry{windowStart: now, window: window}
		l.entries[key] = e
	}

	resetTime := e.windowStart.Add(e.window)

	if e.count >= limit {
		return Decision{Allowed: false, Remaining: 0, ResetTime: resetTime}
	}

	e.count++
	return Decision{
		Allowed:   true,
		Remaining: limit - e.count,
		ResetTime: resetTime,
	}
}

// Len returns the number of tracked keys, expired entries included.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, e := range l.entries {
		if now.Sub(e.windowStart) >= e.window {
			delete(l.entries, key)
		}
	}
}
