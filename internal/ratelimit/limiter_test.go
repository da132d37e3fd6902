package ratelimit

import (
	"testing"
	"time"
)

// newTestLimiter pins the clock and disables the probabilistic sweep so
// assertions stay deterministic.
func newTestLimiter(now *time.Time) *Limiter {
	l := New()
	l.now = func() time.Time { return *now }
	l.rnd = func(int) int { return 1 }
	return l
}

func TestCheckFixedWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(&now)

	expected := []struct {
		allowed   bool
		remaining int
	}{
		{true, 2},
		{true, 1},
		{true, 0},
		{false, 0},
	}

	for i, exp := range expected {
		decision := limiter.Check("scorer", 3, time.Minute)
		if decision.Allowed != exp.allowed {
			t.Fatalf("call %d: expected allowed=%v, got %v", i+1, exp.allowed, decision.Allowed)
		}
		if decision.Remaining != exp.remaining {
			t.Fatalf("call %d: expected remaining=%d, got %d", i+1, exp.remaining, decision.Remaining)
		}
		if !decision.ResetTime.Equal(now.Add(time.Minute)) {
			t.Fatalf("call %d: unexpected reset time %v", i+1, decision.ResetTime)
		}
	}
}

func TestCheckResetsAfterWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(&now)

	for i := 0; i < 4; i++ {
		limiter.Check("scorer", 3, time.Minute)
	}

	now = now.Add(time.Minute)

	decision := limiter.Check("scorer", 3, time.Minute)
	if !decision.Allowed {
		t.Fatalf("expected a fresh window to allow the request")
	}
	if decision.Remaining != 2 {
		t.Fatalf("expected remaining=2 in the fresh window, got %d", decision.Remaining)
	}
	if !decision.ResetTime.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected reset time %v", decision.ResetTime)
	}
}

func TestCheckKeysAreIndependent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(&now)

	limiter.Check("ingest:a", 1, time.Minute)
	if d := limiter.Check("ingest:a", 1, time.Minute); d.Allowed {
		t.Fatalf("expected key a to be exhausted")
	}
	if d := limiter.Check("ingest:b", 1, time.Minute); !d.Allowed {
		t.Fatalf("expected key b to be unaffected")
	}
}

func TestSweepReclaimsExpiredEntries(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(&now)

	limiter.Check("stale", 3, time.Minute)
	limiter.Check("fresh", 3, time.Hour)

	if limiter.Len() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", limiter.Len())
	}

	now = now.Add(2 * time.Minute)

	// Force the sweep on the next check.
	limiter.rnd = func(int) int { return 0 }
	limiter.Check("fresh", 3, time.Hour)

	if limiter.Len() != 1 {
		t.Fatalf("expected the stale key to be swept, got %d tracked keys", limiter.Len())
	}
}
