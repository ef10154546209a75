package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, maxPerMinute int, clock *time.Time) *RateLimiter {
	t.Helper()
	rl := New(Config{
		Group:                "test",
		MaxRequestsPerMinute: maxPerMinute,
		Now:                  func() time.Time { return *clock },
	})
	t.Cleanup(rl.Stop)
	return rl
}

func TestAllowExhaustsBudget(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, 15, &clock)

	for i := 0; i < 15; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("client-a") {
		t.Fatal("request over budget should be rejected")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, 15, &clock)

	for i := 0; i < 15; i++ {
		rl.Allow("client-a")
	}
	if rl.Allow("client-a") {
		t.Fatal("budget should be exhausted")
	}

	// 15/min refills one token every 4 seconds.
	clock = clock.Add(4 * time.Second)
	if !rl.Allow("client-a") {
		t.Fatal("one token should have refilled")
	}
	if rl.Allow("client-a") {
		t.Fatal("only one token should have refilled")
	}

	clock = clock.Add(time.Minute)
	for i := 0; i < 15; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("request %d after full refill should be allowed", i+1)
		}
	}
}

func TestAllowIsolatesClients(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, 2, &clock)

	rl.Allow("client-a")
	rl.Allow("client-a")
	if rl.Allow("client-a") {
		t.Fatal("client-a should be exhausted")
	}

	if !rl.Allow("client-b") {
		t.Fatal("client-b has its own budget")
	}
}

func TestAllowCapsRefillAtMax(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, 3, &clock)

	rl.Allow("client-a")

	// A long idle period must not bank more than the bucket size.
	clock = clock.Add(time.Hour)
	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("request %d should be allowed after idle", i+1)
		}
	}
	if rl.Allow("client-a") {
		t.Fatal("refill must not exceed the bucket size")
	}
}

func TestStopEndsCleanupGoroutine(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, 5, &clock)

	rl.Stop()

	select {
	case <-rl.done:
	default:
		t.Fatal("Stop should signal the cleanup goroutine to exit")
	}

	// A second Stop must not panic on the closed channel.
	rl.Stop()
}
