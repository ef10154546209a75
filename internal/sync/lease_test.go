package sync

import (
	"testing"
	"time"
)

func TestLeaseMutualExclusion(t *testing.T) {
	l := NewLease(30 * time.Minute)

	token, ok := l.Acquire()
	if !ok {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := l.Acquire(); ok {
		t.Fatal("second acquire should fail while lease is held")
	}

	l.Release(token)

	if _, ok := l.Acquire(); !ok {
		t.Fatal("acquire after release should succeed")
	}
}

func TestLeaseExpiry(t *testing.T) {
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	l := NewLease(30 * time.Minute)
	l.now = func() time.Time { return current }

	if _, ok := l.Acquire(); !ok {
		t.Fatal("first acquire should succeed")
	}

	current = current.Add(29 * time.Minute)
	if _, ok := l.Acquire(); ok {
		t.Fatal("acquire before expiry should fail")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := l.Acquire(); !ok {
		t.Fatal("acquire after expiry should succeed")
	}
}

func TestLeaseStaleReleaseIgnored(t *testing.T) {
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	l := NewLease(30 * time.Minute)
	l.now = func() time.Time { return current }

	first, ok := l.Acquire()
	if !ok {
		t.Fatal("first acquire should succeed")
	}

	// First run overstays its TTL and a second run takes over at expiry.
	current = current.Add(31 * time.Minute)
	if _, ok := l.Acquire(); !ok {
		t.Fatal("acquire after expiry should succeed")
	}

	// The overstaying run finally finishes. Its release must not free the
	// successor's lease.
	l.Release(first)

	if _, ok := l.Acquire(); ok {
		t.Fatal("acquire should fail while the successor still holds the lease")
	}
}

func TestLeaseHeld(t *testing.T) {
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	l := NewLease(time.Minute)
	l.now = func() time.Time { return current }

	if l.Held() {
		t.Fatal("fresh lease should not be held")
	}

	l.Acquire()
	if !l.Held() {
		t.Fatal("acquired lease should be held")
	}

	current = current.Add(2 * time.Minute)
	if l.Held() {
		t.Fatal("expired lease should not be held")
	}
}
