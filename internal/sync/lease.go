package sync

import (
	"sync"
	"time"
)

// Lease is a single-holder run lock with a TTL, so overlapping manual and
// scheduled triggers cannot race on the same citations. A crashed run frees
// the lease by expiry. Acquire hands out an ownership token; a release with
// a stale token is ignored, so a run that outlives its TTL cannot free the
// lease out from under the successor that took over at expiry.
type Lease struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	holder  uint64
	held    bool
	expires time.Time
}

func NewLease(ttl time.Duration) *Lease {
	return &Lease{
		ttl: ttl,
		now: time.Now,
	}
}

// Acquire takes the lease if it is free or expired and returns the holder's
// token. It returns false while another run holds it.
func (l *Lease) Acquire() (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.held && now.Before(l.expires) {
		return 0, false
	}

	l.holder++
	l.held = true
	l.expires = now.Add(l.ttl)
	return l.holder, true
}

// Release frees the lease if token still identifies the current holder.
func (l *Lease) Release(token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if token != l.holder {
		return
	}
	l.held = false
}

// Held reports whether the lease is currently taken and unexpired.
func (l *Lease) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held && l.now().Before(l.expires)
}
