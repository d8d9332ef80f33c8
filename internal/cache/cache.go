package cache

import (
	"sync"
	"time"

	"arb-ranker/internal/ranking"
)

// Slot is a single-entry TTL cache for ranking results. The payload is
// replaced as a whole value on every refresh; there is no per-field
// mutation and no partial invalidation. Concurrent misses may each
// recompute and store; the last writer wins, which is safe because the
// pipeline is idempotent over the same upstream snapshots.
type Slot struct {
	mu        sync.Mutex
	ttl       time.Duration
	expiresAt time.Time
	payload   *ranking.Result

	now func() time.Time // overridable in tests
}

// New constructs an empty cache slot with the given TTL.
func New(ttl time.Duration) *Slot {
	return &Slot{ttl: ttl, now: time.Now}
}

// Fresh returns the payload while the TTL window is open.
func (s *Slot) Fresh() (*ranking.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payload == nil || !s.expiresAt.After(s.now()) {
		return nil, false
	}
	return s.payload, true
}

// Stale returns the last stored payload even past expiry. Used to serve
// best-effort data when every upstream exchange fails.
func (s *Slot) Stale() (*ranking.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payload == nil {
		return nil, false
	}
	return s.payload, true
}

// Put swaps in a freshly computed payload and restarts the TTL window.
func (s *Slot) Put(payload *ranking.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = payload
	s.expiresAt = s.now().Add(s.ttl)
}
