package signal

import (
	"sync"
	"time"

	"github.com/hireloop/sigproxy/internal/domain"
)

// offerLimiter bounds how often one session may trigger the upstream
// handshake. Sliding window over recent attempts, per session id.
type offerLimiter struct {
	mu       sync.Mutex
	history  map[domain.SessionID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func newOfferLimiter(limit int, interval time.Duration) *offerLimiter {
	if limit <= 0 {
		limit = 5
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &offerLimiter{
		history:  make(map[domain.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *offerLimiter) Allow(sid domain.SessionID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[sid] = fresh
	return true
}

// Forget drops the history for a closed session.
func (rl *offerLimiter) Forget(sid domain.SessionID) {
	rl.mu.Lock()
	delete(rl.history, sid)
	rl.mu.Unlock()
}
