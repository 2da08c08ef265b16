package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/sigproxy/internal/core"
)

// Reaper sweeps the store on a fixed interval and evicts sessions that
// have been idle past the threshold. This bounds memory even when a client
// vanishes without a close frame (network drop, laptop lid).
type Reaper struct {
	Store     *Store
	Interval  time.Duration
	IdleAfter time.Duration

	// Now is overridable so tests can fast-forward instead of sleeping
	// through a real idle window.
	Now func() time.Time
}

func NewReaper(store *Store, interval, idleAfter time.Duration) *Reaper {
	return &Reaper{
		Store:     store,
		Interval:  interval,
		IdleAfter: idleAfter,
		Now:       time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping every Interval.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.reaper").Dur("interval", r.Interval).Dur("idle_after", r.IdleAfter).Msg("reaper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reaper").Msg("reaper stopped")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep force-closes every idle session and reports how many were evicted.
func (r *Reaper) Sweep() int {
	now := r.Now()
	evicted := 0
	for _, ref := range r.Store.Snapshot() {
		idle := now.Sub(ref.Session.LastActivity())
		if idle < r.IdleAfter {
			continue
		}
		log.Info().Str("module", "app.reaper").Str("sid", string(ref.ID)).Dur("idle", idle).Msg("evicting idle session")
		if ref.Conn != nil {
			// Best effort; the peer is most likely already gone.
			_ = ref.Conn.TrySend(expiredFrame())
			ref.Conn.Close()
		}
		r.Store.Remove(ref.ID)
		evicted++
	}
	return evicted
}

func expiredFrame() core.Frame {
	b, _ := json.Marshal(map[string]string{
		"type":    "error",
		"message": "session expired due to inactivity",
	})
	return b
}
