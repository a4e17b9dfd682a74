package services

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReaperInterval is the cadence of the background session sweep.
const DefaultReaperInterval = 60 * time.Second

// SessionReaper purges stale sessions on a fixed cadence, independent of
// request flow. A failed sweep is logged and corrected on the next tick;
// Validate's own time check keeps lagging sweeps from ever treating a stale
// session as valid.
type SessionReaper struct {
	sessions SessionStore
	clock    Clock
	interval time.Duration
	lifetime time.Duration
}

func NewSessionReaper(sessions SessionStore, clock Clock, interval, lifetime time.Duration) *SessionReaper {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionReaper{
		sessions: sessions,
		clock:    clock,
		interval: interval,
		lifetime: lifetime,
	}
}

// Run sweeps until ctx is cancelled. It always returns nil so a graceful
// shutdown is not reported as a failure.
func (r *SessionReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Session reaper started",
		"interval", r.interval, "lifetime", r.lifetime)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Session reaper stopped", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			n, err := r.SweepOnce(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "Purged stale sessions", "count", n)
			}
		}
	}
}

// SweepOnce deletes every session older than the lifetime and reports how
// many were removed. Exposed so tests run a single deterministic sweep.
func (r *SessionReaper) SweepOnce(ctx context.Context) (int64, error) {
	return r.sessions.DeleteSessionsBefore(ctx, r.clock().Add(-r.lifetime))
}
