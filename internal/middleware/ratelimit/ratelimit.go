// Package ratelimit throttles clients with a fixed one-minute window per
// client IP. Credential endpoints get a separate, much smaller budget so a
// password-guessing client exhausts it long before the general one.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

type Config struct {
	PerMinute       int
	StrictPerMinute int
	SweepInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PerMinute:       120,
		StrictPerMinute: 12,
		SweepInterval:   5 * time.Minute,
	}
}

type window struct {
	startedAt time.Time
	count     int
}

// Limiter tracks request counts per client. Strict traffic is counted in its
// own namespace so credential attempts never ride on the general budget.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	perMinute       int
	strictPerMinute int

	stop     chan struct{}
	stopOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultConfig().PerMinute
	}
	if cfg.StrictPerMinute <= 0 {
		cfg.StrictPerMinute = DefaultConfig().StrictPerMinute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}

	l := &Limiter{
		windows:         make(map[string]*window),
		perMinute:       cfg.PerMinute,
		strictPerMinute: cfg.StrictPerMinute,
		stop:            make(chan struct{}),
	}
	go l.sweepLoop(cfg.SweepInterval)
	return l
}

// Allow reports whether one more request from the client fits its budget.
func (l *Limiter) Allow(clientIP string, strict bool) bool {
	key, budget := clientIP, l.perMinute
	if strict {
		key, budget = "strict:"+clientIP, l.strictPerMinute
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.startedAt) >= time.Minute {
		l.windows[key] = &window{startedAt: now, count: 1}
		return true
	}

	w.count++
	return w.count <= budget
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops windows idle long enough that their counts no longer matter.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-2 * time.Minute)
	for key, w := range l.windows {
		if w.startedAt.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

// TrackedClients returns the number of live windows.
func (l *Limiter) TrackedClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware rejects over-budget requests with 429. The strict classifier
// routes a request onto the credential budget; nil means no request is strict.
func (l *Limiter) Middleware(clientIP func(*http.Request) string, strict func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isStrict := strict != nil && strict(r)
			if !l.Allow(clientIP(r), isStrict) {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
