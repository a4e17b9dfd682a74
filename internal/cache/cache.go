package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cleaner is any cache that can purge its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs a single sweep loop over every registered cache so each cache
// does not need its own goroutine.
type Manager struct {
	mu     sync.Mutex
	caches []Cleaner

	stop chan struct{}
	done chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep set. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup begins the periodic sweep in the background.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.run(interval)
}

func (m *Manager) run(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if purged := m.sweep(); purged > 0 {
				slog.Debug("Purged expired cache entries", "count", purged)
			}
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) sweep() int {
	m.mu.Lock()
	caches := make([]Cleaner, len(m.caches))
	copy(caches, m.caches)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the sweep loop and waits for it to exit.
func (m *Manager) Stop() {
	close(m.stop)
	<-m.done
}
