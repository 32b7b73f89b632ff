// Package cache holds the time-based caches used by the dashboard: a single
// stamped value for the fetched dataset and a keyed LRU for rendered views.
package cache

import (
	"log/slog"
	"time"
)

// Stamped is a value together with the time it was produced.
// The zero value holds nothing and is always stale.
type Stamped[T any] struct {
	LastFetch time.Time
	Value     T
	set       bool
}

// Store records v as fetched at t.
func (s *Stamped[T]) Store(v T, t time.Time) {
	s.Value = v
	s.LastFetch = t
	s.set = true
}

// Has reports whether a value was ever stored.
func (s *Stamped[T]) Has() bool { return s.set }

// IsStale reports whether the value must be refreshed at now. A value is
// fresh for ttl after LastFetch, so a value fetched exactly ttl ago is stale.
func (s *Stamped[T]) IsStale(now time.Time, ttl time.Duration) bool {
	if !s.set {
		return true
	}
	return now.Sub(s.LastFetch) >= ttl
}

// Age returns how long ago the value was stored.
func (s *Stamped[T]) Age(now time.Time) time.Duration {
	if !s.set {
		return 0
	}
	return now.Sub(s.LastFetch)
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup over registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				slog.Debug("Cache cleanup completed", "component", "cache", "entries_removed", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it to exit.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	close(m.stopCleanup)
	<-m.cleanupDone
	m.started = false
}
