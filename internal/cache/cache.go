// Package cache holds short-lived computed views such as revenue series
// and dashboard summaries.
package cache

import (
	"log/slog"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Clear drops every entry. Writers call it after a mutation.
	Clear()
	Size() int
}

// Cleaner is implemented by caches that expire entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries from registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				slog.Debug("Expired cache entries removed", "component", "cache", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine. It must follow StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
