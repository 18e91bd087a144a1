package kms

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with a mutex-guarded map. It is explicitly
// single-instance: keys are lost on restart and not shared across
// processes. Multi-instance deployments use RedisStore instead.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Put stores a new entry, sweeping expired entries first. Reports false
// when the id is taken.
func (m *MemoryStore) Put(ctx context.Context, id string, e Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(time.Now())

	if _, exists := m.entries[id]; exists {
		return false, nil
	}

	keyCopy := make([]byte, len(e.Key))
	copy(keyCopy, e.Key)
	e.Key = keyCopy
	m.entries[id] = e
	return true, nil
}

// Get returns the entry for id if present.
func (m *MemoryStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	return e, ok, nil
}

// Delete removes an entry.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	return nil
}

// Current returns the live entry with the earliest expiry, evicting
// expired entries as it scans.
func (m *MemoryStore) Current(ctx context.Context, now time.Time) (string, Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		bestID string
		best   Entry
		found  bool
	)
	for id, e := range m.entries {
		if !e.ExpiresAt.After(now) {
			delete(m.entries, id)
			continue
		}
		if !found || e.ExpiresAt.Before(best.ExpiresAt) {
			bestID, best, found = id, e, true
		}
	}
	return bestID, best, found, nil
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	for id, e := range m.entries {
		if !e.ExpiresAt.After(now) {
			delete(m.entries, id)
		}
	}
}
