package replayid

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with a mutex-guarded map from id to expiry.
// Single-instance only; ids are lost on restart. Every method is one
// critical section, so id issuance and storage never interleave with a
// concurrent consume.
type MemoryStore struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

// NewMemoryStore creates an empty in-memory replay-id store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]time.Time)}
}

// Put stores id with its expiry, sweeping expired ids first.
func (m *MemoryStore) Put(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(time.Now())

	if _, exists := m.ids[id]; exists {
		return false, nil
	}
	m.ids[id] = expiresAt
	return true, nil
}

// Get returns the expiry recorded for id.
func (m *MemoryStore) Get(ctx context.Context, id string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt, ok := m.ids[id]
	return expiresAt, ok, nil
}

// CompareAndDelete removes id only when its recorded expiry matches
// exactly. A mismatching entry that has meanwhile expired is evicted, but
// the call still fails: the presenter held a stale cookie.
func (m *MemoryStore) CompareAndDelete(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.ids[id]
	if !ok {
		return false, nil
	}
	if !stored.Equal(expiresAt) {
		if !stored.After(time.Now()) {
			delete(m.ids, id)
		}
		return false, nil
	}
	delete(m.ids, id)
	return true, nil
}

// Delete removes id unconditionally.
func (m *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.ids[id]
	delete(m.ids, id)
	return ok, nil
}

// Replace atomically consumes oldID and stores newID under the same
// expiry. Fails without side effects when oldID's recorded expiry does not
// match or newID is already taken.
func (m *MemoryStore) Replace(ctx context.Context, oldID string, expiresAt time.Time, newID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Sweep first: an expired-but-unswept oldID must present as stale,
	// not rotate into an already-dead newID.
	m.sweepLocked(time.Now())

	stored, ok := m.ids[oldID]
	if !ok || !stored.Equal(expiresAt) {
		return false, nil
	}
	if _, taken := m.ids[newID]; taken {
		return false, nil
	}

	delete(m.ids, oldID)
	m.ids[newID] = expiresAt
	return true, nil
}

// UpdateExpiry moves id's expiry forward after verifying the previous one.
func (m *MemoryStore) UpdateExpiry(ctx context.Context, id string, oldExpiresAt, newExpiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.ids[id]
	if !ok || !stored.Equal(oldExpiresAt) {
		return false, nil
	}
	m.ids[id] = newExpiresAt
	return true, nil
}

// Len reports the number of tracked ids.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.ids)
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	for id, expiresAt := range m.ids {
		if !expiresAt.After(now) {
			delete(m.ids, id)
		}
	}
}
