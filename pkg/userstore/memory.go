package userstore

import (
	"context"
	"sync"

	"github.com/dmitrymomot/cookieauth/pkg/randid"
	"github.com/dmitrymomot/cookieauth/pkg/sessionauth"
)

type memUser struct {
	displayName string
	primary     string
	backup      string
}

// Memory is an in-process sessionauth.Store for tests and
// single-instance deployments. Users are keyed by their session id
// bytes; every method is one critical section.
type Memory struct {
	mu    sync.Mutex
	users map[string]*memUser
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]*memUser)}
}

var _ sessionauth.Store = (*Memory)(nil)

func (m *Memory) FindByEmail(_ context.Context, email string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, u := range m.users {
		if u.primary == email || (u.backup != "" && u.backup == email) {
			return []byte(key), true, nil
		}
	}
	return nil, false, nil
}

func (m *Memory) CreateUser(_ context.Context, email string, sessionID []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[string(sessionID)]; exists {
		return false, nil
	}
	m.users[string(sessionID)] = &memUser{primary: email}
	return true, nil
}

func (m *Memory) Exists(_ context.Context, sessionID []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[string(sessionID)]
	return ok, nil
}

func (m *Memory) UpdateDisplayName(_ context.Context, sessionID []byte, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[string(sessionID)]
	if !ok {
		return 0, nil
	}
	u.displayName = name
	return 1, nil
}

func (m *Memory) UpdateEmail(_ context.Context, sessionID []byte, email string, backup bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[string(sessionID)]
	if !ok {
		return 0, nil
	}
	// Replacing an absent primary address is a no-op; a backup address
	// may be added where none existed.
	if !backup && u.primary == "" {
		return 0, nil
	}
	old := u.primary
	if backup {
		old = u.backup
	}
	if email != old && m.emailTaken(email) {
		return 0, nil
	}
	if backup {
		u.backup = email
	} else {
		u.primary = email
	}
	return 1, nil
}

func (m *Memory) RotateSessionID(_ context.Context, oldID, newID []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[string(oldID)]
	if !ok {
		return 0, nil
	}
	if _, taken := m.users[string(newID)]; taken {
		return 0, nil
	}
	delete(m.users, string(oldID))
	m.users[string(newID)] = u
	return 1, nil
}

func (m *Memory) Invalidate(ctx context.Context, sessionID []byte) (int64, error) {
	newID, err := randid.New(sessionauth.IDSize)
	if err != nil {
		return 0, err
	}
	return m.RotateSessionID(ctx, sessionID, newID)
}

func (m *Memory) DeleteAccount(_ context.Context, sessionID []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[string(sessionID)]; !ok {
		return 0, nil
	}
	delete(m.users, string(sessionID))
	return 1, nil
}

func (m *Memory) SwapEmails(_ context.Context, sessionID []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[string(sessionID)]
	if !ok {
		return 0, nil
	}
	u.primary, u.backup = u.backup, u.primary
	return 1, nil
}

func (m *Memory) DeleteBackupEmail(_ context.Context, sessionID []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[string(sessionID)]
	if !ok || u.backup == "" {
		return 0, nil
	}
	u.backup = ""
	return 1, nil
}

func (m *Memory) IsEmailTaken(_ context.Context, sessionID []byte, email string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, owned := m.users[string(sessionID)]
	return m.emailTaken(email), owned, nil
}

// emailTaken requires m.mu to be held.
func (m *Memory) emailTaken(email string) bool {
	for _, u := range m.users {
		if u.primary == email || (u.backup != "" && u.backup == email) {
			return true
		}
	}
	return false
}
