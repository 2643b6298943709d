package conversation

import (
	"context"
	"sync"

	"feedback-bot/internal/domain"
)

// Store keeps one session per user id. Load of an unknown user returns an
// idle session.
type Store interface {
	Load(ctx context.Context, userID int64) (domain.Session, error)
	Save(ctx context.Context, userID int64, s domain.Session) error
	Reset(ctx context.Context, userID int64) error
}

// MemoryStore is a process-local Store. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]domain.Session)}
}

func (m *MemoryStore) Load(_ context.Context, userID int64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return domain.IdleSession(), nil
	}
	return s, nil
}

// Save stores s; an idle session is dropped instead of stored.
func (m *MemoryStore) Save(_ context.Context, userID int64, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Stage == domain.StageIdle {
		delete(m.sessions, userID)
		return nil
	}
	m.sessions[userID] = s
	return nil
}

func (m *MemoryStore) Reset(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Len returns the number of users with an active stage.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
