package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

// NewMemoryStore constructs an in-process store. A non-positive ttl keeps
// sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		if !m.expired(s) {
			return s.Clone(), nil
		}
		delete(m.sessions, id)
	}
	return New(id), nil
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := s.Clone()
	stored.UpdatedAt = m.now().UTC()
	m.sessions[s.ID] = stored
	s.UpdatedAt = stored.UpdatedAt
	m.sweep()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

// sweep drops expired sessions; caller holds mu.
func (m *MemoryStore) sweep() {
	if m.ttl <= 0 {
		return
	}
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
