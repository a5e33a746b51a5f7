package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. It does not survive
// restarts and is meant for tests and the local chat command.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		now:      time.Now,
	}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, userID string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

// Create stores a fresh session, replacing any existing one.
func (m *MemoryStore) Create(_ context.Context, userID string) (*Session, error) {
	s := New(userID, m.now())
	data, err := encode(s)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[userID] = data
	m.mu.Unlock()
	return s, nil
}

// Update overwrites an existing session. A missing session is left missing.
func (m *MemoryStore) Update(_ context.Context, userID string, s *Session) error {
	s.UpdatedAt = m.now()
	data, err := encode(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[userID]; !ok {
		return nil
	}
	m.sessions[userID] = data
	return nil
}

// Delete removes the session if present.
func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

func encode(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &s, nil
}
