package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Save(_ context.Context, userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyUserID] = userID
	m.values[KeyEmail] = email
	return nil
}

func (m *MemoryStore) Read(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Session{
		UserID: m.values[KeyUserID],
		Email:  m.values[KeyEmail],
		ChatID: m.values[KeyChatID],
	}, nil
}

func (m *MemoryStore) RecordChatID(_ context.Context, chatID string) error {
	if chatID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyChatID] = chatID
	return nil
}

func (m *MemoryStore) ForgetChatID(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, KeyChatID)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, KeyUserID)
	delete(m.values, KeyEmail)
	delete(m.values, KeyChatID)
	return nil
}
