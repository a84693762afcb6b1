package session

import (
	"context"
	"sync"
)

// Keys under which the session is persisted.
const (
	KeyToken  = "token"
	KeyUserID = "user_id"
	KeyRole   = "role"
)

var sessionKeys = []string{KeyToken, KeyUserID, KeyRole}

// PersistentStore is a string key-value store that survives process restarts.
// Get reports ok=false for a missing key; a missing key is not an error.
type PersistentStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// RecordStore is implemented by stores that can write or remove several keys as one
// atomic operation. The cache prefers it so a crash never leaves half a session behind.
type RecordStore interface {
	PersistentStore
	SetAll(ctx context.Context, values map[string]string) error
	RemoveAll(ctx context.Context, keys ...string) error
}

// MemoryStore is a PersistentStore kept in process memory. It stands in for durable
// storage in tests and when persistence is disabled.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) SetAll(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryStore) RemoveAll(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

var _ RecordStore = (*MemoryStore)(nil)
