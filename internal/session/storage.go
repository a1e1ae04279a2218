package session

import (
	"context"
	"sync"
)

// Keys under which the session is persisted.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
	KeyCurrentUser  = "currentUser"
)

// Storage is a durable string key-value store the session survives in.
type Storage interface {
	// Load returns the value stored under key. ok is false when the key
	// does not exist.
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	// Save writes every entry in one operation.
	Save(ctx context.Context, entries map[string]string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// MemoryStorage keeps values in process memory. It is what tests and
// one-shot invocations use.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Load implements Storage.
func (m *MemoryStorage) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.values[k] = v
	}
	return nil
}

// Delete implements Storage.
func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
