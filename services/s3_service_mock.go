package services

import (
	"context"
	"fmt"
	"sync"
)

// MockObjectStorage keeps objects in memory for tests
type MockObjectStorage struct {
	objects map[string][]byte
	mu      sync.RWMutex

	// FailPut makes every upload fail when set
	FailPut error
}

// NewMockObjectStorage creates an empty in-memory store
func NewMockObjectStorage() *MockObjectStorage {
	return &MockObjectStorage{objects: make(map[string][]byte)}
}

// PutObject stores a copy of content under key
func (m *MockObjectStorage) PutObject(_ context.Context, key string, content []byte, _ string) error {
	if m.FailPut != nil {
		return m.FailPut
	}

	m.mu.Lock()
	m.objects[key] = append([]byte(nil), content...)
	m.mu.Unlock()
	return nil
}

// PresignGet returns a fake URL for stored keys
func (m *MockObjectStorage) PresignGet(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("object not found in mock storage: %s", key)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// DeleteObject drops the key
func (m *MockObjectStorage) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Exists checks if a key is stored
func (m *MockObjectStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[key]
	return exists
}

// Keys returns every stored key
func (m *MockObjectStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}
