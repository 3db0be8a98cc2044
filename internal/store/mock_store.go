// ABOUTME: Mock StateStore implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject write failures

package store

import (
	"context"
	"sync"
)

// MockStore is an in-memory StateStore implementation for testing.
type MockStore struct {
	mu    sync.RWMutex
	state map[string]string

	// SetErr, when non-nil, is returned by SetState without writing.
	SetErr error
	// GetErr, when non-nil, is returned by GetState.
	GetErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		state: make(map[string]string),
	}
}

// GetState returns the value stored under key.
func (m *MockStore) GetState(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.state[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// SetState stores value under key.
func (m *MockStore) SetState(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetErr != nil {
		return m.SetErr
	}
	m.state[key] = value
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
