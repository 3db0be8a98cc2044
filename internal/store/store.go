// ABOUTME: Store interface and errors for client-local console state
// ABOUTME: Defines the key-value StateStore that backs read markers and other device-local data

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrEmptyKey is returned when a state key is empty
var ErrEmptyKey = errors.New("state key required")

// StateStore persists opaque string values under string keys. Values are
// never interpreted by the store; callers own their encoding.
type StateStore interface {
	// GetState returns the value for key, or ErrNotFound.
	GetState(ctx context.Context, key string) (string, error)
	// SetState writes value under key, replacing any previous value.
	SetState(ctx context.Context, key, value string) error

	// Close releases any resources held by the store
	Close() error
}
