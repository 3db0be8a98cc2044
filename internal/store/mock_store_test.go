// ABOUTME: Tests for the in-memory MockStore
// ABOUTME: Ensures the mock behaves like SQLiteStore and honours injected errors

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both implementations must satisfy StateStore.
var (
	_ StateStore = (*SQLiteStore)(nil)
	_ StateStore = (*MockStore)(nil)
)

func TestMockStore_RoundTrip(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	_, err := m.GetState(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.SetState(ctx, "k", "v"))
	got, err := m.GetState(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, m.SetState(ctx, "k", "w"))
	got, err = m.GetState(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "w", got)
}

func TestMockStore_InjectedErrors(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	boom := errors.New("disk full")

	m.SetErr = boom
	assert.ErrorIs(t, m.SetState(ctx, "k", "v"), boom)

	m.SetErr = nil
	require.NoError(t, m.SetState(ctx, "k", "v"))

	m.GetErr = boom
	_, err := m.GetState(ctx, "k")
	assert.ErrorIs(t, err, boom)
}
