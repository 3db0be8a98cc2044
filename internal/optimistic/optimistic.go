// ABOUTME: Snapshot, apply, remote call, rollback-on-failure helper for optimistic state changes
// ABOUTME: Shared by every place that shows a change before the backend or disk confirms it

package optimistic

import (
	"context"
	"errors"
)

// ErrIncompleteOp is returned when an Op is missing Get, Set or Remote.
var ErrIncompleteOp = errors.New("optimistic op requires Get, Set and Remote")

// Op describes a single optimistic change of a value of type T.
type Op[T any] struct {
	// Get returns the current value; it is captured as the rollback snapshot.
	Get func() T
	// Set replaces the current value.
	Set func(T)
	// Tentative is applied before Remote runs.
	Tentative T
	// Remote performs the authoritative call. A non-nil result replaces the
	// tentative value; nil keeps it.
	Remote func(ctx context.Context) (*T, error)
}

// Apply snapshots the current value, applies op.Tentative, then runs
// op.Remote. On failure the snapshot is restored and the remote error is
// returned unchanged.
func Apply[T any](ctx context.Context, op Op[T]) error {
	if op.Get == nil || op.Set == nil || op.Remote == nil {
		return ErrIncompleteOp
	}

	snapshot := op.Get()
	op.Set(op.Tentative)

	authoritative, err := op.Remote(ctx)
	if err != nil {
		op.Set(snapshot)
		return err
	}
	if authoritative != nil {
		op.Set(*authoritative)
	}
	return nil
}
