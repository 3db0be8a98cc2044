// Package store provides device-local persistence for the support console.
//
// # Overview
//
// The console keeps a small amount of state that never leaves the operator's
// machine, the per-conversation read markers being the main one. The store
// exposes it as opaque string values under string keys:
//
//   - StateStore: GetState, SetState
//
// SQLiteStore implements StateStore with modernc.org/sqlite (no cgo).
// MockStore implements it in memory for tests and can inject failures.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Database file locations:
//
//   - Default: ~/.local/share/petshop/console.db
//   - Testing: :memory: or a t.TempDir() path
//
// # Error Handling
//
//   - ErrNotFound: no value stored under the key
//   - ErrEmptyKey: the key is empty
package store
