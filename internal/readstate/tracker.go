// ABOUTME: Device-local read markers recording the last message an operator has seen per conversation
// ABOUTME: Stored as one JSON object in the client state store; unreadable data reads as empty

package readstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/petshop-support/internal/store"
)

// StateKey is the client state key holding the JSON-encoded marker map.
const StateKey = "chat_read_markers"

// ErrEmptyConversation is returned by Set when no conversation id is given.
var ErrEmptyConversation = errors.New("conversation id required")

// Markers maps conversation id to the id of the last message seen.
type Markers map[string]string

// Clone returns an independent copy of m.
func (m Markers) Clone() Markers {
	out := make(Markers, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Tracker reads and writes read markers. Writes are read-merge-write and
// serialized by the tracker's mutex.
type Tracker struct {
	mu     sync.Mutex
	state  store.StateStore
	logger *slog.Logger
}

// NewTracker creates a tracker backed by state. Pass nil logger for default.
func NewTracker(state store.StateStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		state:  state,
		logger: logger.With("component", "readstate"),
	}
}

// Get returns the persisted markers. It never fails: a missing entry, a
// storage error or malformed JSON all yield an empty map.
func (t *Tracker) Get(ctx context.Context) Markers {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

// Set records messageID as the last seen message of conversationID,
// overwriting any previous marker regardless of message order.
func (t *Tracker) Set(ctx context.Context, conversationID, messageID string) error {
	if conversationID == "" {
		return ErrEmptyConversation
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	markers := t.load(ctx)
	markers[conversationID] = messageID

	data, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("encoding read markers: %w", err)
	}
	if err := t.state.SetState(ctx, StateKey, string(data)); err != nil {
		return fmt.Errorf("saving read markers: %w", err)
	}

	t.logger.Debug("read marker set",
		"conversation_id", conversationID,
		"message_id", messageID)
	return nil
}

// load must be called with mu held.
func (t *Tracker) load(ctx context.Context) Markers {
	raw, err := t.state.GetState(ctx, StateKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			t.logger.Warn("reading read markers failed", "error", err)
		}
		return Markers{}
	}

	var markers Markers
	if err := json.Unmarshal([]byte(raw), &markers); err != nil {
		t.logger.Warn("discarding malformed read markers", "error", err)
		return Markers{}
	}
	if markers == nil {
		return Markers{}
	}
	return markers
}
