// ABOUTME: Conversation List Synchronizer merging fetched and pushed conversations
// ABOUTME: Produces the freshness-ordered visible rows and applies read markers optimistically

package conversation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/2389/petshop-support/internal/chat"
	"github.com/2389/petshop-support/internal/notify"
	"github.com/2389/petshop-support/internal/optimistic"
	"github.com/2389/petshop-support/internal/readstate"
)

// ErrUnknownConversation is returned when selecting an id not in the list.
var ErrUnknownConversation = errors.New("unknown conversation")

// Fetcher lists every support conversation.
type Fetcher interface {
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
}

// MarkerStore persists read markers.
type MarkerStore interface {
	Get(ctx context.Context) readstate.Markers
	Set(ctx context.Context, conversationID, messageID string) error
}

// Row is one visible list entry.
type Row struct {
	Conversation chat.Conversation
	Status       Status
}

// List holds the local conversation collection, newest insert first.
type List struct {
	fetcher  Fetcher
	markers  MarkerStore
	notifier notify.Notifier
	logger   *slog.Logger

	mu         sync.RWMutex
	convs      []chat.Conversation
	marks      readstate.Markers
	operatorID string
}

// New creates an empty list. A nil notifier discards notices.
func New(fetcher Fetcher, markers MarkerStore, notifier notify.Notifier, logger *slog.Logger) *List {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &List{
		fetcher:  fetcher,
		markers:  markers,
		notifier: notifier,
		logger:   logger.With("component", "conversation"),
		marks:    readstate.Markers{},
	}
}

// SetOperator sets the id used to recognise the operator's own messages.
func (l *List) SetOperator(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.operatorID = id
}

// Reset empties the collection and forgets the operator. Persisted read
// markers are untouched; the next Load reads them again.
func (l *List) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.convs = nil
	l.marks = readstate.Markers{}
	l.operatorID = ""
}

// Load replaces the collection with one fetch from the backend and reloads
// the read markers. A failed fetch is reported to the notifier and leaves
// the list empty.
func (l *List) Load(ctx context.Context) error {
	marks := l.markers.Get(ctx)

	convs, err := l.fetcher.ListConversations(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.marks = marks
	if err != nil {
		l.convs = nil
		if ctx.Err() == nil {
			l.logger.Warn("loading conversations failed", "error", err)
			l.notifier.Notify(notify.Error("Could not load conversations", err))
		}
		return fmt.Errorf("loading conversations: %w", err)
	}

	l.convs = make([]chat.Conversation, 0, len(convs))
	seen := make(map[string]int, len(convs))
	for _, c := range convs {
		if c.ID == "" {
			continue
		}
		if i, ok := seen[c.ID]; ok {
			l.convs[i] = chat.Merge(l.convs[i], chat.FullUpdate(c))
			continue
		}
		seen[c.ID] = len(l.convs)
		l.convs = append(l.convs, c)
	}
	l.logger.Debug("conversations loaded", "count", len(l.convs))
	return nil
}

// Apply merges a pushed update. An unknown conversation is inserted at the
// head. Applying the same update twice has the same effect as once. It
// reports whether the conversation was new.
func (l *List) Apply(u chat.Update) bool {
	if u.ID == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.convs {
		if l.convs[i].ID == u.ID {
			l.convs[i] = chat.Merge(l.convs[i], u)
			return false
		}
	}
	l.convs = slices.Insert(l.convs, 0, chat.Merge(chat.Conversation{}, u))
	l.logger.Debug("conversation inserted", "conversation_id", u.ID)
	return true
}

// Visible returns the conversations that have a last message, most recently
// updated first, each with its derived status.
func (l *List) Visible() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows := make([]Row, 0, len(l.convs))
	for _, c := range l.convs {
		if c.LastMessage == nil {
			continue
		}
		rows = append(rows, Row{
			Conversation: c,
			Status:       DeriveStatus(c, l.marks, l.operatorID),
		})
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		return cmp.Compare(b.Conversation.UpdatedAt.UnixNano(), a.Conversation.UpdatedAt.UnixNano())
	})
	return rows
}

// Get returns the conversation with id.
func (l *List) Get(id string) (chat.Conversation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.convs {
		if c.ID == id {
			return c, true
		}
	}
	return chat.Conversation{}, false
}

// Len returns the size of the collection, including hidden conversations.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.convs)
}

// Status returns the derived status of one conversation.
func (l *List) Status(id string) (Status, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.convs {
		if c.ID == id {
			return DeriveStatus(c, l.marks, l.operatorID), true
		}
	}
	return "", false
}

// Markers returns a copy of the in-memory read markers.
func (l *List) Markers() readstate.Markers {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.marks.Clone()
}

// marker is one read marker value, with ok false for "no entry".
type marker struct {
	id string
	ok bool
}

// Select marks the conversation's last message as seen. The in-memory marker
// changes before the write to the read-state store; if the write fails it is
// restored and the operator notified.
func (l *List) Select(ctx context.Context, id string) error {
	c, ok := l.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if c.LastMessage == nil {
		return nil
	}
	msgID := c.LastMessage.ID

	err := optimistic.Apply(ctx, optimistic.Op[marker]{
		Get: func() marker {
			l.mu.RLock()
			defer l.mu.RUnlock()
			v, ok := l.marks[id]
			return marker{id: v, ok: ok}
		},
		Set: func(m marker) {
			l.mu.Lock()
			defer l.mu.Unlock()
			if m.ok {
				l.marks[id] = m.id
			} else {
				delete(l.marks, id)
			}
		},
		Tentative: marker{id: msgID, ok: true},
		Remote: func(ctx context.Context) (*marker, error) {
			return nil, l.markers.Set(ctx, id, msgID)
		},
	})
	if err != nil {
		l.logger.Warn("saving read marker failed", "conversation_id", id, "error", err)
		l.notifier.Notify(notify.Error("Could not save read state", err))
		return fmt.Errorf("selecting conversation: %w", err)
	}
	return nil
}
