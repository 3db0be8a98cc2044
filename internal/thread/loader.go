// ABOUTME: Message Thread Loader keeping one conversation's ordered, deduplicated message log
// ABOUTME: Initial load, explicit "load older" pagination, and live receipt all merge by message id

package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/2389/petshop-support/internal/chat"
)

// DefaultPageSize is used when a loader is created with a non-positive size.
const DefaultPageSize = 20

// Loader errors
var (
	ErrClosed            = errors.New("thread loader closed")
	ErrInvalidState      = errors.New("operation not valid in current state")
	ErrNoMoreHistory     = errors.New("no older messages")
	ErrWrongConversation = errors.New("message belongs to another conversation")
	ErrNoConversation    = errors.New("conversation id required")
)

// State is a loader lifecycle state.
type State int

const (
	Idle State = iota
	Loading
	Ready
	LoadingMore
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case LoadingMore:
		return "loading_more"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ScrollHint tells the view how to move after a change.
type ScrollHint int

const (
	// ScrollNone leaves the view where it is.
	ScrollNone ScrollHint = iota
	// ScrollToNewest moves the view to the newest message.
	ScrollToNewest
	// PreserveAnchor keeps Update.Anchor at the same place on screen.
	PreserveAnchor
)

// Update describes the effect of one loader operation.
type Update struct {
	Added int
	Hint  ScrollHint
	// Anchor is the id of the message that was oldest before a load older.
	Anchor string
}

// PageFetcher fetches one page of history, newest first. A nil before means
// the most recent page.
type PageFetcher interface {
	ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]chat.Message, error)
}

// Loader owns the message log of one conversation. Only one loader should
// exist per conversation id.
type Loader struct {
	conversationID string
	pageSize       int
	fetcher        PageFetcher
	logger         *slog.Logger

	mu       sync.Mutex
	state    State
	messages []chat.Message // ascending by (CreatedAt, ID)
	ids      map[string]struct{}
	hasMore  bool
	// cursor is the oldest message of any fetched page. Live pushes never
	// move it, so a stale push cannot skip unfetched history.
	cursor *chat.Message
}

// New creates an idle loader for conversationID.
func New(conversationID string, fetcher PageFetcher, pageSize int, logger *slog.Logger) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		conversationID: conversationID,
		pageSize:       pageSize,
		fetcher:        fetcher,
		logger:         logger.With("component", "thread", "conversation_id", conversationID),
		ids:            make(map[string]struct{}),
	}
}

// ConversationID returns the conversation this loader serves.
func (l *Loader) ConversationID() string { return l.conversationID }

// Load fetches the newest page. It is valid only from Idle; on failure the
// loader returns to Idle so the load can be retried.
func (l *Loader) Load(ctx context.Context) (Update, error) {
	if l.conversationID == "" {
		return Update{}, ErrNoConversation
	}
	if err := l.begin(Idle, Loading); err != nil {
		return Update{}, err
	}

	page, err := l.fetcher.ListMessages(ctx, l.conversationID, l.pageSize, nil)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Closed {
		l.logger.Debug("dropping initial page after close")
		return Update{}, ErrClosed
	}
	if err != nil {
		l.state = Idle
		return Update{}, fmt.Errorf("loading messages: %w", err)
	}

	added := l.mergeLocked(page)
	l.advanceCursorLocked(page)
	l.hasMore = len(page) >= l.pageSize
	l.state = Ready
	l.logger.Debug("initial page loaded", "fetched", len(page), "added", added, "has_more", l.hasMore)

	return Update{Added: added, Hint: ScrollToNewest}, nil
}

// LoadOlder fetches the page strictly older than the oldest fetched message
// and merges whatever is new. It is valid only from Ready.
func (l *Loader) LoadOlder(ctx context.Context) (Update, error) {
	l.mu.Lock()
	switch {
	case l.state == Closed:
		l.mu.Unlock()
		return Update{}, ErrClosed
	case l.state != Ready:
		state := l.state
		l.mu.Unlock()
		return Update{}, fmt.Errorf("%w: load older while %s", ErrInvalidState, state)
	case !l.hasMore:
		l.mu.Unlock()
		return Update{}, ErrNoMoreHistory
	}

	var before *time.Time
	var anchor string
	if l.cursor != nil {
		t := l.cursor.CreatedAt
		before = &t
		anchor = l.cursor.ID
	}
	l.state = LoadingMore
	l.mu.Unlock()

	page, err := l.fetcher.ListMessages(ctx, l.conversationID, l.pageSize, before)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Closed {
		l.logger.Debug("dropping older page after close")
		return Update{}, ErrClosed
	}
	l.state = Ready
	if err != nil {
		return Update{}, fmt.Errorf("loading older messages: %w", err)
	}

	added := l.mergeLocked(page)
	l.advanceCursorLocked(page)
	l.hasMore = len(page) >= l.pageSize
	l.logger.Debug("older page loaded", "fetched", len(page), "added", added, "has_more", l.hasMore)

	return Update{Added: added, Hint: PreserveAnchor, Anchor: anchor}, nil
}

// Receive merges a live message. Duplicates are ignored and report Added 0.
func (l *Loader) Receive(msg chat.Message) (Update, error) {
	if msg.ConversationID != "" && msg.ConversationID != l.conversationID {
		return Update{}, ErrWrongConversation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Closed {
		return Update{}, ErrClosed
	}
	if l.mergeLocked([]chat.Message{msg}) == 0 {
		l.logger.Debug("ignored duplicate message", "message_id", msg.ID)
		return Update{}, nil
	}
	return Update{Added: 1, Hint: ScrollToNewest}, nil
}

// Close moves the loader to Closed. In-flight fetches complete but their
// results are dropped.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = Closed
}

// Messages returns a copy of the log, oldest first.
func (l *Loader) Messages() []chat.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.messages)
}

// Len returns the number of messages in the log.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// HasMore reports whether older history may exist.
func (l *Loader) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// State returns the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) begin(from, to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Closed {
		return ErrClosed
	}
	if l.state != from {
		return fmt.Errorf("%w: %s while %s", ErrInvalidState, to, l.state)
	}
	l.state = to
	return nil
}

// advanceCursorLocked moves the cursor to the oldest message of page when
// that is older than the current cursor.
func (l *Loader) advanceCursorLocked(page []chat.Message) {
	for _, m := range page {
		if m.ID == "" {
			continue
		}
		if l.cursor == nil || m.Before(*l.cursor) {
			oldest := m
			l.cursor = &oldest
		}
	}
}

// mergeLocked adds the messages whose ids are unknown and keeps the log
// sorted. Input order does not matter.
func (l *Loader) mergeLocked(in []chat.Message) int {
	batch := make([]chat.Message, 0, len(in))
	for _, m := range in {
		if m.ID == "" {
			continue
		}
		if _, ok := l.ids[m.ID]; ok {
			continue
		}
		l.ids[m.ID] = struct{}{}
		batch = append(batch, m)
	}
	if len(batch) == 0 {
		return 0
	}
	slices.SortFunc(batch, compare)

	switch {
	case len(l.messages) == 0:
		l.messages = batch
	case batch[len(batch)-1].Before(l.messages[0]):
		l.messages = append(batch, l.messages...)
	case l.messages[len(l.messages)-1].Before(batch[0]):
		l.messages = append(l.messages, batch...)
	default:
		l.logger.Debug("out-of-order messages merged into place", "count", len(batch))
		l.messages = append(l.messages, batch...)
		slices.SortFunc(l.messages, compare)
	}
	return len(batch)
}

func compare(a, b chat.Message) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}
