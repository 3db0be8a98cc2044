// ABOUTME: In-memory fan-out of realtime channel events to local subscribers
// ABOUTME: Subscribers register per event name; slow subscribers drop events instead of blocking the read loop

package channel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// broadcaster provides in-memory pub/sub for channel events keyed by event
// name.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // event name -> subID -> ch
	closed      bool
	done        chan struct{}
	logger      *slog.Logger
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	return &broadcaster{
		subscribers: make(map[string]map[string]chan Event),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for events with the given name. The
// returned channel is closed on Unsubscribe, on ctx cancellation, or when the
// broadcaster closes.
func (b *broadcaster) Subscribe(ctx context.Context, name string) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := b.subscribers[name]; !ok {
		b.subscribers[name] = make(map[string]chan Event)
	}
	b.subscribers[name][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "event", name, "sub_id", subID)

	go func() {
		select {
		case <-ctx.Done():
			b.Unsubscribe(name, subID)
		case <-b.done:
		}
	}()

	return ch, subID
}

// Publish delivers ev to every subscriber of ev.Name without blocking.
// Returns the number of subscribers that received it.
func (b *broadcaster) Publish(ev Event) int {
	delivered, _ := b.deliver(ev)
	return delivered
}

// deliver is Publish that also reports how many subscribers were skipped
// because their buffer was full.
func (b *broadcaster) deliver(ev Event) (delivered, dropped int) {
	// The read lock is held across the non-blocking sends so that a
	// concurrent Unsubscribe cannot close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[ev.Name] {
		select {
		case ch <- ev:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber", "event", ev.Name)
		}
	}
	return delivered, dropped
}

// Unsubscribe removes a subscription and closes its channel.
func (b *broadcaster) Unsubscribe(name, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[name]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, name)
	}

	b.logger.Debug("subscriber removed", "event", name, "sub_id", subID)
}

// Close closes all subscriber channels. Later subscriptions get a closed channel.
func (b *broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.done)

	for name, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, name)
	}
}
