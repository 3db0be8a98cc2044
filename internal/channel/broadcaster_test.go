// ABOUTME: Tests for the per-event-name broadcaster
// ABOUTME: Covers fan-out, unsubscribe, context cancellation, slow subscribers, and close

package channel

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBroadcaster_FanOutByName(t *testing.T) {
	b := newBroadcaster(slog.Default())
	defer b.Close()

	ctx := t.Context()
	msgs1, _ := b.Subscribe(ctx, EventMessage)
	msgs2, _ := b.Subscribe(ctx, EventMessage)
	convs, _ := b.Subscribe(ctx, EventConversation)

	n := b.Publish(Event{Name: EventMessage, Data: []byte(`{"id":"m1"}`)})
	assert.Equal(t, 2, n)

	assert.JSONEq(t, `{"id":"m1"}`, string(recv(t, msgs1).Data))
	assert.JSONEq(t, `{"id":"m1"}`, string(recv(t, msgs2).Data))

	select {
	case ev := <-convs:
		t.Fatalf("unexpected event %q", ev.Name)
	default:
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := newBroadcaster(slog.Default())
	defer b.Close()

	ch, id := b.Subscribe(t.Context(), EventConnect)
	b.Unsubscribe(EventConnect, id)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Publish(Event{Name: EventConnect}))

	// unknown ids are ignored
	b.Unsubscribe(EventConnect, id)
	b.Unsubscribe("nope", "nope")
}

func TestBroadcaster_ContextCancel(t *testing.T) {
	b := newBroadcaster(slog.Default())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, EventMessage)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestBroadcaster_SlowSubscriberDrops(t *testing.T) {
	b := newBroadcaster(slog.Default())
	defer b.Close()

	ch, _ := b.Subscribe(t.Context(), EventMessage)
	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish(Event{Name: EventMessage})
	}
	assert.Len(t, ch, subscriberBufferSize)

	fast, _ := b.Subscribe(t.Context(), EventMessage)
	delivered, dropped := b.deliver(Event{Name: EventMessage})
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, dropped)
	assert.Len(t, fast, 1)
}

func TestBroadcaster_Close(t *testing.T) {
	b := newBroadcaster(slog.Default())

	ch, _ := b.Subscribe(t.Context(), EventMessage)
	b.Close()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := b.Subscribe(t.Context(), EventMessage)
	_, ok = <-late
	assert.False(t, ok)
	assert.Equal(t, 0, b.Publish(Event{Name: EventMessage}))
}

func TestBroadcaster_ConcurrentPublishUnsubscribe(t *testing.T) {
	b := newBroadcaster(slog.Default())
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		ch, id := b.Subscribe(t.Context(), EventMessage)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(Event{Name: EventMessage})
			}
		}()
		go func() {
			defer wg.Done()
			b.Unsubscribe(EventMessage, id)
			for range ch {
			}
		}()
	}
	wg.Wait()
}
