// ABOUTME: One authenticated realtime connection with automatic reconnection
// ABOUTME: Queues outbound frames while offline and fans incoming frames out to subscribers

package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/tidwall/gjson"

	"github.com/2389/petshop-support/internal/dedupe"
)

const (
	outboundBufferSize = 64
	dialTimeout        = 10 * time.Second
	readLimit          = 1 << 20
	dedupeMaxSize      = 10000
)

// Options configure channels opened by a Manager.
type Options struct {
	// URL is the realtime server base URL (ws, wss, http or https).
	URL string
	// Namespace is appended to URL as a path segment.
	Namespace    string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	// DedupeTTL bounds how long delivered message ids are remembered.
	DedupeTTL  time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ReconnectMin <= 0 {
		o.ReconnectMin = 500 * time.Millisecond
	}
	if o.ReconnectMax < o.ReconnectMin {
		o.ReconnectMax = 30 * time.Second
		if o.ReconnectMax < o.ReconnectMin {
			o.ReconnectMax = o.ReconnectMin
		}
	}
	if o.DedupeTTL <= 0 {
		o.DedupeTTL = 5 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Endpoint builds the socket URL for a namespace with the credential attached
// as the "token" query parameter.
func Endpoint(base, namespace, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing realtime url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	if namespace != "" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Trim(namespace, "/")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Channel is a live, self-reconnecting connection bound to one credential.
// It must not be used after Close.
type Channel struct {
	endpoint string
	opts     Options
	logger   *slog.Logger

	events   *broadcaster
	outbound chan Frame
	seen     *dedupe.Cache

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu        sync.RWMutex
	connected bool
	closed    bool
	pending   *Frame // frame whose write failed; sent first after reconnect
}

func open(endpoint string, opts Options) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger.With("component", "channel")
	c := &Channel{
		endpoint: endpoint,
		opts:     opts,
		logger:   logger,
		events:   newBroadcaster(logger),
		outbound: make(chan Frame, outboundBufferSize),
		seen:     dedupe.New(opts.DedupeTTL, dedupeMaxSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

// Subscribe returns a channel of events named name. The subscription ends
// when ctx is cancelled or the Channel closes; the returned channel is then
// closed.
func (c *Channel) Subscribe(ctx context.Context, name string) (<-chan Event, string) {
	return c.events.Subscribe(ctx, name)
}

// Unsubscribe ends a subscription early.
func (c *Channel) Unsubscribe(name, subID string) {
	c.events.Unsubscribe(name, subID)
}

// Emit queues an outbound event. It does not wait for delivery; frames
// queued while disconnected are sent after the next successful connect.
func (c *Channel) Emit(ctx context.Context, name string, payload any) error {
	if name == "" {
		return ErrNoEvent
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", name, err)
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	select {
	case <-c.ctx.Done():
		return ErrClosed
	case c.outbound <- Frame{Event: name, Data: data}:
		return nil
	default:
		c.logger.Warn("outbound buffer full, dropping frame", "event", name)
		return ErrBufferFull
	}
}

// Connected reports whether the socket is currently up.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close tears the connection down, stops reconnecting and closes every
// subscription. It is safe to call multiple times.
func (c *Channel) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		<-c.done
		c.events.Close()
		c.seen.Close()
		c.logger.Debug("channel closed")
	})
}

// run dials, serves and redials until the channel is closed.
func (c *Channel) run() {
	defer close(c.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.ReconnectMin
	b.MaxInterval = c.opts.ReconnectMax
	b.MaxElapsedTime = 0
	b.Reset()

	for attempt := 1; ; attempt++ {
		connected, err := c.session()
		if c.ctx.Err() != nil {
			return
		}
		if connected {
			b.Reset()
		}

		wait := b.NextBackOff()
		c.logger.Info("reconnecting", "attempt", attempt, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session performs one dial and serves the connection until it fails.
// connected reports whether the handshake succeeded.
func (c *Channel) session() (connected bool, err error) {
	dialCtx, cancelDial := context.WithTimeout(c.ctx, dialTimeout)
	conn, resp, err := websocket.Dial(dialCtx, c.endpoint, &websocket.DialOptions{
		HTTPClient: c.opts.HTTPClient,
	})
	cancelDial()
	if err != nil {
		if c.ctx.Err() != nil {
			return false, err
		}
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			c.logger.Warn("realtime credential rejected", "status", resp.StatusCode)
			c.events.Publish(Event{Name: EventUnauthorized, Err: err})
		} else {
			c.logger.Warn("realtime connect failed", "error", err)
			c.events.Publish(Event{Name: EventError, Err: err})
		}
		return false, err
	}
	conn.SetReadLimit(readLimit)

	c.setConnected(true)
	c.logger.Info("realtime connected")
	c.events.Publish(Event{Name: EventConnect})

	sessCtx, cancel := context.WithCancel(c.ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(sessCtx, conn)
	}()

	err = c.readLoop(sessCtx, conn)
	cancel()
	wg.Wait()

	if c.ctx.Err() != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client closing")
	} else {
		conn.CloseNow()
	}

	c.setConnected(false)
	if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
		c.logger.Warn("realtime server rejected credential", "error", err)
		c.events.Publish(Event{Name: EventUnauthorized, Err: err})
	}
	c.logger.Info("realtime disconnected", "error", err)
	c.events.Publish(Event{Name: EventDisconnect, Err: err})

	return true, err
}

func (c *Channel) setConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}

// readLoop dispatches frames until the connection fails or ctx ends.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var frame Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return err
		}
		c.dispatch(frame)
	}
}

// writeLoop drains the outbound queue until ctx ends or a write fails. A
// frame whose write fails is kept and retried on the next connection.
func (c *Channel) writeLoop(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	write := func(f Frame) bool {
		if err := wsjson.Write(ctx, conn, f); err != nil {
			c.mu.Lock()
			c.pending = &f
			c.mu.Unlock()
			if ctx.Err() == nil {
				c.logger.Warn("realtime write failed", "event", f.Event, "error", err)
				conn.CloseNow()
			}
			return false
		}
		c.logger.Debug("frame sent", "event", f.Event)
		return true
	}

	if pending != nil && !write(*pending) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.outbound:
			if !write(f) {
				return
			}
		}
	}
}

// dispatch publishes a received frame to subscribers.
func (c *Channel) dispatch(f Frame) {
	if f.Event == "" {
		c.logger.Debug("ignoring frame without event name")
		return
	}

	switch f.Event {
	case EventMessage:
		key := messageKey(f.Data)
		if key != "" && c.seen.CheckAndMark(key) {
			c.logger.Debug("dropped repeated message push", "key", key)
			return
		}
		// A push that did not reach every subscriber is not delivered; a
		// later re-push of it must get through.
		if delivered, dropped := c.events.deliver(Event{Name: f.Event, Data: f.Data}); key != "" && (delivered == 0 || dropped > 0) {
			c.seen.Forget(key)
		}
		return
	case EventUnauthorized:
		c.logger.Warn("realtime server reported unauthorized", "data", string(f.Data))
		c.events.Publish(Event{Name: EventUnauthorized, Data: f.Data, Err: errors.New("unauthorized")})
		return
	}

	c.events.Publish(Event{Name: f.Event, Data: f.Data})
}

// messageKey identifies a pushed message as conversation:id.
func messageKey(data []byte) string {
	r := gjson.ParseBytes(data)
	id := r.Get("id").String()
	if id == "" {
		id = r.Get("_id").String()
	}
	if id == "" {
		return ""
	}
	conv := r.Get("conversationId").String()
	if conv == "" {
		conv = r.Get("conversation").String()
		if c := r.Get("conversation._id"); c.Exists() {
			conv = c.String()
		}
	}
	return conv + ":" + id
}
