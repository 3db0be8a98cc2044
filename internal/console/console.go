// ABOUTME: Application state container wiring the chat components for one operator session
// ABOUTME: Owns the channel, the conversation list, the open thread, and the composer; no globals

package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/petshop-support/internal/api"
	"github.com/2389/petshop-support/internal/auth"
	"github.com/2389/petshop-support/internal/channel"
	"github.com/2389/petshop-support/internal/chat"
	"github.com/2389/petshop-support/internal/composer"
	"github.com/2389/petshop-support/internal/conversation"
	"github.com/2389/petshop-support/internal/notify"
	"github.com/2389/petshop-support/internal/thread"
)

// Console errors
var (
	ErrNoCredential = errors.New("no credential, log in first")
	ErrNotStarted   = errors.New("console not started")
	ErrNoThread     = errors.New("no conversation open")
)

const changesBufferSize = 128

// API is the part of the REST backend the console uses.
type API interface {
	Login(ctx context.Context, identifier, password string) (*api.LoginResult, error)
	Me(ctx context.Context) (*chat.User, error)
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]chat.Message, error)
	GetOrder(ctx context.Context, orderID string) (*chat.Order, error)
	SetToken(token string)
}

// TokenStore keeps the credential between runs.
type TokenStore interface {
	Save(token string) error
	Clear() error
}

// Options configure a Console.
type Options struct {
	PageSize       int
	RenderMarkdown bool
	Notifier       notify.Notifier
	Logger         *slog.Logger
}

// Console is one operator's support chat session.
type Console struct {
	api      API
	channels *channel.Manager
	markers  conversation.MarkerStore
	tokens   TokenStore
	notifier notify.Notifier
	logger   *slog.Logger
	pageSize int

	list     *conversation.List
	composer *composer.Composer
	changes  chan Change

	mu       sync.Mutex
	operator chat.User
	ch       *channel.Channel
	active   *thread.Loader
	stopPump context.CancelFunc
	pumpDone chan struct{}
}

// New wires a console. tokens may be nil when credentials are not persisted.
func New(client API, channels *channel.Manager, markers conversation.MarkerStore, tokens TokenStore, opts Options) *Console {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = thread.DefaultPageSize
	}
	return &Console{
		api:      client,
		channels: channels,
		markers:  markers,
		tokens:   tokens,
		notifier: opts.Notifier,
		logger:   opts.Logger.With("component", "console"),
		pageSize: opts.PageSize,
		list:     conversation.New(client, markers, opts.Notifier, opts.Logger),
		composer: composer.New(opts.RenderMarkdown, opts.Logger),
		changes:  make(chan Change, changesBufferSize),
	}
}

// Changes delivers a Change whenever visible state moves. Changes are
// dropped when the reader falls behind; state accessors always reflect the
// latest state.
func (c *Console) Changes() <-chan Change {
	return c.changes
}

func (c *Console) publish(ch Change) {
	select {
	case c.changes <- ch:
	default:
		c.logger.Debug("change dropped, reader behind", "kind", ch.Kind)
	}
}

// Login exchanges credentials for a token, stores it and starts a session.
func (c *Console) Login(ctx context.Context, identifier, password string) error {
	res, err := c.api.Login(ctx, identifier, password)
	if err != nil {
		c.notifier.Notify(notify.Error("Login failed", err))
		return fmt.Errorf("logging in: %w", err)
	}
	if c.tokens != nil {
		if err := c.tokens.Save(res.Token); err != nil {
			c.logger.Warn("could not persist token", "error", err)
			c.notifier.Notify(notify.Error("Logged in, but the token was not saved", err))
		}
	}
	return c.Start(ctx, res.Token)
}

// Start begins a session with token: it resolves the operator and loads the
// conversation list concurrently, then opens the realtime channel. A failed
// list load is reported but does not fail Start.
func (c *Console) Start(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoCredential
	}
	c.stop()

	claims, claimsErr := auth.Inspect(token)
	if claimsErr != nil {
		c.logger.Debug("token claims unreadable", "error", claimsErr)
	} else if claims.Expired(time.Now()) {
		c.notifier.Notify(notify.Info("Your session token has expired, please log in again"))
	}

	c.api.SetToken(token)

	var me *chat.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.api.Me(gctx)
		if err != nil {
			if api.IsUnauthorized(err) || claimsErr != nil {
				return fmt.Errorf("resolving operator: %w", err)
			}
			c.logger.Warn("operator lookup failed, using token subject", "error", err)
			u = &chat.User{ID: claims.Subject, Role: claims.Role}
		}
		me = u
		return nil
	})
	g.Go(func() error {
		// failures are already reported to the notifier
		_ = c.list.Load(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		c.api.SetToken("")
		c.list.Reset()
		c.notifier.Notify(notify.Error("Could not start session", err))
		return err
	}

	c.list.SetOperator(me.ID)

	ch := c.channels.SetCredential(token)
	if ch == nil {
		c.list.Reset()
		return fmt.Errorf("opening realtime channel: %w", ErrNotStarted)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	subs := subscribe(pumpCtx, ch)

	c.mu.Lock()
	c.operator = *me
	c.ch = ch
	c.stopPump = cancel
	c.pumpDone = done
	c.mu.Unlock()

	go c.pump(pumpCtx, subs, done)
	if ch.Connected() {
		c.onConnect(pumpCtx)
	}

	c.logger.Info("session started", "operator_id", me.ID, "conversations", c.list.Len())
	c.publish(Change{Kind: ListChanged})
	return nil
}

// Open selects a conversation: the read marker is set, the previous thread
// is closed, the room is joined and the newest page loaded. Opening the
// conversation that is already open reuses its loader.
func (c *Console) Open(ctx context.Context, conversationID string) (thread.Update, error) {
	ch, err := c.channel()
	if err != nil {
		return thread.Update{}, err
	}

	if err := c.list.Select(ctx, conversationID); err != nil && !errors.Is(err, conversation.ErrUnknownConversation) {
		c.logger.Debug("read marker not saved", "conversation_id", conversationID, "error", err)
	}
	c.publish(Change{Kind: ListChanged})

	c.mu.Lock()
	if c.active != nil && c.active.ConversationID() == conversationID && c.active.State() != thread.Closed {
		loader := c.active
		c.mu.Unlock()
		if loader.State() == thread.Idle {
			return c.load(ctx, loader)
		}
		return thread.Update{}, nil
	}
	if c.active != nil {
		c.active.Close()
	}
	loader := thread.New(conversationID, c.api, c.pageSize, c.logger)
	c.active = loader
	c.mu.Unlock()

	c.composer.Clear()
	if err := ch.Emit(ctx, channel.EventJoinConversation, chat.JoinPayload{ConversationID: conversationID}); err != nil {
		c.logger.Warn("join not queued", "conversation_id", conversationID, "error", err)
	}
	return c.load(ctx, loader)
}

func (c *Console) load(ctx context.Context, loader *thread.Loader) (thread.Update, error) {
	up, err := loader.Load(ctx)
	if err != nil {
		if !errors.Is(err, thread.ErrClosed) && ctx.Err() == nil {
			c.notifier.Notify(notify.Error("Could not load messages", err))
		}
		return up, err
	}
	c.publish(Change{Kind: ThreadChanged, ConversationID: loader.ConversationID(), Thread: up})
	return up, nil
}

// LoadOlder pages the open thread backwards.
func (c *Console) LoadOlder(ctx context.Context) (thread.Update, error) {
	loader := c.Active()
	if loader == nil {
		return thread.Update{}, ErrNoThread
	}
	up, err := loader.LoadOlder(ctx)
	if err != nil {
		switch {
		case errors.Is(err, thread.ErrNoMoreHistory), errors.Is(err, thread.ErrInvalidState):
		case errors.Is(err, thread.ErrClosed), ctx.Err() != nil:
		default:
			c.notifier.Notify(notify.Error("Could not load older messages", err))
		}
		return up, err
	}
	c.publish(Change{Kind: ThreadChanged, ConversationID: loader.ConversationID(), Thread: up})
	return up, nil
}

// Send submits the composer draft to the open conversation.
func (c *Console) Send(ctx context.Context) (chat.SendPayload, error) {
	loader := c.Active()
	if loader == nil {
		return chat.SendPayload{}, ErrNoThread
	}

	var em composer.Emitter
	if ch, err := c.channel(); err == nil {
		em = ch
	}
	p, err := c.composer.Submit(ctx, em, loader.ConversationID())
	if err != nil {
		if !errors.Is(err, composer.ErrEmptyMessage) {
			c.notifier.Notify(notify.Error("Message not sent", err))
		}
		return p, err
	}
	return p, nil
}

// SendText replaces the draft text and sends it with any attached images.
func (c *Console) SendText(ctx context.Context, text string) (chat.SendPayload, error) {
	c.composer.SetText(text)
	return c.Send(ctx)
}

// Order fetches an order referenced from a conversation.
func (c *Console) Order(ctx context.Context, orderID string) (*chat.Order, error) {
	o, err := c.api.GetOrder(ctx, orderID)
	if err != nil {
		if ctx.Err() == nil {
			c.notifier.Notify(notify.Error("Could not load order "+orderID, err))
		}
		return nil, err
	}
	return o, nil
}

// Logout ends the session and forgets the stored credential.
func (c *Console) Logout() error {
	c.stop()
	c.api.SetToken("")
	c.publish(Change{Kind: ListChanged})
	if c.tokens == nil {
		return nil
	}
	if err := c.tokens.Clear(); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return nil
}

// Close ends the session, keeping the stored credential.
func (c *Console) Close() {
	c.stop()
}

// stop closes the channel and the open thread and waits for the event pump.
// Late fetch results are dropped by the closed loader.
func (c *Console) stop() {
	c.mu.Lock()
	stopPump, done := c.stopPump, c.pumpDone
	active := c.active
	c.stopPump, c.pumpDone = nil, nil
	c.active = nil
	c.ch = nil
	c.operator = chat.User{}
	c.mu.Unlock()

	if active != nil {
		active.Close()
	}
	if stopPump != nil {
		stopPump()
		<-done
	}
	c.channels.SetCredential("")
	c.composer.Clear()
	c.list.Reset()
}

func (c *Console) channel() (*channel.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil {
		return nil, ErrNotStarted
	}
	return c.ch, nil
}

// Operator returns the signed-in operator, zero when no session runs.
func (c *Console) Operator() chat.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.operator
}

// Active returns the open thread's loader, or nil.
func (c *Console) Active() *thread.Loader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Rows returns the visible conversation list.
func (c *Console) Rows() []conversation.Row {
	return c.list.Visible()
}

// Conversation returns one conversation from the list.
func (c *Console) Conversation(id string) (chat.Conversation, bool) {
	return c.list.Get(id)
}

// Messages returns the open thread's messages, oldest first.
func (c *Console) Messages() []chat.Message {
	if loader := c.Active(); loader != nil {
		return loader.Messages()
	}
	return nil
}

// Composer exposes the draft for attaching and removing images.
func (c *Console) Composer() *composer.Composer {
	return c.composer
}

// Connected reports whether the realtime channel is up.
func (c *Console) Connected() bool {
	ch, err := c.channel()
	return err == nil && ch.Connected()
}
