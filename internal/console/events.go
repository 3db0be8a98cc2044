// ABOUTME: Event pump routing realtime channel events into the console's components
// ABOUTME: Conversation pushes merge into the list, message pushes into the open thread

package console

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/2389/petshop-support/internal/channel"
	"github.com/2389/petshop-support/internal/chat"
	"github.com/2389/petshop-support/internal/notify"
	"github.com/2389/petshop-support/internal/thread"
)

// ChangeKind says which part of the console changed.
type ChangeKind int

const (
	ListChanged ChangeKind = iota
	ThreadChanged
	ConnectionChanged
)

func (k ChangeKind) String() string {
	switch k {
	case ListChanged:
		return "list"
	case ThreadChanged:
		return "thread"
	case ConnectionChanged:
		return "connection"
	default:
		return "unknown"
	}
}

// Change is one visible state change.
type Change struct {
	Kind           ChangeKind
	ConversationID string
	Thread         thread.Update
	Connected      bool
}

type subscriptions struct {
	conversations <-chan channel.Event
	messages      <-chan channel.Event
	connects      <-chan channel.Event
	disconnects   <-chan channel.Event
	errs          <-chan channel.Event
	unauthorized  <-chan channel.Event
}

func subscribe(ctx context.Context, ch *channel.Channel) subscriptions {
	sub := func(name string) <-chan channel.Event {
		events, _ := ch.Subscribe(ctx, name)
		return events
	}
	return subscriptions{
		conversations: sub(channel.EventConversation),
		messages:      sub(channel.EventMessage),
		connects:      sub(channel.EventConnect),
		disconnects:   sub(channel.EventDisconnect),
		errs:          sub(channel.EventError),
		unauthorized:  sub(channel.EventUnauthorized),
	}
}

// pump runs until ctx is cancelled or the channel closes its subscriptions.
func (c *Console) pump(ctx context.Context, subs subscriptions, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-subs.conversations:
			if !ok {
				return
			}
			c.onConversation(ev)
		case ev, ok := <-subs.messages:
			if !ok {
				return
			}
			c.onMessage(ev)
		case _, ok := <-subs.connects:
			if !ok {
				return
			}
			c.onConnect(ctx)
		case ev, ok := <-subs.disconnects:
			if !ok {
				return
			}
			c.logger.Info("realtime disconnected", "error", ev.Err)
			c.publish(Change{Kind: ConnectionChanged, Connected: false})
		case ev, ok := <-subs.errs:
			if !ok {
				return
			}
			c.logger.Warn("realtime error", "error", ev.Err)
		case ev, ok := <-subs.unauthorized:
			if !ok {
				return
			}
			c.logger.Warn("realtime credential rejected", "error", ev.Err)
			c.notifier.Notify(notify.Error("Your session was rejected by the chat server, please log in again", ev.Err))
		}
	}
}

// onConnect subscribes to conversation previews and re-joins the open room.
// It runs on every (re)connect.
func (c *Console) onConnect(ctx context.Context) {
	ch, err := c.channel()
	if err != nil {
		return
	}
	if err := ch.Emit(ctx, channel.EventAdminJoinPreview, struct{}{}); err != nil {
		c.logger.Warn("preview subscription not queued", "error", err)
	}
	if loader := c.Active(); loader != nil {
		join := chat.JoinPayload{ConversationID: loader.ConversationID()}
		if err := ch.Emit(ctx, channel.EventJoinConversation, join); err != nil {
			c.logger.Warn("re-join not queued", "conversation_id", join.ConversationID, "error", err)
		}
	}
	c.logger.Info("realtime connected")
	c.publish(Change{Kind: ConnectionChanged, Connected: true})
}

func (c *Console) onConversation(ev channel.Event) {
	u, err := chat.ParseUpdate(ev.Data)
	if err != nil {
		c.logger.Warn("ignoring malformed conversation push", "error", err)
		return
	}
	c.list.Apply(u)
	c.publish(Change{Kind: ListChanged, ConversationID: u.ID})
}

func (c *Console) onMessage(ev channel.Event) {
	var msg chat.Message
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		c.logger.Warn("ignoring malformed message push", "error", err)
		return
	}

	// Keep the list fresh for conversations we already show.
	if conv, ok := c.list.Get(msg.ConversationID); ok && (conv.LastMessage == nil || conv.LastMessage.ID != msg.ID) {
		if conv.LastMessage == nil || !msg.CreatedAt.Before(conv.LastMessage.CreatedAt) {
			c.list.Apply(chat.Update{
				ID:          msg.ConversationID,
				LastMessage: chat.Some(msg.Summary()),
				UpdatedAt:   chat.Some(msg.CreatedAt),
			})
			c.publish(Change{Kind: ListChanged, ConversationID: msg.ConversationID})
		}
	}

	loader := c.Active()
	if loader == nil || loader.ConversationID() != msg.ConversationID {
		return
	}
	up, err := loader.Receive(msg)
	if err != nil {
		if !errors.Is(err, thread.ErrClosed) {
			c.logger.Warn("message not merged", "message_id", msg.ID, "error", err)
		}
		return
	}
	if up.Added > 0 {
		c.publish(Change{Kind: ThreadChanged, ConversationID: msg.ConversationID, Thread: up})
	}
}
