// ABOUTME: Realtime namespace of the fake shop over WebSocket
// ABOUTME: Handles room joins, preview subscriptions, and send_message; pushes message and conversation frames

package fakeshop

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/2389/petshop-support/internal/auth"
	"github.com/2389/petshop-support/internal/channel"
	"github.com/2389/petshop-support/internal/chat"
)

const clientBufferSize = 64

// client is one connected socket.
type client struct {
	userID string
	admin  bool
	conn   *websocket.Conn
	send   chan channel.Frame

	mu      sync.Mutex
	rooms   map[string]bool
	preview bool
}

func (c *client) inRoom(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[id]
}

func (c *client) previewing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

func (s *Shop) handleSocket(w http.ResponseWriter, r *http.Request) {
	token, errMsg := auth.RequestToken(r)
	if errMsg != "" {
		writeError(w, http.StatusUnauthorized, errMsg)
		return
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	c := &client{
		userID: claims.Subject,
		admin:  claims.Role == "admin" || claims.Role == "staff",
		conn:   conn,
		send:   make(chan channel.Frame, clientBufferSize),
		rooms:  make(map[string]bool),
	}
	s.register(c)
	defer s.unregister(c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.writeLoop(ctx, c)

	s.logger.Debug("socket connected", "user_id", c.userID)
	for {
		var f channel.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			s.logger.Debug("socket closed", "user_id", c.userID, "error", err)
			return
		}
		s.handleFrame(c, f)
	}
}

func (s *Shop) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.send:
			if err := wsjson.Write(ctx, c.conn, f); err != nil {
				c.conn.CloseNow()
				return
			}
		}
	}
}

func (s *Shop) handleFrame(c *client, f channel.Frame) {
	switch f.Event {
	case channel.EventJoinConversation:
		var p chat.JoinPayload
		if err := json.Unmarshal(f.Data, &p); err != nil || p.ConversationID == "" {
			s.logger.Warn("bad join payload", "user_id", c.userID)
			return
		}
		if !c.admin && !s.participant(p.ConversationID, c.userID) {
			s.deliver(c, channel.EventUnauthorized, map[string]string{"message": "Not a participant"})
			return
		}
		c.mu.Lock()
		c.rooms[p.ConversationID] = true
		c.mu.Unlock()

	case channel.EventAdminJoinPreview:
		if !c.admin {
			s.deliver(c, channel.EventUnauthorized, map[string]string{"message": "Admin only"})
			return
		}
		c.mu.Lock()
		c.preview = true
		c.mu.Unlock()

	case channel.EventSendMessage:
		var p chat.SendPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.logger.Warn("bad send payload", "user_id", c.userID)
			return
		}
		if !c.admin && !s.participant(p.ConversationID, c.userID) {
			s.deliver(c, channel.EventUnauthorized, map[string]string{"message": "Not a participant"})
			return
		}
		if _, err := s.PostMessage(p.ConversationID, c.userID, p.Content, p.Images); err != nil {
			s.logger.Warn("send_message rejected", "conversation_id", p.ConversationID, "error", err)
		}

	default:
		s.logger.Debug("ignoring frame", "event", f.Event)
	}
}

func (s *Shop) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
	s.accepted++
}

func (s *Shop) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

func (s *Shop) snapshotClients() []*client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

// deliver queues a frame for one client, dropping it if the client is behind.
func (s *Shop) deliver(c *client, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("encoding frame", "event", event, "error", err)
		return
	}
	select {
	case c.send <- channel.Frame{Event: event, Data: data}:
	default:
		s.logger.Warn("client too slow, dropping frame", "user_id", c.userID, "event", event)
	}
}

func (s *Shop) pushMessage(m chat.Message) {
	wire := s.messageWire(m)
	for _, c := range s.snapshotClients() {
		if c.inRoom(m.ConversationID) {
			s.deliver(c, channel.EventMessage, wire)
		}
	}
}

func (s *Shop) pushConversation(u chat.Update, participants []chat.Participant) {
	wire := map[string]any{"_id": u.ID}
	if u.LastMessage.Present {
		wire["lastMessage"] = lastMessageWire(u.LastMessage.Value)
	}
	if u.UpdatedAt.Present {
		wire["updatedAt"] = u.UpdatedAt.Value
	}

	member := make(map[string]bool, len(participants))
	for _, p := range participants {
		member[p.ID] = true
	}
	for _, c := range s.snapshotClients() {
		if c.previewing() || member[c.userID] {
			s.deliver(c, channel.EventConversation, wire)
		}
	}
}

// Repush delivers an already stored message again to every client in its
// room, as a server does after a reconnect.
func (s *Shop) Repush(conversationID, messageID string) bool {
	m, ok := s.Message(conversationID, messageID)
	if !ok {
		return false
	}
	s.pushMessage(m)
	return true
}

// DropConnections closes every socket abruptly.
func (s *Shop) DropConnections() {
	for _, c := range s.snapshotClients() {
		c.conn.CloseNow()
	}
}

// Connected returns the number of open sockets.
func (s *Shop) Connected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Accepted returns the number of sockets accepted since the shop started.
func (s *Shop) Accepted() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accepted
}

// Joined reports whether any socket of userID has joined the conversation room.
func (s *Shop) Joined(userID, conversationID string) bool {
	for _, c := range s.snapshotClients() {
		if c.userID == userID && c.inRoom(conversationID) {
			return true
		}
	}
	return false
}
