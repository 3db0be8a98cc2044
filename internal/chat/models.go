// ABOUTME: Support chat data model shared by the REST client, channel, and UI-side state
// ABOUTME: Conversation, Message, and partial conversation Update with explicit field presence

package chat

import (
	"encoding/json"
	"time"
)

// Participant is one profile attached to a conversation.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// LastMessage summarises the newest message of a conversation.
type LastMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content,omitempty"`
	Images    []string  `json:"images,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasImages reports whether the message carried image attachments.
func (l *LastMessage) HasImages() bool {
	return l != nil && len(l.Images) > 0
}

// Conversation is a support thread between a customer and the shop's
// operators. The client never creates conversations; it only merges the
// snapshots the backend sends.
type Conversation struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	LastMessage  *LastMessage  `json:"lastMessage"`
	UpdatedAt    time.Time     `json:"updatedAt"`

	// Extra keeps fields this client does not model so a merge never drops them.
	Extra map[string]json.RawMessage `json:"-"`
}

// Customer returns the first participant whose role is not an operator
// role, or the first participant when none matches.
func (c *Conversation) Customer() (Participant, bool) {
	for _, p := range c.Participants {
		if p.Role != "admin" && p.Role != "staff" {
			return p, true
		}
	}
	if len(c.Participants) > 0 {
		return c.Participants[0], true
	}
	return Participant{}, false
}

// Message is one entry in a conversation's history.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Images         []string  `json:"images"`
	CreatedAt      time.Time `json:"createdAt"`
	OrderID        string    `json:"orderId,omitempty"`
}

// Before reports whether m sorts before o in a thread: by creation time,
// then by id so equal timestamps still have a total order.
func (m Message) Before(o Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}

// Summary converts m into the LastMessage shape used by conversations.
func (m Message) Summary() *LastMessage {
	return &LastMessage{
		ID:        m.ID,
		Sender:    m.Sender,
		Content:   m.Content,
		Images:    m.Images,
		CreatedAt: m.CreatedAt,
	}
}

// Field carries a value together with whether it was present in the payload.
type Field[T any] struct {
	Present bool
	Value   T
}

// Some returns a present field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Present: true, Value: v}
}

// Update is a partial conversation pushed by the messaging server. Only
// present fields take part in a merge.
type Update struct {
	ID           string
	Participants Field[[]Participant]
	LastMessage  Field[*LastMessage]
	UpdatedAt    Field[time.Time]
	Extra        map[string]json.RawMessage
}

// FullUpdate turns a complete conversation into an update carrying every field.
func FullUpdate(c Conversation) Update {
	return Update{
		ID:           c.ID,
		Participants: Some(c.Participants),
		LastMessage:  Some(c.LastMessage),
		UpdatedAt:    Some(c.UpdatedAt),
		Extra:        c.Extra,
	}
}

// SendPayload is the outbound send_message body.
type SendPayload struct {
	ConversationID string   `json:"conversationId"`
	Content        string   `json:"content"`
	Images         []string `json:"images"`
}

// JoinPayload is the outbound join_conversation body.
type JoinPayload struct {
	ConversationID string `json:"conversationId"`
}

// Order is the subset of an order the support console shows next to a chat.
type Order struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Total     float64     `json:"total"`
	Customer  string      `json:"customer,omitempty"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"createdAt"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// User is an authenticated operator profile.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}
