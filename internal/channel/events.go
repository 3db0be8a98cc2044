// ABOUTME: Event names and wire frame of the realtime messaging channel
// ABOUTME: Lifecycle events are produced locally; the rest travel as {"event","data"} JSON frames

package channel

import (
	"encoding/json"
	"errors"
)

// Lifecycle events published locally by a Channel.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventError        = "error"
	EventUnauthorized = "unauthorized"
)

// Events pushed by the messaging server.
const (
	EventConversation = "conversation"
	EventMessage      = "message"
)

// Events emitted by the console.
const (
	EventJoinConversation = "join_conversation"
	EventSendMessage      = "send_message"
	EventAdminJoinPreview = "admin_join_preview"
)

// Channel errors
var (
	ErrClosed     = errors.New("channel closed")
	ErrBufferFull = errors.New("channel outbound buffer full")
	ErrNoEvent    = errors.New("event name required")
)

// Frame is the JSON envelope of every message on the socket.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is what subscribers receive: a pushed frame or a lifecycle change.
type Event struct {
	Name string
	Data json.RawMessage
	// Err is set on disconnect, error and unauthorized events.
	Err error
}
