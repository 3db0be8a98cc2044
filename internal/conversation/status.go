// ABOUTME: Per-row status derivation for the conversation list
// ABOUTME: Pure function of the conversation, the read markers, and the operator id

package conversation

import (
	"github.com/2389/petshop-support/internal/chat"
	"github.com/2389/petshop-support/internal/readstate"
)

// Status is what the list shows next to a conversation.
type Status string

const (
	StatusResponded Status = "responded"
	StatusUnread    Status = "unread"
	StatusSeen      Status = "seen"
)

// DeriveStatus returns responded when the operator sent the last message,
// unread when the last message differs from the conversation's read marker,
// and seen otherwise. A conversation without a last message is seen.
func DeriveStatus(c chat.Conversation, markers readstate.Markers, operatorID string) Status {
	if c.LastMessage == nil {
		return StatusSeen
	}
	if c.LastMessage.Sender == operatorID {
		return StatusResponded
	}
	if c.LastMessage.ID != markers[c.ID] {
		return StatusUnread
	}
	return StatusSeen
}
