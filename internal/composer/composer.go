// ABOUTME: Composer buffering outgoing text and image references for the open conversation
// ABOUTME: Submit emits one send_message frame and clears the draft without waiting for an ack

package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/yuin/goldmark"

	"github.com/2389/petshop-support/internal/channel"
	"github.com/2389/petshop-support/internal/chat"
)

// Composer errors
var (
	ErrEmptyMessage   = errors.New("message has no text or images")
	ErrNoConversation = errors.New("no conversation selected")
	ErrNoChannel      = errors.New("not connected")
	ErrEmptyImage     = errors.New("image reference required")
)

// Emitter sends one event over the realtime channel.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any) error
}

// Draft is the current composer content.
type Draft struct {
	Text   string
	Images []string
}

// Empty reports whether the draft has nothing to send.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Images) == 0
}

// Composer holds one draft.
type Composer struct {
	markdown goldmark.Markdown // nil when text is sent as typed
	logger   *slog.Logger

	mu     sync.Mutex
	text   string
	images []string
}

// New creates an empty composer. With renderMarkdown the text is converted
// to HTML before sending, matching what the console's rich-text editor
// stores.
func New(renderMarkdown bool, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Composer{logger: logger.With("component", "composer")}
	if renderMarkdown {
		c.markdown = goldmark.New()
	}
	return c
}

// SetText replaces the draft text.
func (c *Composer) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
}

// AttachImage adds an image reference (an uploaded image URL). Attaching the
// same reference twice keeps one.
func (c *Composer) AttachImage(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ErrEmptyImage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.images, ref) {
		c.images = append(c.images, ref)
	}
	return nil
}

// RemoveImage drops an attached reference and reports whether it was there.
func (c *Composer) RemoveImage(ref string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.images, ref)
	if i < 0 {
		return false
	}
	c.images = slices.Delete(c.images, i, i+1)
	return true
}

// Draft returns a copy of the current content.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Draft{Text: c.text, Images: slices.Clone(c.images)}
}

// Clear empties the draft.
func (c *Composer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Composer) clearLocked() {
	c.text = ""
	c.images = nil
}

// Submit emits the draft to conversationID as one send_message payload and
// clears it. Validation failures never reach the channel. When the emit
// itself fails the draft is kept so the operator can retry.
func (c *Composer) Submit(ctx context.Context, em Emitter, conversationID string) (chat.SendPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conversationID == "" {
		return chat.SendPayload{}, ErrNoConversation
	}
	draft := Draft{Text: c.text, Images: c.images}
	if draft.Empty() {
		return chat.SendPayload{}, ErrEmptyMessage
	}
	if em == nil {
		return chat.SendPayload{}, ErrNoChannel
	}

	content, err := c.render(strings.TrimSpace(draft.Text))
	if err != nil {
		return chat.SendPayload{}, err
	}

	payload := chat.SendPayload{
		ConversationID: conversationID,
		Content:        content,
		Images:         slices.Clone(draft.Images),
	}
	if payload.Images == nil {
		payload.Images = []string{}
	}

	if err := em.Emit(ctx, channel.EventSendMessage, payload); err != nil {
		c.logger.Warn("send failed, keeping draft", "conversation_id", conversationID, "error", err)
		return chat.SendPayload{}, fmt.Errorf("sending message: %w", err)
	}

	c.clearLocked()
	c.logger.Debug("message emitted",
		"conversation_id", conversationID,
		"images", len(payload.Images))
	return payload, nil
}

func (c *Composer) render(text string) (string, error) {
	if c.markdown == nil || text == "" {
		return text, nil
	}
	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
