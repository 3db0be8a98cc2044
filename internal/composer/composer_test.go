// ABOUTME: Tests for the composer draft and submit rules
// ABOUTME: Uses a recording emitter in place of the realtime channel

package composer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/petshop-support/internal/channel"
	"github.com/2389/petshop-support/internal/chat"
)

type emitted struct {
	name    string
	payload any
}

type recordingEmitter struct {
	sent []emitted
	err  error
}

func (r *recordingEmitter) Emit(_ context.Context, name string, payload any) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, emitted{name, payload})
	return nil
}

func TestSubmit_EmitsAndClears(t *testing.T) {
	c := New(false, nil)
	c.SetText("  Your order ships tomorrow  ")
	require.NoError(t, c.AttachImage("https://cdn/a.png"))
	require.NoError(t, c.AttachImage("https://cdn/a.png"))

	em := &recordingEmitter{}
	p, err := c.Submit(context.Background(), em, "c1")
	require.NoError(t, err)

	want := chat.SendPayload{ConversationID: "c1", Content: "Your order ships tomorrow", Images: []string{"https://cdn/a.png"}}
	assert.Equal(t, want, p)
	require.Len(t, em.sent, 1)
	assert.Equal(t, channel.EventSendMessage, em.sent[0].name)
	assert.Equal(t, want, em.sent[0].payload)

	assert.True(t, c.Draft().Empty())
}

func TestSubmit_ImagesOnly(t *testing.T) {
	c := New(false, nil)
	require.NoError(t, c.AttachImage("x.png"))

	p, err := c.Submit(context.Background(), &recordingEmitter{}, "c1")
	require.NoError(t, err)
	assert.Empty(t, p.Content)
	assert.Equal(t, []string{"x.png"}, p.Images)
}

func TestSubmit_ValidationBlocksLocally(t *testing.T) {
	c := New(false, nil)
	em := &recordingEmitter{}

	c.SetText("   \n")
	_, err := c.Submit(context.Background(), em, "c1")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	c.SetText("hi")
	_, err = c.Submit(context.Background(), em, "")
	assert.ErrorIs(t, err, ErrNoConversation)

	_, err = c.Submit(context.Background(), nil, "c1")
	assert.ErrorIs(t, err, ErrNoChannel)

	assert.Empty(t, em.sent)
	assert.Equal(t, "hi", c.Draft().Text)
}

func TestSubmit_EmitFailureKeepsDraft(t *testing.T) {
	c := New(false, nil)
	c.SetText("hello")
	require.NoError(t, c.AttachImage("a.png"))

	_, err := c.Submit(context.Background(), &recordingEmitter{err: channel.ErrClosed}, "c1")
	assert.ErrorIs(t, err, channel.ErrClosed)
	assert.Equal(t, Draft{Text: "hello", Images: []string{"a.png"}}, c.Draft())
}

func TestSubmit_EmptyImagesIsArray(t *testing.T) {
	c := New(false, nil)
	c.SetText("hi")
	p, err := c.Submit(context.Background(), &recordingEmitter{}, "c1")
	require.NoError(t, err)
	assert.NotNil(t, p.Images)
}

func TestSubmit_Markdown(t *testing.T) {
	c := New(true, nil)
	c.SetText("Thanks for waiting, **Ann**!")
	p, err := c.Submit(context.Background(), &recordingEmitter{}, "c1")
	require.NoError(t, err)
	assert.Equal(t, "<p>Thanks for waiting, <strong>Ann</strong>!</p>", p.Content)
}

func TestImages(t *testing.T) {
	c := New(false, nil)
	assert.ErrorIs(t, c.AttachImage(" "), ErrEmptyImage)
	require.NoError(t, c.AttachImage("a"))
	require.NoError(t, c.AttachImage("b"))

	assert.True(t, c.RemoveImage("a"))
	assert.False(t, c.RemoveImage("a"))
	assert.Equal(t, []string{"b"}, c.Draft().Images)

	c.Clear()
	assert.True(t, c.Draft().Empty())
}

func TestDraftIsCopy(t *testing.T) {
	c := New(false, nil)
	require.NoError(t, c.AttachImage("a"))
	d := c.Draft()
	d.Images[0] = "changed"
	assert.Equal(t, []string{"a"}, c.Draft().Images)
}
