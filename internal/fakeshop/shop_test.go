// ABOUTME: Tests for the fake shop's data rules, REST surface, and realtime namespace
// ABOUTME: REST is exercised through the console's own API client

package fakeshop

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/petshop-support/internal/api"
	"github.com/2389/petshop-support/internal/channel"
	"github.com/2389/petshop-support/internal/chat"
)

func newSeededShop(t *testing.T, history int) (*Shop, *httptest.Server) {
	t.Helper()
	shop, err := New(Options{Secret: []byte("fakeshop-test-secret")})
	require.NoError(t, err)
	require.NoError(t, Seed(shop, history))
	srv := httptest.NewServer(shop.Handler())
	t.Cleanup(srv.Close)
	return shop, srv
}

func operatorClient(t *testing.T, srv *httptest.Server) *api.Client {
	t.Helper()
	c := api.New(srv.URL)
	res, err := c.Login(context.Background(), DemoOperatorEmail, DemoOperatorPassword)
	require.NoError(t, err)
	c.SetToken(res.Token)
	return c
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestAddUser_DuplicateLogin(t *testing.T) {
	shop, err := New(Options{Secret: []byte("s")})
	require.NoError(t, err)
	_, err = shop.AddUser(chat.User{Email: "a@b"}, "x")
	require.NoError(t, err)
	_, err = shop.AddUser(chat.User{Email: "a@b"}, "y")
	assert.ErrorIs(t, err, ErrDuplicateLogin)
}

func TestLoginByEmailAndPhone(t *testing.T) {
	_, srv := newSeededShop(t, 0)
	c := api.New(srv.URL)

	res, err := c.Login(context.Background(), DemoOperatorEmail, DemoOperatorPassword)
	require.NoError(t, err)
	assert.Equal(t, DemoOperatorID, res.User.ID)
	assert.NotEmpty(t, res.Token)

	res, err = c.Login(context.Background(), DemoOperatorPhone, DemoOperatorPassword)
	require.NoError(t, err)
	assert.Equal(t, "admin", res.User.Role)

	_, err = c.Login(context.Background(), DemoOperatorEmail, "wrong")
	assert.True(t, api.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestMeRequiresToken(t *testing.T) {
	_, srv := newSeededShop(t, 0)

	_, err := api.New(srv.URL).Me(context.Background())
	assert.True(t, api.IsUnauthorized(err))

	me, err := operatorClient(t, srv).Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Olivia (Support)", me.Name)
}

func TestConversations(t *testing.T) {
	_, srv := newSeededShop(t, 3)
	convs, err := operatorClient(t, srv).ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 3)

	byID := map[string]chat.Conversation{}
	for _, c := range convs {
		byID[c.ID] = c
	}
	ann := byID["conv-ann"]
	require.NotNil(t, ann.LastMessage)
	assert.Equal(t, "cust-1", ann.LastMessage.Sender)
	assert.Equal(t, "Where is my order?", ann.LastMessage.Content)
	assert.JSONEq(t, `"web"`, string(ann.Extra["channel"]))
	assert.Len(t, ann.Participants, 2)
	assert.Nil(t, byID["conv-chi"].LastMessage)
}

func TestCustomerCannotListConversations(t *testing.T) {
	_, srv := newSeededShop(t, 0)
	c := api.New(srv.URL)
	res, err := c.Login(context.Background(), "ann@example.test", "ann")
	require.NoError(t, err)
	c.SetToken(res.Token)

	_, err = c.ListConversations(context.Background())
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)
}

func TestMessagesPaging(t *testing.T) {
	_, srv := newSeededShop(t, 24)
	c := operatorClient(t, srv)

	first, err := c.ListMessages(context.Background(), "conv-ann", 20, nil)
	require.NoError(t, err)
	require.Len(t, first, 20)
	assert.Equal(t, "Where is my order?", first[0].Content, "newest first")
	assert.Equal(t, "ord-1001", first[0].OrderID)
	assert.True(t, first[1].CreatedAt.Before(first[0].CreatedAt))

	oldest := first[len(first)-1].CreatedAt
	second, err := c.ListMessages(context.Background(), "conv-ann", 20, &oldest)
	require.NoError(t, err)
	require.Len(t, second, 5)
	for _, m := range second {
		assert.True(t, m.CreatedAt.Before(oldest))
	}
	assert.Equal(t, "History message 1", second[4].Content)

	_, err = c.ListMessages(context.Background(), "nope", 20, nil)
	assert.True(t, api.IsNotFound(err))
}

func TestOrder(t *testing.T) {
	_, srv := newSeededShop(t, 0)
	c := operatorClient(t, srv)

	o, err := c.GetOrder(context.Background(), "ord-1001")
	require.NoError(t, err)
	assert.Equal(t, "shipped", o.Status)
	assert.Len(t, o.Items, 2)

	_, err = c.GetOrder(context.Background(), "ord-missing")
	assert.True(t, api.IsNotFound(err))
}

func TestPostMessage_StrictlyIncreasingTimestamps(t *testing.T) {
	shop, err := New(Options{Secret: []byte("s")})
	require.NoError(t, err)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	shop.now = func() time.Time { return fixed }

	_, err = shop.AddUser(chat.User{ID: "u1", Role: "customer"}, "x")
	require.NoError(t, err)
	_, err = shop.OpenConversation("c1", "u1")
	require.NoError(t, err)

	a, err := shop.PostMessage("c1", "u1", "a", nil)
	require.NoError(t, err)
	b, err := shop.PostMessage("c1", "u1", "b", nil)
	require.NoError(t, err)
	assert.True(t, a.CreatedAt.Before(b.CreatedAt))

	_, err = shop.PostMessage("missing", "u1", "x", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func dialSocket(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/messages?token=" + token
	conn, _, err := websocket.Dial(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(context.Background(), conn, channel.Frame{Event: event, Data: data}))
}

func readFrame(t *testing.T, conn *websocket.Conn) channel.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var f channel.Frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	return f
}

func TestSocket_RejectsBadToken(t *testing.T) {
	_, srv := newSeededShop(t, 0)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/messages?token=junk"
	_, resp, err := websocket.Dial(context.Background(), url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestSocket_JoinSendAndPreview(t *testing.T) {
	shop, srv := newSeededShop(t, 0)
	token, err := shop.Token(DemoOperatorID)
	require.NoError(t, err)

	conn := dialSocket(t, srv, token)
	emit(t, conn, channel.EventAdminJoinPreview, struct{}{})
	emit(t, conn, channel.EventJoinConversation, chat.JoinPayload{ConversationID: "conv-ben"})
	require.Eventually(t, func() bool { return shop.Joined(DemoOperatorID, "conv-ben") }, 2*time.Second, 5*time.Millisecond)

	emit(t, conn, channel.EventSendMessage, chat.SendPayload{ConversationID: "conv-ben", Content: "Anything else?", Images: []string{}})

	got := map[string]json.RawMessage{}
	for len(got) < 2 {
		f := readFrame(t, conn)
		got[f.Event] = f.Data
	}

	var m chat.Message
	require.NoError(t, json.Unmarshal(got[channel.EventMessage], &m))
	assert.Equal(t, "conv-ben", m.ConversationID)
	assert.Equal(t, DemoOperatorID, m.Sender)

	u, err := chat.ParseUpdate(got[channel.EventConversation])
	require.NoError(t, err)
	assert.Equal(t, "conv-ben", u.ID)
	assert.Equal(t, m.ID, u.LastMessage.Value.ID)
	assert.False(t, u.Participants.Present)

	assert.True(t, shop.Repush("conv-ben", m.ID))
	again := readFrame(t, conn)
	assert.Equal(t, channel.EventMessage, again.Event)
}

func TestSocket_CustomerCannotPreview(t *testing.T) {
	shop, srv := newSeededShop(t, 0)
	token, err := shop.Token("cust-2")
	require.NoError(t, err)

	conn := dialSocket(t, srv, token)
	emit(t, conn, channel.EventAdminJoinPreview, struct{}{})
	f := readFrame(t, conn)
	assert.Equal(t, channel.EventUnauthorized, f.Event)
}

func TestAutoReply(t *testing.T) {
	shop, err := New(Options{Secret: []byte("s"), AutoReply: true})
	require.NoError(t, err)
	require.NoError(t, Seed(shop, 0))

	_, err = shop.PostMessage("conv-ben", DemoOperatorID, "Can I see your order id?", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		c, _ := shop.Conversation("conv-ben")
		return c.LastMessage != nil && c.LastMessage.Sender == "cust-2"
	}, 2*time.Second, 5*time.Millisecond)
}
