// ABOUTME: Typed REST endpoints used by the support console
// ABOUTME: Auth, current user, conversations, message pages, and order lookup

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2389/petshop-support/internal/chat"
)

// ErrMissingCredentials is returned by Login when identifier or password is empty.
var ErrMissingCredentials = errors.New("identifier and password required")

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token string    `json:"token"`
	User  chat.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// Login exchanges a phone number or email plus password for a bearer token.
// It does not change the client's own token.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	req := loginRequest{Password: password}
	if strings.Contains(identifier, "@") {
		req.Email = identifier
	} else {
		req.Phone = identifier
	}

	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &Error{Status: http.StatusUnauthorized, Message: "login response carried no token"}
	}
	return &res, nil
}

// Me returns the operator the current token belongs to.
func (c *Client) Me(ctx context.Context) (*chat.User, error) {
	var u chat.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListConversations returns every support conversation visible to the operator.
func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var convs []chat.Conversation
	if err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ListMessages returns up to limit messages of a conversation, newest first.
// When before is non-nil only messages created strictly earlier are returned.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]chat.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before != nil {
		q.Set("before", before.UTC().Format(time.RFC3339Nano))
	}

	var msgs []chat.Message
	path := "/chat/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetOrder returns an order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*chat.Order, error) {
	var o chat.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
