// ABOUTME: REST surface of the fake shop: login, current user, conversations, messages, orders
// ABOUTME: Responses use the {"success","data"} envelope and document-store style _id fields

package fakeshop

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2389/petshop-support/internal/auth"
	"github.com/2389/petshop-support/internal/chat"
)

// Handler returns the HTTP handler serving REST and the realtime namespace.
func (s *Shop) Handler() http.Handler {
	authed := auth.HTTPAuthMiddleware(s.verifier)
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(auth.RequireAdminHTTP()(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.Handle("GET /auth/me", authed(http.HandlerFunc(s.handleMe)))
	mux.Handle("GET /chat/conversations", admin(s.handleConversations))
	mux.Handle("GET /chat/conversations/{id}/messages", authed(http.HandlerFunc(s.handleMessages)))
	mux.Handle("GET /orders/{id}", admin(s.handleOrder))
	mux.HandleFunc("GET /"+s.namespace, s.handleSocket)
	return mux
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *Shop) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	login := req.Email
	if login == "" {
		login = req.Phone
	}
	if login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email or phone and password are required")
		return
	}

	token, user, err := s.Authenticate(strings.TrimSpace(login), req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	s.logger.Info("operator logged in", "user_id", user.ID)
	writeData(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userWire(user),
	})
}

func (s *Shop) handleMe(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	user, ok := s.User(id.UserID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User no longer exists")
		return
	}
	writeData(w, http.StatusOK, userWire(user))
}

func (s *Shop) handleConversations(w http.ResponseWriter, r *http.Request) {
	convs := s.Conversations()
	out := make([]map[string]any, len(convs))
	for i, c := range convs {
		out[i] = conversationWire(c)
	}
	writeData(w, http.StatusOK, out)
}

func (s *Shop) handleMessages(w http.ResponseWriter, r *http.Request) {
	convID := r.PathValue("id")
	id := auth.FromContext(r.Context())
	if !id.IsAdmin() && !s.participant(convID, id.UserID) {
		writeError(w, http.StatusForbidden, "Not a participant")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	var before *time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid before cursor")
			return
		}
		before = &t
	}

	msgs, err := s.Messages(convID, limit, before)
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	out := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		out[i] = s.messageWire(m)
	}
	writeData(w, http.StatusOK, out)
}

func (s *Shop) handleOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := s.Order(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	writeData(w, http.StatusOK, o)
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}

func userWire(u chat.User) map[string]any {
	return map[string]any{
		"_id":   u.ID,
		"name":  u.Name,
		"email": u.Email,
		"phone": u.Phone,
		"role":  u.Role,
	}
}

func lastMessageWire(l *chat.LastMessage) any {
	if l == nil {
		return nil
	}
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return map[string]any{
		"_id":       l.ID,
		"sender":    l.Sender,
		"content":   l.Content,
		"images":    images,
		"createdAt": l.CreatedAt.Format(time.RFC3339Nano),
	}
}

func conversationWire(c chat.Conversation) map[string]any {
	participants := make([]map[string]any, len(c.Participants))
	for i, p := range c.Participants {
		participants[i] = map[string]any{
			"_id":      p.ID,
			"fullName": p.Name,
			"avatar":   p.Avatar,
			"role":     p.Role,
		}
	}
	return map[string]any{
		"_id":          c.ID,
		"participants": participants,
		"lastMessage":  lastMessageWire(c.LastMessage),
		"updatedAt":    c.UpdatedAt.Format(time.RFC3339Nano),
		"channel":      "web",
	}
}

func (s *Shop) messageWire(m chat.Message) map[string]any {
	sender := map[string]any{"_id": m.Sender}
	if u, ok := s.User(m.Sender); ok {
		sender["name"] = u.Name
		sender["role"] = u.Role
	}
	images := make([]map[string]string, len(m.Images))
	for i, ref := range m.Images {
		images[i] = map[string]string{"url": ref}
	}
	out := map[string]any{
		"_id":          m.ID,
		"conversation": m.ConversationID,
		"sender":       sender,
		"content":      m.Content,
		"images":       images,
		"createdAt":    m.CreatedAt.Format(time.RFC3339Nano),
	}
	if m.OrderID != "" {
		out["order"] = m.OrderID
	}
	return out
}
