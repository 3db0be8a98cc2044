// ABOUTME: In-memory pet-shop backend used for local runs and end-to-end tests
// ABOUTME: Holds accounts, support conversations, messages, and orders behind one mutex

package fakeshop

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/petshop-support/internal/auth"
	"github.com/2389/petshop-support/internal/chat"
)

// Shop errors
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateLogin = errors.New("email or phone already registered")
	ErrBadCredentials = errors.New("invalid credentials")
)

const (
	defaultNamespace = "messages"
	defaultTokenTTL  = 24 * time.Hour
	maxPageSize      = 100
)

// Options configure a Shop.
type Options struct {
	// Secret signs operator tokens. Required.
	Secret []byte
	// Namespace is the realtime path, default "messages".
	Namespace string
	TokenTTL  time.Duration
	// AutoReply makes the customer of a conversation answer every operator
	// message, like a customer who is still typing on the other side.
	AutoReply bool
	Logger    *slog.Logger
}

type account struct {
	user chat.User
	hash []byte
}

// Shop is a fake backend: REST endpoints plus the realtime namespace.
type Shop struct {
	verifier  *auth.JWTVerifier
	namespace string
	tokenTTL  time.Duration
	autoReply bool
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	accounts map[string]*account // by user id
	logins   map[string]string   // email or phone -> user id
	convs    map[string]*chat.Conversation
	messages map[string][]chat.Message // ascending per conversation
	orders   map[string]chat.Order
	clients  map[*client]struct{}
	accepted int
}

// New creates an empty shop.
func New(opts Options) (*Shop, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("fakeshop: secret is required")
	}
	if opts.Namespace == "" {
		opts.Namespace = defaultNamespace
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Shop{
		verifier:  auth.NewJWTVerifier(opts.Secret),
		namespace: strings.Trim(opts.Namespace, "/"),
		tokenTTL:  opts.TokenTTL,
		autoReply: opts.AutoReply,
		logger:    opts.Logger.With("component", "fakeshop"),
		now:       time.Now,
		accounts:  make(map[string]*account),
		logins:    make(map[string]string),
		convs:     make(map[string]*chat.Conversation),
		messages:  make(map[string][]chat.Message),
		orders:    make(map[string]chat.Order),
		clients:   make(map[*client]struct{}),
	}, nil
}

// AddUser registers an account. An empty ID gets a generated one.
func (s *Shop) AddUser(u chat.User, password string) (chat.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return chat.User{}, fmt.Errorf("hashing password: %w", err)
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, login := range []string{u.Email, u.Phone} {
		if login == "" {
			continue
		}
		if _, taken := s.logins[login]; taken {
			return chat.User{}, ErrDuplicateLogin
		}
	}
	s.accounts[u.ID] = &account{user: u, hash: hash}
	if u.Email != "" {
		s.logins[u.Email] = u.ID
	}
	if u.Phone != "" {
		s.logins[u.Phone] = u.ID
	}
	return u, nil
}

// Authenticate checks a login (email or phone) and password and returns a
// signed token.
func (s *Shop) Authenticate(login, password string) (string, chat.User, error) {
	s.mu.RLock()
	id, ok := s.logins[login]
	var acct *account
	if ok {
		acct = s.accounts[id]
	}
	s.mu.RUnlock()

	if acct == nil {
		return "", chat.User{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return "", chat.User{}, ErrBadCredentials
	}
	token, err := s.verifier.Generate(acct.user.ID, acct.user.Role, s.tokenTTL)
	if err != nil {
		return "", chat.User{}, fmt.Errorf("signing token: %w", err)
	}
	return token, acct.user, nil
}

// Token signs a token for an existing user without a password.
func (s *Shop) Token(userID string) (string, error) {
	s.mu.RLock()
	acct, ok := s.accounts[userID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return s.verifier.Generate(acct.user.ID, acct.user.Role, s.tokenTTL)
}

// User returns an account's profile.
func (s *Shop) User(id string) (chat.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return chat.User{}, false
	}
	return acct.user, true
}

// OpenConversation creates a conversation between the given users.
func (s *Shop) OpenConversation(id string, userIDs ...string) (chat.Conversation, error) {
	if id == "" {
		id = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := &chat.Conversation{ID: id, UpdatedAt: s.now().UTC()}
	for _, uid := range userIDs {
		acct, ok := s.accounts[uid]
		if !ok {
			return chat.Conversation{}, fmt.Errorf("participant %s: %w", uid, ErrNotFound)
		}
		c.Participants = append(c.Participants, chat.Participant{
			ID:   acct.user.ID,
			Name: acct.user.Name,
			Role: acct.user.Role,
		})
	}
	s.convs[id] = c
	return *c, nil
}

// AddOrder stores an order.
func (s *Shop) AddOrder(o chat.Order) chat.Order {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return o
}

// Order returns a stored order.
func (s *Shop) Order(id string) (chat.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// PostMessage appends a message to a conversation, updates its summary and
// pushes both to connected clients. Timestamps within a conversation are
// strictly increasing.
func (s *Shop) PostMessage(conversationID, senderID, content string, images []string) (chat.Message, error) {
	return s.post(conversationID, senderID, content, images, "")
}

// PostOrderMessage is PostMessage with an order reference.
func (s *Shop) PostOrderMessage(conversationID, senderID, content, orderID string) (chat.Message, error) {
	return s.post(conversationID, senderID, content, nil, orderID)
}

func (s *Shop) post(conversationID, senderID, content string, images []string, orderID string) (chat.Message, error) {
	s.mu.Lock()
	c, ok := s.convs[conversationID]
	if !ok {
		s.mu.Unlock()
		return chat.Message{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	created := s.now().UTC()
	history := s.messages[conversationID]
	if n := len(history); n > 0 && !created.After(history[n-1].CreatedAt) {
		created = history[n-1].CreatedAt.Add(time.Millisecond)
	}

	msg := chat.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sender:         senderID,
		Content:        content,
		Images:         slices.Clone(images),
		CreatedAt:      created,
		OrderID:        orderID,
	}
	s.messages[conversationID] = append(history, msg)
	c.LastMessage = msg.Summary()
	c.UpdatedAt = created
	update := chat.Update{
		ID:          c.ID,
		LastMessage: chat.Some(c.LastMessage),
		UpdatedAt:   chat.Some(c.UpdatedAt),
	}
	participants := slices.Clone(c.Participants)
	s.mu.Unlock()

	s.pushMessage(msg)
	s.pushConversation(update, participants)

	if s.autoReply && s.isOperator(senderID) {
		go s.reply(conversationID, participants, content)
	}
	return msg, nil
}

func (s *Shop) isOperator(userID string) bool {
	u, ok := s.User(userID)
	return ok && (u.Role == "admin" || u.Role == "staff")
}

func (s *Shop) reply(conversationID string, participants []chat.Participant, content string) {
	for _, p := range participants {
		if s.isOperator(p.ID) {
			continue
		}
		if _, err := s.PostMessage(conversationID, p.ID, autoReplyText(content), nil); err != nil {
			s.logger.Warn("auto reply failed", "conversation_id", conversationID, "error", err)
		}
		return
	}
}

func autoReplyText(input string) string {
	lower := strings.ToLower(input)
	if strings.Contains(lower, "order") {
		return "Thanks! My order number is on the receipt, can you check it?"
	}
	return fmt.Sprintf("Got it: %q. Thank you!", input)
}

// Messages returns up to limit messages of a conversation strictly older than
// before (or the newest when before is nil), newest first.
func (s *Shop) Messages(conversationID string, limit int, before *time.Time) ([]chat.Message, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.convs[conversationID]; !ok {
		return nil, ErrNotFound
	}
	history := s.messages[conversationID]

	end := len(history)
	if before != nil {
		end, _ = slices.BinarySearchFunc(history, *before, func(m chat.Message, t time.Time) int {
			return m.CreatedAt.Compare(t)
		})
	}
	start := max(0, end-limit)

	page := slices.Clone(history[start:end])
	slices.Reverse(page)
	return page, nil
}

// Message finds one message by id.
func (s *Shop) Message(conversationID, messageID string) (chat.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages[conversationID] {
		if m.ID == messageID {
			return m, true
		}
	}
	return chat.Message{}, false
}

// Conversations returns every conversation, most recently updated first.
func (s *Shop) Conversations() []chat.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b chat.Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out
}

// Conversation returns one conversation.
func (s *Shop) Conversation(id string) (chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return chat.Conversation{}, false
	}
	return *c, true
}

func (s *Shop) participant(conversationID, userID string) bool {
	c, ok := s.Conversation(conversationID)
	if !ok {
		return false
	}
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}
