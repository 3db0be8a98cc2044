// ABOUTME: Connection Manager owning at most one realtime channel per credential
// ABOUTME: Every credential change closes the previous channel before a new one opens

package channel

import (
	"log/slog"
	"sync"
)

// Manager hands out the channel bound to the current credential.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	current *Channel
	token   string
}

// NewManager creates a manager; no channel is open until SetCredential.
func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts:   opts,
		logger: opts.Logger.With("component", "channel-manager"),
	}
}

// SetCredential closes any open channel and, when token is non-empty, opens
// a new one authenticated with it. It returns the new channel or nil.
// Setting the credential already in use keeps the existing channel.
func (m *Manager) SetCredential(token string) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && token != "" && token == m.token && !m.current.Closed() {
		return m.current
	}

	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
	m.token = token

	if token == "" {
		m.logger.Info("no credential, realtime channel not opened")
		return nil
	}

	endpoint, err := Endpoint(m.opts.URL, m.opts.Namespace, token)
	if err != nil {
		m.logger.Error("cannot build realtime endpoint", "error", err)
		return nil
	}

	m.current = open(endpoint, m.opts)
	m.logger.Debug("realtime channel opened")
	return m.current
}

// Current returns the open channel, or nil.
func (m *Manager) Current() *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close closes the current channel; the manager stays usable.
func (m *Manager) Close() {
	m.SetCredential("")
}
