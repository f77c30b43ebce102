// Package chat implements the realtime session: it keeps one broker
// connection alive for the logged-in user, turns inbound events into an
// immutable view of the room, and publishes the user's actions.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nfrund/chatroom/internal/domain"
	"github.com/nfrund/chatroom/internal/presence"
	"github.com/nfrund/chatroom/internal/pubsub"
)

const (
	// DefaultRetryInterval is the pause between failed handshakes.
	DefaultRetryInterval = 5 * time.Second
	// DefaultTypingExpiry is how long a typing indicator stays up without a new event.
	DefaultTypingExpiry = 2 * time.Second
	// DefaultConnectTimeout bounds a single handshake.
	DefaultConnectTimeout = 10 * time.Second

	leaveTimeout = 2 * time.Second
)

// State of the broker connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Directory lists the users the server considers online.
type Directory interface {
	OnlineUsers(ctx context.Context) ([]string, error)
}

// PrivateHandler receives the private messages of one conversation.
type PrivateHandler func(msg domain.PrivateMessage) error

// Manager owns the realtime session of one user. All state is guarded by mu;
// nothing is published and no handler runs while it is held.
type Manager struct {
	transport      pubsub.Transport
	directory      Directory
	endpoint       string
	retryInterval  time.Duration
	typingExpiry   time.Duration
	connectTimeout time.Duration
	newID          func() string
	now            func() time.Time
	logger         *slog.Logger
	registry       prometheus.Registerer
	metrics        *metrics

	// notifyMu serializes snapshot delivery; it is always taken before mu.
	notifyMu    sync.Mutex
	watchers    map[int]chan Snapshot
	nextWatcher int

	mu            sync.Mutex
	state         State
	started       bool
	closed        bool
	identity      *domain.Identity
	generation    uint64
	attemptCancel context.CancelFunc
	conn          pubsub.Conn
	connCancel    context.CancelFunc
	retryTimer    *time.Timer
	typingTimer   *time.Timer
	typingToken   uint64

	presence *presence.Set
	messages []domain.ChatEvent
	seenIDs  map[domain.MessageID]struct{}
	typing   *Typing
	unread   map[string]int
	open     map[string]struct{}
	handlers map[string]PrivateHandler
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetryInterval sets the pause between failed handshakes.
func WithRetryInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retryInterval = d
		}
	}
}

// WithTypingExpiry sets how long a typing indicator stays up.
func WithTypingExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.typingExpiry = d
		}
	}
}

// WithConnectTimeout bounds a single handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.connectTimeout = d
		}
	}
}

// WithEndpoint names the broker in connection errors.
func WithEndpoint(endpoint string) Option {
	return func(m *Manager) {
		m.endpoint = endpoint
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics registers the manager's collectors on reg instead of a
// private registry.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// WithIDGenerator replaces the generator of message and session ids.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// WithClock replaces the clock used for timestamps and typing expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager in the Disconnected state. directory may be
// nil, in which case the online list is built from live events only.
func NewManager(transport pubsub.Transport, directory Directory, opts ...Option) *Manager {
	m := &Manager{
		transport:      transport,
		directory:      directory,
		endpoint:       "broker",
		retryInterval:  DefaultRetryInterval,
		typingExpiry:   DefaultTypingExpiry,
		connectTimeout: DefaultConnectTimeout,
		newID:          uuid.NewString,
		now:            time.Now,
		logger:         slog.Default().With("component", "chat"),
		registry:       prometheus.NewRegistry(),
		watchers:       make(map[int]chan Snapshot),
		state:          StateDisconnected,
		presence:       presence.NewSet(),
		seenIDs:        make(map[domain.MessageID]struct{}),
		unread:         make(map[string]int),
		open:           make(map[string]struct{}),
		handlers:       make(map[string]PrivateHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.metrics = newMetrics(m.registry, m.logger)
	return m
}

// Start begins connecting as id. Starting a started manager does nothing;
// a closed manager cannot be restarted.
func (m *Manager) Start(id *domain.Identity) error {
	if id == nil || id.Username == "" {
		return domain.ErrNotAuthenticated
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.identity = id.Clone()
	m.presence.Join(id.Username)
	ctx, gen := m.beginAttemptLocked()
	m.mu.Unlock()

	m.logger.Info("Starting chat session", "username", id.Username)
	m.notify()
	go m.attempt(ctx, gen)
	return nil
}

// Close ends the session for good. The first call publishes a best-effort
// Leave, disconnects and closes every Watch channel; later calls do nothing.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.generation++
	m.stopRetryLocked()
	m.stopTypingLocked()
	if m.attemptCancel != nil {
		m.attemptCancel()
		m.attemptCancel = nil
	}
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	conn := m.conn
	m.conn = nil
	wasConnected := m.state == StateConnected
	m.state = StateDisconnected
	self := m.username()
	m.mu.Unlock()

	if conn != nil {
		if wasConnected {
			ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
			if err := m.publishEvent(ctx, conn, domain.EventLeave, self, ""); err != nil {
				m.logger.Debug("Leave not delivered", "error", err)
			}
			cancel()
		}
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close connection", "error", err)
		}
	}

	m.closeWatchers()
	m.logger.Info("Chat session closed", "username", self)
	return nil
}

// State returns the connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Username returns the user the manager was started for.
func (m *Manager) Username() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.username()
}

func (m *Manager) username() string {
	if m.identity == nil {
		return ""
	}
	return m.identity.Username
}

// RegisterPrivateHandler routes the private messages of partner to h,
// replacing any previous handler.
func (m *Manager) RegisterPrivateHandler(partner string, h PrivateHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[partner] = h
}

// UnregisterPrivateHandler removes the handler of partner. Later messages
// count as unread again.
func (m *Manager) UnregisterPrivateHandler(partner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, partner)
}

// OpenConversation marks partner's conversation open and clears its unread
// counter.
func (m *Manager) OpenConversation(partner string) error {
	m.mu.Lock()
	if partner == "" {
		m.mu.Unlock()
		return domain.ErrNoRecipient
	}
	if partner == m.username() {
		m.mu.Unlock()
		return domain.ErrSelfConversation
	}
	m.open[partner] = struct{}{}
	delete(m.unread, partner)
	m.mu.Unlock()

	m.notify()
	return nil
}

// CloseConversation closes partner's conversation and unregisters its handler.
func (m *Manager) CloseConversation(partner string) {
	m.mu.Lock()
	delete(m.open, partner)
	delete(m.handlers, partner)
	m.mu.Unlock()

	m.notify()
}
