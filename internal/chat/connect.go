package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/chatroom/internal/domain"
	"github.com/nfrund/chatroom/internal/presence"
	"github.com/nfrund/chatroom/internal/pubsub"
	"github.com/nfrund/chatroom/internal/topics"
)

// beginAttemptLocked advances the generation and enters Connecting. The
// returned context is canceled when the attempt is superseded or the
// manager closes.
func (m *Manager) beginAttemptLocked() (context.Context, uint64) {
	m.generation++
	m.state = StateConnecting
	m.retryTimer = nil
	if m.attemptCancel != nil {
		m.attemptCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.attemptCancel = cancel
	return ctx, m.generation
}

// attempt performs one handshake. Exactly one attempt is in flight at a
// time: the next one is only scheduled by its failure.
func (m *Manager) attempt(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if m.closed || m.generation != gen {
		m.mu.Unlock()
		return
	}
	id := m.identity.Clone()
	mark := m.presence.Mark()
	m.mu.Unlock()

	m.metrics.connectAttempts.Inc()
	hs := pubsub.Handshake{
		ClientID:  id.Username,
		SessionID: m.newID(),
		Username:  id.Username,
		Token:     id.Token,
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, m.connectTimeout)
	conn, err := m.transport.Connect(dialCtx, hs)
	cancelDial()
	if err != nil {
		m.attemptFailed(gen, err)
		return
	}
	if m.stale(gen) {
		_ = conn.Close()
		m.logger.Debug("Released connection of a stale attempt", "generation", gen)
		return
	}

	// Subscriptions outlive the attempt; they end with the connection.
	connCtx, connCancel := context.WithCancel(context.Background())
	if err := m.establish(ctx, connCtx, conn, gen, id.Username); err != nil {
		connCancel()
		_ = conn.Close()
		m.attemptFailed(gen, err)
		return
	}

	m.mu.Lock()
	if m.closed || m.generation != gen {
		// Closed or superseded while the handshake was running.
		m.mu.Unlock()
		connCancel()
		_ = conn.Close()
		m.logger.Debug("Released connection of a stale attempt", "generation", gen)
		return
	}
	m.conn = conn
	m.connCancel = connCancel
	m.state = StateConnected
	m.mu.Unlock()

	m.logger.Info("Connected to chat server", "username", id.Username, "session_id", hs.SessionID)
	m.notify()

	if m.directory != nil {
		go m.fetchPresence(connCtx, gen, mark)
	}
}

// establish subscribes to both channels and announces the user. Any failure
// fails the handshake.
func (m *Manager) establish(ctx, connCtx context.Context, conn pubsub.Conn, gen uint64, self string) error {
	if err := conn.Subscribe(connCtx, topics.Public.Pattern, func(_ context.Context, msg pubsub.Message) error {
		m.handleGroup(gen, msg)
		return nil
	}); err != nil {
		return fmt.Errorf("subscribe group channel: %w", err)
	}

	queue, err := topics.PrivateQueueFor(self)
	if err != nil {
		return err
	}
	if err := conn.Subscribe(connCtx, queue, func(_ context.Context, msg pubsub.Message) error {
		m.handlePrivate(gen, msg)
		return nil
	}); err != nil {
		return fmt.Errorf("subscribe private queue: %w", err)
	}

	join := joinRequest{Sender: self, Username: self, Type: domain.EventJoin}
	if err := pubsub.Publish(ctx, conn, joinEvents, join); err != nil {
		return fmt.Errorf("announce join: %w", err)
	}
	m.metrics.outbound.WithLabelValues("join").Inc()
	return nil
}

func (m *Manager) stale(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed || m.generation != gen
}

// attemptFailed moves to Reconnecting and schedules the next attempt.
func (m *Manager) attemptFailed(gen uint64, cause error) {
	m.metrics.connectFailures.Inc()
	err := &domain.ConnectionError{Endpoint: m.endpoint, Err: cause}

	m.mu.Lock()
	if m.closed || m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.state = StateReconnecting
	m.scheduleRetryLocked(gen)
	m.mu.Unlock()

	m.logger.Error("Connection failed, retrying", "error", err, "retry_in", m.retryInterval)
	m.notify()
}

// scheduleRetryLocked arms the retry timer, stopping any previous one so at
// most one is live.
func (m *Manager) scheduleRetryLocked(gen uint64) {
	m.stopRetryLocked()
	m.retryTimer = time.AfterFunc(m.retryInterval, func() {
		m.retry(gen)
	})
}

func (m *Manager) stopRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

// retry starts the attempt following gen, unless gen is stale.
func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	if m.closed || m.generation != gen || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	ctx, next := m.beginAttemptLocked()
	m.mu.Unlock()

	m.notify()
	m.attempt(ctx, next)
}

// fetchPresence merges the server's online list into the live one.
func (m *Manager) fetchPresence(ctx context.Context, gen uint64, mark presence.Mark) {
	users, err := m.directory.OnlineUsers(ctx)
	if err != nil {
		m.logger.Warn("Failed to fetch online users", "error", err)
		return
	}

	m.mu.Lock()
	if m.closed || m.generation != gen {
		m.mu.Unlock()
		return
	}
	added := m.presence.Merge(users, mark)
	if self := m.username(); !m.presence.Online(self) {
		m.presence.Join(self)
	}
	m.mu.Unlock()

	m.logger.Debug("Merged online users", "listed", len(users), "added", len(added))
	m.notify()
}
