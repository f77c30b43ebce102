package chat

import (
	"fmt"
	"time"

	"github.com/nfrund/chatroom/internal/domain"
	"github.com/nfrund/chatroom/internal/pubsub"
)

// handleGroup applies one group channel event. Events of a stale generation
// are dropped.
func (m *Manager) handleGroup(gen uint64, msg pubsub.Message) {
	ev, err := pubsub.Decode[domain.ChatEvent](msg)
	if err != nil {
		m.logger.Warn("Dropping malformed group event", "error", err)
		m.metrics.inbound.WithLabelValues("group_malformed").Inc()
		return
	}
	m.metrics.inbound.WithLabelValues("group").Inc()

	m.mu.Lock()
	if m.closed || m.generation != gen {
		m.mu.Unlock()
		return
	}

	switch ev.Type {
	case domain.EventJoin:
		m.presence.Join(ev.Sender)
		m.appendLocked(ev)
	case domain.EventLeave:
		// Another session of the same user leaving does not end this one.
		if ev.Sender != m.username() {
			m.presence.Leave(ev.Sender)
		}
		m.appendLocked(ev)
	case domain.EventTyping:
		if ev.Sender == "" || ev.Sender == m.username() {
			m.mu.Unlock()
			return
		}
		m.startTypingLocked(ev.Sender)
	default:
		m.appendLocked(ev)
	}
	m.mu.Unlock()

	m.notify()
}

// appendLocked adds ev to the history with a unique id and a timestamp.
func (m *Manager) appendLocked(ev domain.ChatEvent) {
	ev.ID = m.uniqueIDLocked(ev.ID)
	if ev.Timestamp.IsZero() {
		ev.Timestamp = domain.NewTimestamp(m.now())
	}
	m.messages = append(m.messages, ev)
}

// uniqueIDLocked returns id, or a fresh one when id is missing or already used.
func (m *Manager) uniqueIDLocked(id domain.MessageID) domain.MessageID {
	for {
		if id != "" {
			if _, dup := m.seenIDs[id]; !dup {
				m.seenIDs[id] = struct{}{}
				return id
			}
		}
		id = domain.MessageID(m.newID())
	}
}

// startTypingLocked shows username as typing and (re)arms the expiry timer.
// The token makes a firing of a replaced timer a no-op.
func (m *Manager) startTypingLocked(username string) {
	m.stopTypingLocked()
	m.typing = &Typing{Username: username, ExpiresAt: m.now().Add(m.typingExpiry)}
	token := m.typingToken
	m.typingTimer = time.AfterFunc(m.typingExpiry, func() {
		m.expireTyping(token)
	})
}

func (m *Manager) stopTypingLocked() {
	m.typingToken++
	if m.typingTimer != nil {
		m.typingTimer.Stop()
		m.typingTimer = nil
	}
	m.typing = nil
}

func (m *Manager) expireTyping(token uint64) {
	m.mu.Lock()
	if m.closed || token != m.typingToken {
		m.mu.Unlock()
		return
	}
	m.typing = nil
	m.typingTimer = nil
	m.mu.Unlock()

	m.notify()
}

// handlePrivate routes one private message to its conversation handler, or
// counts it as unread. Handlers run on the subscription goroutine, so they
// see messages in arrival order.
func (m *Manager) handlePrivate(gen uint64, msg pubsub.Message) {
	pm, err := pubsub.Decode[domain.PrivateMessage](msg)
	if err != nil {
		m.logger.Warn("Dropping malformed private message", "error", err)
		m.metrics.inbound.WithLabelValues("private_malformed").Inc()
		return
	}
	m.metrics.inbound.WithLabelValues("private").Inc()

	m.mu.Lock()
	if m.closed || m.generation != gen {
		m.mu.Unlock()
		return
	}
	self := m.username()
	partner := pm.Partner(self)
	pm.ID = m.uniqueIDLocked(pm.ID)
	if pm.Timestamp.IsZero() {
		pm.Timestamp = domain.NewTimestamp(m.now())
	}

	handler := m.handlers[partner]
	if handler == nil {
		counted := pm.Recipient == self
		if counted {
			m.unread[partner]++
		}
		m.mu.Unlock()
		if counted {
			m.notify()
		}
		return
	}
	m.mu.Unlock()

	m.callHandler(partner, handler, pm)
}

// callHandler isolates handler failures: errors and panics are logged,
// never propagated.
func (m *Manager) callHandler(partner string, handler PrivateHandler, pm domain.PrivateMessage) {
	defer func() {
		if r := recover(); r != nil {
			m.handlerFailed(partner, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := handler(pm); err != nil {
		m.handlerFailed(partner, err)
	}
}

func (m *Manager) handlerFailed(partner string, cause error) {
	m.metrics.handlerErrors.Inc()
	err := &domain.HandlerError{Partner: partner, Err: cause}
	m.logger.Error("Private message handler failed", "error", err)
}
