package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/nfrund/chatroom/internal/domain"
	"github.com/nfrund/chatroom/internal/pubsub"
	"github.com/nfrund/chatroom/internal/topics"
)

// joinRequest is the body of the join announcement.
type joinRequest struct {
	Sender   string           `json:"sender"`
	Username string           `json:"username"`
	Type     domain.EventType `json:"type"`
}

var (
	joinEvents    = pubsub.NewEvent[joinRequest](topics.AddUser)
	groupEvents   = pubsub.NewEvent[domain.ChatEvent](topics.SendMessage)
	privateEvents = pubsub.NewEvent[domain.PrivateMessage](topics.SendPrivate)
)

// connection returns the live connection and the user, or ErrNotConnected.
func (m *Manager) connection() (pubsub.Conn, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected || m.conn == nil {
		return nil, "", domain.ErrNotConnected
	}
	return m.conn, m.username(), nil
}

// SendGroupMessage publishes content to the group channel. Blank content is
// rejected with ErrEmptyMessage before anything is sent.
func (m *Manager) SendGroupMessage(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.ErrEmptyMessage
	}
	conn, self, err := m.connection()
	if err != nil {
		return err
	}
	return m.publishEvent(ctx, conn, domain.EventChat, self, content)
}

// SendTyping tells the room the user is typing.
func (m *Manager) SendTyping(ctx context.Context) error {
	conn, self, err := m.connection()
	if err != nil {
		return err
	}
	return m.publishEvent(ctx, conn, domain.EventTyping, self, "")
}

// Leave announces that the user leaves the room. Close does this too.
func (m *Manager) Leave(ctx context.Context) error {
	conn, self, err := m.connection()
	if err != nil {
		return err
	}
	return m.publishEvent(ctx, conn, domain.EventLeave, self, "")
}

// SendPrivateMessage publishes content to recipient's private queue.
func (m *Manager) SendPrivateMessage(ctx context.Context, recipient, content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.ErrEmptyMessage
	}
	if recipient == "" {
		return domain.ErrNoRecipient
	}
	conn, self, err := m.connection()
	if err != nil {
		return err
	}

	pm := domain.PrivateMessage{
		Sender:    self,
		Recipient: recipient,
		Content:   content,
		Timestamp: domain.NewTimestamp(m.now()),
	}
	if err := pubsub.Publish(ctx, conn, privateEvents, pm); err != nil {
		return fmt.Errorf("send private message: %w", err)
	}
	m.metrics.outbound.WithLabelValues("private").Inc()
	return nil
}

func (m *Manager) publishEvent(ctx context.Context, conn pubsub.Conn, kind domain.EventType, self, content string) error {
	ev := domain.ChatEvent{
		Type:      kind,
		Sender:    self,
		Content:   content,
		Timestamp: domain.NewTimestamp(m.now()),
	}
	if err := pubsub.Publish(ctx, conn, groupEvents, ev); err != nil {
		return fmt.Errorf("send %s: %w", strings.ToLower(string(kind)), err)
	}
	m.metrics.outbound.WithLabelValues(strings.ToLower(string(kind))).Inc()
	return nil
}
