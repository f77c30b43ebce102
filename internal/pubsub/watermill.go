package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/nfrund/chatroom/internal/topics"
)

// ErrConnClosed is returned when publishing or subscribing on a closed connection.
var ErrConnClosed = errors.New("pubsub: connection closed")

const (
	// Metadata keys used to transfer our Message structure fields through watermill's message.
	metaKeyUserID = "user_id"
	metaKeyTopic  = "topic"
)

// Loopback is an in-memory broker built on watermill's GoChannel. It
// reproduces the chat server's routing so the client can run without a
// network: sends to /app destinations are forwarded to the destinations the
// server would deliver them on, and anything else is delivered as is.
//
// Publishing blocks until every subscriber handled the message, which keeps
// per-destination order. A handler must therefore not publish to the
// destination it is handling.
type Loopback struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewLoopback initializes an in-memory broker.
func NewLoopback() *Loopback {
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)

	return &Loopback{
		pubsub: goChannel,
		logger: slog.Default().With("component", "loopback"),
	}
}

// Connect implements Transport. The handshake must name a user.
func (l *Loopback) Connect(ctx context.Context, hs Handshake) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hs.Username == "" {
		return nil, errors.New("pubsub: handshake without username")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errors.New("pubsub: broker closed")
	}

	connCtx, cancel := context.WithCancel(context.Background())
	l.logger.Debug("Session established", "username", hs.Username, "session_id", hs.SessionID)
	return &loopbackConn{broker: l, hs: hs, ctx: connCtx, cancel: cancel}, nil
}

// Deliver publishes a payload straight to a subscribe destination, the way
// the server pushes events to its clients.
func (l *Loopback) Deliver(topic string, payload []byte) error {
	return l.publish(Message{Topic: topic, Payload: payload})
}

// Close shuts the broker down. Every subscription ends.
func (l *Loopback) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.pubsub.Close()
}

// route forwards a client send to its delivery destinations.
func (l *Loopback) route(msg Message) error {
	switch msg.Topic {
	case topics.AddUser.Pattern, topics.SendMessage.Pattern:
		msg.Topic = topics.Public.Pattern
		return l.publish(msg)

	case topics.SendPrivate.Pattern:
		var addr struct {
			Sender    string `json:"sender"`
			Recipient string `json:"recipient"`
		}
		if err := json.Unmarshal(msg.Payload, &addr); err != nil {
			return fmt.Errorf("decode private message: %w", err)
		}
		recipients := []string{addr.Recipient}
		if addr.Sender != "" && addr.Sender != addr.Recipient {
			recipients = append(recipients, addr.Sender)
		}
		for _, username := range recipients {
			dest, err := topics.PrivateQueueFor(username)
			if err != nil {
				return err
			}
			msg.Topic = dest
			if err := l.publish(msg); err != nil {
				return err
			}
		}
		return nil
	}

	if strings.HasPrefix(msg.Topic, "/app/") {
		return fmt.Errorf("pubsub: no route for %s", msg.Topic)
	}
	return l.publish(msg)
}

func (l *Loopback) publish(msg Message) error {
	return l.pubsub.Publish(msg.Topic, mapToWatermillMessage(msg))
}

type loopbackConn struct {
	broker *Loopback
	hs     Handshake

	ctx    context.Context
	cancel context.CancelFunc
}

// Publish implements the Publisher interface.
func (c *loopbackConn) Publish(ctx context.Context, msg Message) error {
	if c.ctx.Err() != nil {
		return ErrConnClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg.UserID = c.hs.Username
	return c.broker.route(msg)
}

// Subscribe implements the Subscriber interface.
func (c *loopbackConn) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if c.ctx.Err() != nil {
		return ErrConnClosed
	}

	// The subscription ends with either the caller's context or the connection.
	subCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)

	messages, err := c.broker.pubsub.Subscribe(subCtx, topic)
	if err != nil {
		stop()
		cancel()
		return err
	}

	// Run the message processing in a separate goroutine so that Subscribe is non-blocking.
	go func() {
		defer cancel()
		defer stop()
		for wmMsg := range messages {
			msg := mapToPubSubMessage(wmMsg)
			if err := handler(subCtx, msg); err != nil {
				c.broker.logger.Error("Failed to handle message", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
			}
			// Always ack: a nack makes GoChannel redeliver the message forever.
			wmMsg.Ack()
		}
		c.broker.logger.Debug("Subscription message loop ended", "topic", topic)
	}()

	return nil
}

// Close implements the Publisher and Subscriber interfaces. It is idempotent.
func (c *loopbackConn) Close() error {
	c.cancel()
	return nil
}

// mapToWatermillMessage converts our pubsub.Message to a watermill message.
func mapToWatermillMessage(msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)

	// Transfer our custom fields to watermill's metadata
	wmMsg.Metadata.Set(metaKeyUserID, msg.UserID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)

	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}

	return wmMsg
}

// mapToPubSubMessage converts a watermill message back to our internal pubsub.Message.
func mapToPubSubMessage(wmMsg *message.Message) Message {
	metadata := make(map[string]string)
	for k, v := range wmMsg.Metadata {
		if k != metaKeyUserID && k != metaKeyTopic {
			metadata[k] = v
		}
	}

	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		UserID:   wmMsg.Metadata.Get(metaKeyUserID),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}
