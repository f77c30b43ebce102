package pubsub

import (
	"context"
)

// Message is the structure passed between the client and the broker.
// It is intentionally simple to act as a wrapper for raw data.
type Message struct {
	// Topic is the broker destination (e.g., "/topic/public").
	Topic string
	// UserID identifies the user who initiated the message.
	UserID string
	// Payload contains the raw message data, JSON for every chat destination.
	Payload []byte
	// Metadata can contain arbitrary key-value pairs for context (e.g., headers).
	Metadata map[string]string
}

// Handler defines the function signature for processing a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the contract for sending messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber defines the contract for receiving messages from the broker.
type Subscriber interface {
	// Subscribe starts listening to the given topic and returns once the
	// subscription is active. Messages are passed to handler one at a time,
	// in arrival order, on a goroutine owned by the subscription. Delivery
	// stops when ctx is canceled or the subscriber is closed.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// Conn is one established broker session. Close disconnects it and stops
// every subscription made through it.
type Conn interface {
	Publisher
	Subscriber
}

// Handshake carries the headers sent when a session is established.
type Handshake struct {
	// ClientID is sent as the client_id header.
	ClientID string
	// SessionID is sent as the session-id header, fresh for every attempt.
	SessionID string
	// Username is sent as the username header.
	Username string
	// Token is the opaque credential presented to the broker (a Cookie header value).
	Token string
}

// Transport establishes broker sessions.
type Transport interface {
	// Connect performs the handshake. It returns once the broker accepted
	// the session, or with an error when ctx ends first.
	Connect(ctx context.Context, hs Handshake) (Conn, error)
}
