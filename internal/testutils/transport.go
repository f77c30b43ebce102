package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/nfrund/chatroom/internal/pubsub"
)

// ErrHandshakeRejected is returned by FlakyTransport for scripted failures.
var ErrHandshakeRejected = errors.New("handshake rejected")

// FlakyTransport wraps a transport, failing the first Failures handshakes
// and recording what goes through it.
type FlakyTransport struct {
	Next     pubsub.Transport
	Failures int
	// Gate, when set, holds every handshake until it receives or is closed.
	Gate chan struct{}
	// IgnoreCancel makes a gated handshake wait for Gate even when its
	// context ends, like a broker answering after the client gave up.
	IgnoreCancel bool

	mu          sync.Mutex
	attempts    int
	inFlight    int
	maxInFlight int
	handshakes  []pubsub.Handshake
	conns       []*RecordingConn
}

// Connect implements pubsub.Transport.
func (t *FlakyTransport) Connect(ctx context.Context, hs pubsub.Handshake) (pubsub.Conn, error) {
	t.mu.Lock()
	t.attempts++
	attempt := t.attempts
	t.inFlight++
	if t.inFlight > t.maxInFlight {
		t.maxInFlight = t.inFlight
	}
	t.handshakes = append(t.handshakes, hs)
	gate := t.Gate
	ignoreCancel := t.IgnoreCancel
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inFlight--
		t.mu.Unlock()
	}()

	if gate != nil && ignoreCancel {
		<-gate
		ctx = context.WithoutCancel(ctx)
	} else if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if attempt <= t.Failures {
		return nil, ErrHandshakeRejected
	}

	conn, err := t.Next.Connect(ctx, hs)
	if err != nil {
		return nil, err
	}
	rc := &RecordingConn{Conn: conn}
	t.mu.Lock()
	t.conns = append(t.conns, rc)
	t.mu.Unlock()
	return rc, nil
}

// Attempts returns the number of handshakes started.
func (t *FlakyTransport) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// MaxInFlight returns the highest number of concurrent handshakes seen.
func (t *FlakyTransport) MaxInFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxInFlight
}

// Handshakes returns the handshakes seen so far.
func (t *FlakyTransport) Handshakes() []pubsub.Handshake {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]pubsub.Handshake(nil), t.handshakes...)
}

// Conns returns the connections handed out so far.
func (t *FlakyTransport) Conns() []*RecordingConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*RecordingConn(nil), t.conns...)
}

// RecordingConn records subscriptions and publishes made through a connection.
type RecordingConn struct {
	pubsub.Conn

	mu            sync.Mutex
	subscriptions []string
	published     []pubsub.Message
	closed        bool
}

// Subscribe implements pubsub.Subscriber.
func (c *RecordingConn) Subscribe(ctx context.Context, topic string, handler pubsub.Handler) error {
	if err := c.Conn.Subscribe(ctx, topic, handler); err != nil {
		return err
	}
	c.mu.Lock()
	c.subscriptions = append(c.subscriptions, topic)
	c.mu.Unlock()
	return nil
}

// Publish implements pubsub.Publisher.
func (c *RecordingConn) Publish(ctx context.Context, msg pubsub.Message) error {
	c.mu.Lock()
	c.published = append(c.published, msg)
	c.mu.Unlock()
	return c.Conn.Publish(ctx, msg)
}

// Close implements pubsub.Conn.
func (c *RecordingConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.Conn.Close()
}

// Subscriptions returns the destinations subscribed to, in order.
func (c *RecordingConn) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.subscriptions...)
}

// Published returns the messages published, in order.
func (c *RecordingConn) Published() []pubsub.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pubsub.Message(nil), c.published...)
}

// Closed reports whether Close was called.
func (c *RecordingConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
