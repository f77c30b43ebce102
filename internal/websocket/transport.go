// Package websocket implements the broker transport: STOMP 1.2 frames
// carried over a WebSocket, as served by the chat server's /ws endpoint.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
	"github.com/go-stomp/stomp/v3/frame"

	"github.com/nfrund/chatroom/internal/pubsub"
)

// Subprotocols offered during the WebSocket upgrade, newest first.
var Subprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

const (
	defaultReadLimit         = 1 << 20
	defaultDisconnectTimeout = 2 * time.Second
)

// Transport dials the broker. It implements pubsub.Transport.
type Transport struct {
	brokerURL         string
	disconnectTimeout time.Duration
	logger            *slog.Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithDisconnectTimeout bounds how long Close waits for the broker's receipt.
func WithDisconnectTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.disconnectTimeout = d
		}
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport creates a transport for the broker at brokerURL
// (e.g. ws://localhost:8080/ws/websocket).
func NewTransport(brokerURL string, opts ...TransportOption) *Transport {
	t := &Transport{
		brokerURL:         brokerURL,
		disconnectTimeout: defaultDisconnectTimeout,
		logger:            slog.Default().With("component", "stomp"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect upgrades to a WebSocket and performs the STOMP handshake. The
// token is presented as the Cookie header of the upgrade request. Both steps
// are bounded by ctx.
func (t *Transport) Connect(ctx context.Context, hs pubsub.Handshake) (pubsub.Conn, error) {
	u, err := url.Parse(t.brokerURL)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}

	header := http.Header{}
	if hs.Token != "" {
		header.Set("Cookie", hs.Token)
	}

	ws, _, err := websocket.Dial(ctx, t.brokerURL, &websocket.DialOptions{
		Subprotocols: Subprotocols,
		HTTPHeader:   header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.brokerURL, err)
	}
	ws.SetReadLimit(defaultReadLimit)

	// The net.Conn lives as long as the session, not as long as the dial.
	connCtx, cancel := context.WithCancel(context.Background())
	netConn := websocket.NetConn(connCtx, ws, websocket.MessageText)

	type result struct {
		conn *stomp.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := stomp.Connect(netConn,
			stomp.ConnOpt.Host(u.Hostname()),
			stomp.ConnOpt.HeartBeat(0, 0),
			stomp.ConnOpt.Header("client_id", hs.ClientID),
			stomp.ConnOpt.Header("session-id", hs.SessionID),
			stomp.ConnOpt.Header("username", hs.Username),
		)
		done <- result{conn: conn, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			cancel()
			_ = ws.CloseNow()
			return nil, fmt.Errorf("stomp handshake: %w", res.err)
		}
		t.logger.Debug("STOMP session established", "username", hs.Username, "session_id", hs.SessionID, "subprotocol", ws.Subprotocol())
		return &stompConn{
			ws:      ws,
			conn:    res.conn,
			cancel:  cancel,
			timeout: t.disconnectTimeout,
			logger:  t.logger.With("username", hs.Username),
		}, nil
	case <-ctx.Done():
		cancel()
		_ = ws.CloseNow()
		// Closing the socket makes stomp.Connect return; release whatever it produced.
		if res := <-done; res.conn != nil {
			_ = res.conn.MustDisconnect()
		}
		return nil, ctx.Err()
	}
}

type stompConn struct {
	ws      *websocket.Conn
	conn    *stomp.Conn
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

var errClosed = errors.New("stomp: connection closed")

func (c *stompConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Publish sends msg.Payload as a JSON SEND frame to msg.Topic. Metadata
// entries become frame headers.
func (c *stompConn) Publish(ctx context.Context, msg pubsub.Message) error {
	if c.isClosed() {
		return errClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := make([]func(*frame.Frame) error, 0, len(msg.Metadata))
	for k, v := range msg.Metadata {
		opts = append(opts, stomp.SendOpt.Header(k, v))
	}
	if err := c.conn.Send(msg.Topic, "application/json", msg.Payload, opts...); err != nil {
		return fmt.Errorf("send %s: %w", msg.Topic, err)
	}
	return nil
}

// Subscribe opens a STOMP subscription with automatic acknowledgement.
// Messages are handled one at a time on a goroutine owned by the
// subscription, which unsubscribes when ctx ends.
func (c *stompConn) Subscribe(ctx context.Context, topic string, handler pubsub.Handler) error {
	if c.isClosed() {
		return errClosed
	}

	sub, err := c.conn.Subscribe(topic, stomp.AckAuto)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				if !c.isClosed() {
					if err := sub.Unsubscribe(); err != nil {
						c.logger.Debug("Unsubscribe failed", "topic", topic, "error", err)
					}
				}
				// Drain until the client library closes the channel.
				for range sub.C {
				}
				return
			case m, ok := <-sub.C:
				if !ok {
					return
				}
				if m.Err != nil {
					if !c.isClosed() {
						c.logger.Error("Subscription failed", "topic", topic, "error", m.Err)
					}
					return
				}
				msg := pubsub.Message{
					Topic:   m.Destination,
					Payload: m.Body,
					Metadata: map[string]string{
						"message-id":   m.Header.Get(frame.MessageId),
						"content-type": m.ContentType,
					},
				}
				if err := handler(ctx, msg); err != nil {
					c.logger.Error("Failed to handle message", "topic", topic, "error", err)
				}
			}
		}
	}()

	return nil
}

// Close sends DISCONNECT, waits a bounded time for the receipt, and tears
// the socket down. It is idempotent.
func (c *stompConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("stomp disconnect: %v", r)
			}
		}()
		done <- c.conn.Disconnect()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(c.timeout):
		err = errors.New("stomp disconnect: timed out waiting for receipt")
	}
	if err != nil {
		c.logger.Debug("Disconnect was not acknowledged", "error", err)
	}

	c.cancel()
	_ = c.ws.CloseNow()
	return nil
}
