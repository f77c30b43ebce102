package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the chat client. These provide consistent, checkable
// errors for the failures callers are expected to branch on.
var (
	ErrSessionExpired     = errors.New("session expired, please log in again")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotConnected       = errors.New("not connected to the chat server")
	ErrEmptyMessage       = errors.New("message content is empty")
	ErrNoRecipient        = errors.New("private message has no recipient")
	ErrSelfConversation   = errors.New("cannot open a conversation with yourself")
	ErrClosed             = errors.New("chat session is closed")
	ErrInvalidCredentials = errors.New("invalid credentials provided")
)

// AuthError is returned when the server rejects credentials or a signup
// request. Message is safe to show to the user.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrInvalidCredentials) match a rejected login.
func (e *AuthError) Is(target error) bool {
	return target == ErrInvalidCredentials && e.StatusCode == http.StatusUnauthorized
}

// NetworkError means a request was made but no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: no response from server: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError carries any other non-2xx response.
type HTTPError struct {
	Op         string
	StatusCode int
	Reason     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Reason, e.StatusCode)
}

// ConnectionError is a failed realtime handshake. It drives the reconnect
// loop and is not surfaced as a hard failure.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// HandlerError wraps a failure raised by a registered private-message handler.
type HandlerError struct {
	Partner string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("private message handler for %q: %v", e.Partner, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
