package view

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// TypingNotifier forwards "user is typing" to the server at most once per
// window, however fast keystrokes arrive.
type TypingNotifier struct {
	limiter *rate.Limiter
	send    func(ctx context.Context) error
}

// NewTypingNotifier sends through send at most once per window.
func NewTypingNotifier(window time.Duration, send func(ctx context.Context) error) *TypingNotifier {
	return &TypingNotifier{
		limiter: rate.NewLimiter(rate.Every(window), 1),
		send:    send,
	}
}

// Notify reports typing activity. It returns whether a notification was sent.
func (n *TypingNotifier) Notify(ctx context.Context) (bool, error) {
	if !n.limiter.Allow() {
		return false, nil
	}
	if err := n.send(ctx); err != nil {
		return false, err
	}
	return true, nil
}
