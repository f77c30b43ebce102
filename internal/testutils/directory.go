package testutils

import (
	"context"
	"sync"
)

// StaticDirectory answers OnlineUsers with a fixed list. When Release is
// set, answers wait for it to be closed.
type StaticDirectory struct {
	Users   []string
	Err     error
	Release chan struct{}

	mu    sync.Mutex
	calls int
}

// OnlineUsers implements the chat directory.
func (d *StaticDirectory) OnlineUsers(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.Release != nil {
		select {
		case <-d.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return append([]string(nil), d.Users...), nil
}

// Calls returns how many times OnlineUsers was called.
func (d *StaticDirectory) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
