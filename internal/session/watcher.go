package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/nfrund/chatroom/internal/domain"
)

// Change reports the identity after the session file changed. Identity is
// nil when the session ended.
type Change struct {
	Identity *domain.Identity
}

// LoggedIn reports whether the change left a user logged in.
func (c Change) LoggedIn() bool {
	return c.Identity != nil
}

// Watch reports identity changes made to the session file by any process,
// such as a logout from another terminal. It needs the store to live on the
// OS filesystem. Only transitions are reported: a rewrite of the same
// identity is not. The channel is closed when ctx ends.
func (s *Store) Watch(ctx context.Context) (<-chan Change, error) {
	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file system watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}

	last, err := s.Current()
	if err != nil {
		watcher.Close()
		return nil, err
	}

	changes := make(chan Change, 1)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != FileName {
					continue
				}

				id, err := s.Reload()
				if err != nil {
					s.logger.Error("Failed to reload session", "error", err)
					continue
				}
				if sameIdentity(last, id) {
					continue
				}
				last = id
				s.logger.Debug("Session changed", "event", event.Op.String(), "logged_in", id != nil)

				select {
				case changes <- Change{Identity: id}:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("File system watcher error", "error", err)
			}
		}
	}()

	return changes, nil
}

func sameIdentity(a, b *domain.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Username == b.Username && a.Token == b.Token
}
