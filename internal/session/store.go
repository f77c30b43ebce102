// Package session persists the authenticated identity between runs and
// guards the commands that need one.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/nfrund/chatroom/internal/domain"
)

// FileName is the key the identity is stored under.
const FileName = "current_user.json"

// Store holds the current identity and mirrors it to <dir>/current_user.json.
// The zero value is not usable; use NewStore.
type Store struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	loaded  bool
	current *domain.Identity
}

// NewStore creates a store rooted at dir on fs. Nothing is read until the
// first call to Current.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{
		fs:     fs,
		dir:    dir,
		logger: slog.Default().With("component", "session"),
	}
}

// Path returns the file the identity is persisted to.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Dir returns the directory holding the session file.
func (s *Store) Dir() string {
	return s.dir
}

// Current returns a copy of the stored identity, or nil when logged out.
// The file is read on first use only.
func (s *Store) Current() (*domain.Identity, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.current.Clone(), nil
	}
	s.mu.RUnlock()
	return s.Reload()
}

// Reload re-reads the identity from disk, replacing the cached one.
func (s *Store) Reload() (*domain.Identity, error) {
	id, err := s.read()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	s.loaded = true
	return id.Clone(), nil
}

// read returns nil without error when no usable identity is stored. An
// unreadable or invalid file counts as logged out.
func (s *Store) read() (*domain.Identity, error) {
	data, err := afero.ReadFile(s.fs, s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var id domain.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		s.logger.Warn("Ignoring corrupt session file", "path", s.Path(), "error", err)
		return nil, nil
	}
	if err := id.Validate(); err != nil {
		s.logger.Warn("Ignoring invalid session file", "path", s.Path(), "error", err)
		return nil, nil
	}
	return &id, nil
}

// Save validates and persists id, replacing any previous identity.
func (s *Store) Save(id *domain.Identity) error {
	if id == nil {
		return errors.New("session: nil identity")
	}
	if err := id.Validate(); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.Path() + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := s.fs.Rename(tmp, s.Path()); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write session: %w", err)
	}

	s.current = id.Clone()
	s.loaded = true
	s.logger.Debug("Session saved", "username", id.Username)
	return nil
}

// Clear forgets the identity and removes the file. Clearing an empty store
// is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.loaded = true
	if err := s.fs.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	s.logger.Debug("Session cleared")
	return nil
}
