package session

import (
	"github.com/nfrund/chatroom/internal/domain"
)

// IdentitySource provides the current identity, nil when logged out.
type IdentitySource interface {
	Current() (*domain.Identity, error)
}

// RequireIdentity returns the current identity or domain.ErrNotAuthenticated.
func RequireIdentity(src IdentitySource) (*domain.Identity, error) {
	id, err := src.Current()
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return id, nil
}
