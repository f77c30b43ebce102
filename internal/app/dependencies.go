package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/nfrund/chatroom/internal/auth"
	"github.com/nfrund/chatroom/internal/chat"
	"github.com/nfrund/chatroom/internal/config"
	"github.com/nfrund/chatroom/internal/session"
)

// Dependencies holds the services a command needs. It is resolved from the
// injector so the CLI does not reach into the container itself.
type Dependencies struct {
	Config   *config.Config
	Sessions *session.Store
	Auth     *auth.Client
	Metrics  *prometheus.Registry
}

// Resolve builds the services every command uses. The chat manager is left
// out; only the room needs it, see ChatManager.
func Resolve(i do.Injector) (*Dependencies, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	store, err := do.Invoke[*session.Store](i)
	if err != nil {
		return nil, err
	}
	client, err := do.Invoke[*auth.Client](i)
	if err != nil {
		return nil, err
	}
	reg, err := do.Invoke[*prometheus.Registry](i)
	if err != nil {
		return nil, err
	}
	return &Dependencies{
		Config:   cfg,
		Sessions: store,
		Auth:     client,
		Metrics:  reg,
	}, nil
}

// ChatManager returns the realtime session manager.
func ChatManager(i do.Injector) (*chat.Manager, error) {
	return do.Invoke[*chat.Manager](i)
}
