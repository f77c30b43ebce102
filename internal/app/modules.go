// Package app wires the chat client's services into a dependency container.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"

	"github.com/nfrund/chatroom/internal/auth"
	"github.com/nfrund/chatroom/internal/chat"
	"github.com/nfrund/chatroom/internal/config"
	"github.com/nfrund/chatroom/internal/pubsub"
	"github.com/nfrund/chatroom/internal/session"
	"github.com/nfrund/chatroom/internal/websocket"
)

// NewInjector registers every service of the client. Services are built
// lazily on first use, so commands that never open the room never dial the
// broker. fs is where the session file lives; nil means the OS filesystem.
func NewInjector(cfg *config.Config, fs afero.Fs) *do.RootScope {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	i := do.New()
	do.ProvideValue(i, cfg)
	do.ProvideValue(i, fs)
	do.Provide(i, provideRegistry)
	do.Provide(i, provideSessionStore)
	do.Provide(i, provideAuthClient)
	do.Provide(i, provideTransport)
	do.Provide(i, provideChatManager)
	return i
}

func provideRegistry(do.Injector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg, nil
}

func provideSessionStore(i do.Injector) (*session.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	fs := do.MustInvoke[afero.Fs](i)
	return session.NewStore(fs, cfg.SessionDir), nil
}

func provideAuthClient(i do.Injector) (*auth.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	store, err := do.Invoke[*session.Store](i)
	if err != nil {
		return nil, err
	}
	client, err := auth.New(cfg.ServerURL, store, auth.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, fmt.Errorf("create auth client: %w", err)
	}
	return client, nil
}

func provideTransport(i do.Injector) (pubsub.Transport, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return websocket.NewTransport(cfg.BrokerURL), nil
}

func provideChatManager(i do.Injector) (*chat.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	transport, err := do.Invoke[pubsub.Transport](i)
	if err != nil {
		return nil, err
	}
	client, err := do.Invoke[*auth.Client](i)
	if err != nil {
		return nil, err
	}
	reg := do.MustInvoke[*prometheus.Registry](i)

	return chat.NewManager(transport, client,
		chat.WithEndpoint(cfg.BrokerURL),
		chat.WithRetryInterval(cfg.RetryInterval),
		chat.WithTypingExpiry(cfg.TypingExpiry),
		chat.WithConnectTimeout(cfg.RequestTimeout),
		chat.WithMetrics(reg),
	), nil
}
