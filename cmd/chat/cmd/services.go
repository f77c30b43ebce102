package cmd

import (
	"errors"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/nfrund/chatroom/internal/app"
	"github.com/nfrund/chatroom/internal/config"
	"github.com/nfrund/chatroom/internal/domain"
	"github.com/nfrund/chatroom/internal/logging"
	"github.com/nfrund/chatroom/internal/session"
)

var (
	injector *do.RootScope
	deps     *app.Dependencies
)

// services loads the configuration and resolves the client's services once
// per process.
func services() (*app.Dependencies, error) {
	if deps != nil {
		return deps, nil
	}

	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	logging.NewWithWriter(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	injector = app.NewInjector(cfg, nil)
	resolved, err := app.Resolve(injector)
	if err != nil {
		return nil, err
	}
	deps = resolved
	return deps, nil
}

// requireLogin guards commands that need a stored session.
func requireLogin(*cobra.Command, []string) error {
	d, err := services()
	if err != nil {
		return err
	}
	if _, err := session.RequireIdentity(d.Sessions); err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			return errors.New("not logged in, run 'chat login' first")
		}
		return err
	}
	return nil
}

// identity returns the stored identity; only call it behind requireLogin.
func identity() (*domain.Identity, error) {
	d, err := services()
	if err != nil {
		return nil, err
	}
	return session.RequireIdentity(d.Sessions)
}
