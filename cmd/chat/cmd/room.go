package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nfrund/chatroom/internal/app"
	"github.com/nfrund/chatroom/internal/view"
)

var roomMetricsAddr string

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Join the public room",
	Long: `Join the public room and chat until /quit or Ctrl-C.

The client keeps retrying while the server is unreachable. Logging out from
another terminal ends the room. Type /help inside the room for commands.`,
	Args:    cobra.NoArgs,
	PreRunE: requireLogin,
	RunE:    runRoom,
}

func runRoom(cmd *cobra.Command, _ []string) error {
	d, err := services()
	if err != nil {
		return err
	}
	id, err := identity()
	if err != nil {
		return err
	}
	manager, err := app.ChatManager(injector)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if roomMetricsAddr != "" {
		serveMetrics(ctx, roomMetricsAddr, d.Metrics)
	}

	changes, err := d.Sessions.Watch(ctx)
	if err != nil {
		slog.Warn("Not watching the session, logouts elsewhere go unnoticed", "error", err)
	} else {
		go func() {
			for change := range changes {
				if !change.LoggedIn() || change.Identity.Username != id.Username {
					fmt.Fprintln(cmd.ErrOrStderr(), "Session ended, leaving the room")
					cancel()
					return
				}
			}
		}()
	}

	if err := manager.Start(id); err != nil {
		return err
	}
	defer manager.Close()

	terminal := view.NewTerminal(manager, d.Auth, id.Username, cmd.InOrStdin(), cmd.OutOrStdout(),
		view.WithTypingWindow(d.Config.TypingExpiry/2),
	)
	return terminal.Run(ctx)
}

// serveMetrics exposes the client's metrics on addr until ctx ends.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown failed", "error", err)
		}
	}()
}

func init() {
	rootCmd.AddCommand(roomCmd)
	roomCmd.Flags().StringVar(&roomMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. localhost:9090")
}
