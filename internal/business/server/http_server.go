package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/authsession"
	"github.com/Geodev122/cogniflow-sub002/internal/config"
	"github.com/Geodev122/cogniflow-sub002/internal/profile"
)

// createHTTPServer creates an API http server using the given config
func createHTTPServer(_ context.Context, cfg *config.Config, manager *authsession.Manager, profiles *profile.Service) *http.Server {
	api := newAPIHandler(manager, profiles)

	mux := http.NewServeMux()
	mux.Handle("GET /v1/auth/state", withOperation(cfg, "auth-state", api.getState))
	mux.Handle("POST /v1/auth/signin", withOperation(cfg, "auth-signin", api.signIn))
	mux.Handle("POST /v1/auth/signup", withOperation(cfg, "auth-signup", api.signUp))
	mux.Handle("POST /v1/auth/signout", withOperation(cfg, "auth-signout", api.signOut))
	mux.Handle("POST /v1/auth/retry", withOperation(cfg, "auth-retry", api.retry))
	mux.Handle("POST /v1/profile/refresh", withOperation(cfg, "profile-refresh", api.refreshProfile))
	mux.Handle("PATCH /v1/profile", withOperation(cfg, "profile-update", api.updateProfile))
	mux.HandleFunc("GET /v1/ping", pingHandlerFunc(cfg))

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: mux,
	}
}

// StartHTTPServer starts the HTTP server using the given config.
func StartHTTPServer(ctx context.Context, cfg *config.Config, manager *authsession.Manager, profiles *profile.Service) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := createHTTPServer(ctx, cfg, manager, profiles)

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address if provided in the format of network://address.
	// Otherwise use tcp network by default. Some integration tests are easier to implement
	// by binding a listener to a unix socket rather than a TCP port,
	// since we don't need to look up for a free port or scan /proc/net on Linux or call sysctl on macOS
	// to discover which port the process is bound to.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
