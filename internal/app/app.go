package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/backend"
	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/store"
	"github.com/vovakirdan/wirerelay/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirerelay/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *http.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.BlockStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	policy, err := core.ParseDisconnectPolicy(cfg.Presence.DisconnectPolicy)
	if err != nil {
		return nil, fmt.Errorf("presence config: %w", err)
	}

	var moderators []core.Moderator
	opts := []core.Option{
		core.WithLogger(logger),
		core.WithDisconnectPolicy(policy, cfg.Presence.GracePeriod),
		core.WithNotifyOnDisconnect(cfg.Presence.NotifyLogoutOnDisconnect),
	}

	var st store.BlockStore
	if cfg.Store.Path != "" {
		sqliteStore, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		st = sqliteStore
		moderators = append(moderators, sqliteStore)
		opts = append(opts, core.WithBlocklist(sqliteStore))
		logger.Info().Str("db_path", cfg.Store.Path).Msg("block list initialized")
	}

	if cfg.Moderation.URL != "" {
		moderators = append(moderators, backend.NewModerationClient(cfg.Moderation.URL, cfg.Moderation.Timeout))
		logger.Info().Str("url", cfg.Moderation.URL).Msg("moderation backend enabled")
	}
	opts = append(opts, core.WithModerator(core.AnyOf(moderators...), cfg.Moderation.Timeout))

	if cfg.Accounts.LogoutURL != "" {
		opts = append(opts, core.WithAccounts(backend.NewAccountsClient(cfg.Accounts.LogoutURL, cfg.Accounts.Timeout), cfg.Accounts.Timeout))
		logger.Info().Str("url", cfg.Accounts.LogoutURL).Msg("account service enabled")
	}

	if cfg.Relay.Open() {
		logger.Warn().Msg("relay API has no credentials configured, backend endpoints are open")
	}

	hub := core.NewHub(opts...)
	server := transporthttp.NewServer(hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup stops the hub, then closes the store it may still write to.
func (a *App) cleanup() {
	a.hub.Close()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
