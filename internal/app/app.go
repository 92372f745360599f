package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/twinlink-server/internal/auth"
	"github.com/vovakirdan/twinlink-server/internal/config"
	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/events"
	"github.com/vovakirdan/twinlink-server/internal/store"
	"github.com/vovakirdan/twinlink-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/twinlink-server/internal/transport/http"
)

// TokenTTL is the lifetime of tokens minted by this service.
const TokenTTL = 24 * time.Hour

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Directory
	source          events.Source
	log             *zerolog.Logger
}

// JWTConfig builds the token settings from configuration.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      TokenTTL,
	}
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	opts := core.HubOptions{}
	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		a.store = st
		opts.Members = st
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("directory store initialized")
	}
	if cfg.SignalPolicy == config.SignalPolicyConnected {
		opts.Policy = core.ConnectedOnly(a.store)
	}

	source, err := newEventSource(cfg, logger)
	if err != nil {
		a.cleanup()
		return nil, err
	}
	a.source = source

	authService := auth.NewService(JWTConfig(cfg), cfg.SessionCookie)

	a.hub = core.NewHub(logger, opts)
	a.server = transporthttp.NewServer(a.hub, authService, a.store, cfg, logger)

	logger.Info().
		Str("signal_policy", cfg.SignalPolicy).
		Str("event_source", cfg.EventSource).
		Msg("realtime hub configured")

	return a, nil
}

func newEventSource(cfg *config.Config, logger *zerolog.Logger) (events.Source, error) {
	switch cfg.EventSource {
	case config.EventSourceNATS:
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.Subject = cfg.NATSSubject
		src, err := events.NewNATSSource(natsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("init nats source: %w", err)
		}
		return src, nil
	case config.EventSourceRedis:
		src, err := events.NewRedisSource(cfg.RedisAddr, cfg.RedisChannel, logger)
		if err != nil {
			return nil, fmt.Errorf("init redis source: %w", err)
		}
		return src, nil
	default:
		return nil, nil
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	sourceCtx, stopSource := context.WithCancel(ctx)
	defer stopSource()

	var wg sync.WaitGroup
	if a.source != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.source.Run(sourceCtx, a.hub); err != nil {
				a.log.Error().Err(err).Msg("event source stopped")
			}
		}()
	}

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting twinlink server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		stopSource()
		wg.Wait()
		a.hub.Shutdown()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		stopSource()
		wg.Wait()

		a.log.Info().Msg("shutting down http server")
		// Streams and sockets never go idle on their own; closing them lets
		// Shutdown drain the remaining requests.
		a.hub.Shutdown()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the event source, database and other resources.
func (a *App) cleanup() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close event source")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
