package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/whiteboard-server/internal/auth"
	"github.com/vovakirdan/whiteboard-server/internal/bus"
	"github.com/vovakirdan/whiteboard-server/internal/config"
	"github.com/vovakirdan/whiteboard-server/internal/core"
	"github.com/vovakirdan/whiteboard-server/internal/metrics"
	"github.com/vovakirdan/whiteboard-server/internal/store"
	"github.com/vovakirdan/whiteboard-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/whiteboard-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	bus             *bus.RedisBus
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	opts := core.HubOptions{
		Saver:       st,
		SaveTimeout: cfg.SnapshotTimeout,
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		opts.Recorder = m
	}

	var redisBus *bus.RedisBus
	if cfg.RedisAddr != "" {
		redisBus, err = bus.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisChannelPrefix, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
		opts.Bus = redisBus
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("cross-instance relay enabled")
	}

	hub := core.NewHub(logger, opts)
	server := transporthttp.NewServer(hub, authService, st, cfg, m, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		bus:             redisBus,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	// The hub outlives ctx so that handlers can unregister during shutdown.
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()
	defer func() {
		stopHub()
		<-hubDone
		a.cleanup()
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis bus")
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
