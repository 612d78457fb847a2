package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fitlink/chat-broker/internal/cache"
	"github.com/fitlink/chat-broker/internal/config"
	"github.com/fitlink/chat-broker/internal/handler"
	"github.com/fitlink/chat-broker/internal/hub"
	"github.com/fitlink/chat-broker/internal/relay"
	"github.com/fitlink/chat-broker/internal/repository"
	"github.com/fitlink/chat-broker/internal/service"
	"github.com/fitlink/chat-broker/pkg/database"
	"github.com/fitlink/chat-broker/pkg/jwt"
	pkglog "github.com/fitlink/chat-broker/pkg/log"
	"github.com/fitlink/chat-broker/pkg/pubsub"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket broker",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		logger.Info().Msg("database migration completed")
	}

	gateway, err := repository.NewGormGateway(db)
	if err != nil {
		return err
	}

	tokens, err := jwt.NewManager([]byte(cfg.Auth.Secret), cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL, jwt.WithLeeway(cfg.Auth.Leeway))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = pkglog.WithLogger(ctx, logger)

	registry, closeBus, err := newRegistry(ctx, cfg.Broadcast)
	if err != nil {
		return err
	}
	defer closeBus()

	var opts []service.Option
	if cfg.Cache.Enabled {
		roomCache, err := cache.NewRedisRoomCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			return fmt.Errorf("connect redis cache: %w", err)
		}
		defer roomCache.Close()
		opts = append(opts, service.WithRoomCache(roomCache, cfg.Cache.TTL))
		logger.Info().Msg("redis room cache connected")
	}

	chatService := service.NewChatService(tokens, gateway, registry, opts...)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger, "/health"))
	handler.NewWSHandler(chatService, cfg.WebSocket, cfg.Server.AllowedOrigins).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", srv.Addr).
			Str("database", cfg.Database.Driver).
			Str("broadcast", cfg.Broadcast.Driver).
			Msg("chat-broker starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Hijacked sockets are not tracked by the server.
		registry.Close()
		return err
	})

	return g.Wait()
}

// newRegistry builds the in-process hub, or a relay over the configured bus
// when more than one instance serves the same rooms.
func newRegistry(ctx context.Context, cfg pubsub.Config) (hub.Registry, func(), error) {
	if cfg.Driver == pubsub.DriverLocal {
		return hub.New(), func() {}, nil
	}

	bus, err := pubsub.NewPubSub(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s bus: %w", cfg.Driver, err)
	}

	rl := relay.New(hub.New(), bus, uuid.New().String())
	if err := rl.Start(ctx); err != nil {
		_ = bus.Close()
		return nil, nil, err
	}

	closeBus := func() {
		rl.Close()
		if err := bus.Close(); err != nil {
			l := pkglog.L()
			l.Warn().Err(err).Msg("failed to close bus")
		}
	}
	return rl, closeBus, nil
}
