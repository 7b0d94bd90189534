package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/convoy/internal/api"
	"github.com/mcoot/convoy/internal/api/middleware"
	"github.com/mcoot/convoy/internal/config"
	"github.com/mcoot/convoy/internal/factory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()

	// Create application factory
	app, err := factory.New(ctx, factory.ConfigFrom(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("storage close failed", slog.String("error", err.Error()))
		}
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:       logger,
		AuthService:  app.AuthService,
		PartyService: app.PartyService,
		Storage:      app.Storage,
		JoinLimit: middleware.RateLimitConfig{
			Enabled:  cfg.RateLimit.Enabled,
			Requests: cfg.RateLimit.JoinRequests,
			Window:   cfg.RateLimit.JoinWindow,
		},
	})

	// Create server
	server := api.NewServer(router, cfg.Server, logger)

	logger.Info("server configured",
		slog.String("addr", server.Addr()),
		slog.String("env", cfg.Environment),
		slog.String("storage", cfg.Storage.Type),
	)

	// Serve until SIGINT or SIGTERM, then shut down gracefully
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
