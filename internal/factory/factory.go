package factory

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/convoy/internal/config"
	"github.com/mcoot/convoy/internal/dependencies/clock"
	"github.com/mcoot/convoy/internal/dependencies/random"
	"github.com/mcoot/convoy/internal/services/auth"
	"github.com/mcoot/convoy/internal/services/invite"
	"github.com/mcoot/convoy/internal/services/party"
	"github.com/mcoot/convoy/internal/storage"
	"github.com/mcoot/convoy/internal/storage/memory"
	pgstorage "github.com/mcoot/convoy/internal/storage/postgres"
	redisstorage "github.com/mcoot/convoy/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	InviteGenerator *invite.Generator
	PartyService    *party.Service
	AuthService     *auth.Service

	closer io.Closer
}

// Close releases storage connections
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// DatabaseURL is the postgres DSN (required if StorageType is "postgres")
	DatabaseURL string
	// Migrate creates the postgres schema on startup
	Migrate bool

	AuthConfig   auth.Config
	PartyConfig  party.Config
	InviteConfig invite.Config
	QRSize       int
}

// ConfigFrom maps process configuration onto factory configuration
func ConfigFrom(c *config.Config, logger *slog.Logger) Config {
	return Config{
		Logger:      logger,
		StorageType: c.Storage.Type,
		RedisConfig: &redisstorage.Config{
			URL:          c.Storage.RedisURL,
			PoolSize:     c.Storage.RedisPoolSize,
			MinIdleConns: c.Storage.RedisMinIdleConns,
			GuestUserTTL: c.Storage.RedisGuestUserTTL,
			PartyTTL:     c.Storage.RedisPartyTTL,
		},
		DatabaseURL: c.Storage.DatabaseURL,
		Migrate:     c.Storage.DatabaseMigrate,
		AuthConfig: auth.Config{
			Secret:   c.Auth.Secret,
			TokenTTL: c.Auth.TokenTTL,
			Issuer:   c.Auth.Issuer,
		},
		PartyConfig: party.Config{
			DefaultMaxMembers:    c.Party.DefaultMaxMembers,
			MaxMembersLimit:      c.Party.MaxMembersLimit,
			InviteTTL:            c.Party.InviteTTL,
			MaxCodeAttempts:      c.Party.MaxCodeAttempts,
			MaxUpdateAttempts:    c.Party.MaxUpdateAttempts,
			RetryInitialInterval: c.Party.RetryInitialInterval,
			RetryMaxInterval:     c.Party.RetryMaxInterval,
		},
		InviteConfig: invite.Config{
			CodeLength:       c.Party.InviteCodeLength,
			TimePrefixLength: c.Party.InviteTimePrefix,
		},
		QRSize: c.Party.QRSize,
	}
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	// Create storage based on type
	var store storage.Storage
	var closer io.Closer
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.NewWithClock(clk)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store, closer = redisStore, redisStore
	case StorageTypePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DatabaseURL required when StorageType is postgres")
		}
		pgStore, err := pgstorage.Open(ctx, cfg.DatabaseURL, clk)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := pgStore.Migrate(ctx); err != nil {
				_ = pgStore.Close()
				return nil, err
			}
		}
		store, closer = pgStore, pgStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	authCfg := cfg.AuthConfig
	if authCfg.Secret == "" {
		secret, err := rnd.Bytes(32)
		if err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		authCfg.Secret = hex.EncodeToString(secret)
		logger.Warn("no token secret configured; using an ephemeral one, tokens will not survive a restart")
	}

	app := newWithDependencies(store, clk, rnd, invite.NewPNGEncoder(cfg.QRSize), dependencies{
		auth:   authCfg,
		party:  cfg.PartyConfig,
		invite: cfg.InviteConfig,
	}, logger)
	app.closer = closer

	logger.Info("application wired", slog.String("storage", storageType))
	return app, nil
}

type dependencies struct {
	auth   auth.Config
	party  party.Config
	invite invite.Config
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, qr invite.QREncoder, deps dependencies, logger *slog.Logger) *App {
	// Create services
	generator := invite.New(rnd, clk, qr, logger, deps.invite)
	partyService := party.New(store, generator, clk, logger, deps.party)
	authService := auth.New(store, clk, logger, deps.auth)

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		InviteGenerator: generator,
		PartyService:    partyService,
		AuthService:     authService,
	}
}
