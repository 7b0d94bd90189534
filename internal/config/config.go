package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvProduction disables .env loading and requires an auth secret
const EnvProduction = "production"

// Config is the server configuration, read from the environment
type Config struct {
	Environment string `env:"CONVOY_ENV" envDefault:"development"`

	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Storage   StorageConfig
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Party     PartyConfig     `envPrefix:"PARTY_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type string `env:"STORAGE_TYPE" envDefault:"memory"`

	RedisURL          string        `env:"REDIS_URL"`
	RedisPoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisGuestUserTTL time.Duration `env:"REDIS_GUEST_USER_TTL" envDefault:"24h"`
	RedisPartyTTL     time.Duration `env:"REDIS_PARTY_TTL" envDefault:"0s"`

	DatabaseURL     string `env:"DATABASE_URL"`
	DatabaseMigrate bool   `env:"DATABASE_MIGRATE" envDefault:"true"`
}

// AuthConfig configures token issuance
type AuthConfig struct {
	Secret   string        `env:"SECRET"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	Issuer   string        `env:"ISSUER" envDefault:"convoy"`
}

// PartyConfig configures party limits and invite codes
type PartyConfig struct {
	DefaultMaxMembers    int           `env:"DEFAULT_MAX_MEMBERS" envDefault:"10"`
	MaxMembersLimit      int           `env:"MAX_MEMBERS_LIMIT" envDefault:"50"`
	InviteCodeLength     int           `env:"INVITE_CODE_LENGTH" envDefault:"6"`
	InviteTimePrefix     int           `env:"INVITE_TIME_PREFIX" envDefault:"0"`
	InviteTTL            time.Duration `env:"INVITE_TTL" envDefault:"24h"`
	QRSize               int           `env:"QR_SIZE" envDefault:"256"`
	MaxCodeAttempts      int           `env:"MAX_CODE_ATTEMPTS" envDefault:"8"`
	MaxUpdateAttempts    int           `env:"MAX_UPDATE_ATTEMPTS" envDefault:"5"`
	RetryInitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL" envDefault:"10ms"`
	RetryMaxInterval     time.Duration `env:"RETRY_MAX_INTERVAL" envDefault:"200ms"`
}

// RateLimitConfig configures per-IP limiting of invite code attempts
type RateLimitConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	JoinRequests int           `env:"JOIN_REQUESTS" envDefault:"10"`
	JoinWindow   time.Duration `env:"JOIN_WINDOW" envDefault:"1m"`
}

// Load reads configuration from the environment. Outside production a
// .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	if os.Getenv("CONVOY_ENV") != EnvProduction {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory":
	case "redis":
		if c.Storage.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis or postgres", c.Storage.Type)
	}

	if c.IsProduction() && c.Auth.Secret == "" {
		return errors.New("AUTH_SECRET required in production")
	}
	if c.Party.DefaultMaxMembers > c.Party.MaxMembersLimit {
		return fmt.Errorf("PARTY_DEFAULT_MAX_MEMBERS (%d) exceeds PARTY_MAX_MEMBERS_LIMIT (%d)",
			c.Party.DefaultMaxMembers, c.Party.MaxMembersLimit)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether the process runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// SlogLevel parses the configured log level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", l.Level, err)
	}
	return level, nil
}

// NewLogger builds the process logger from the log configuration
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
