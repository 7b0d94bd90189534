package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Party.DefaultMaxMembers)
	assert.Equal(t, 50, cfg.Party.MaxMembersLimit)
	assert.Equal(t, 6, cfg.Party.InviteCodeLength)
	assert.Equal(t, 24*time.Hour, cfg.Party.InviteTTL)
	assert.Equal(t, 8, cfg.Party.MaxCodeAttempts)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.JoinWindow)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("REDIS_PARTY_TTL", "72h")
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("PARTY_INVITE_CODE_LENGTH", "8")
	t.Setenv("RATE_LIMIT_JOIN_REQUESTS", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379/1", cfg.Storage.RedisURL)
	assert.Equal(t, 72*time.Hour, cfg.Storage.RedisPartyTTL)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 8, cfg.Party.InviteCodeLength)
	assert.Equal(t, 3, cfg.RateLimit.JoinRequests)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage", map[string]string{"STORAGE_TYPE": "mongo"}},
		{"redis without url", map[string]string{"STORAGE_TYPE": "redis"}},
		{"postgres without dsn", map[string]string{"STORAGE_TYPE": "postgres"}},
		{"production without secret", map[string]string{"CONVOY_ENV": "production"}},
		{"default above limit", map[string]string{"PARTY_DEFAULT_MAX_MEMBERS": "60"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad port", map[string]string{"SERVER_PORT": "eighty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer

	LogConfig{Level: "info", Format: "text"}.NewLogger(&buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	LogConfig{Level: "info", Format: "json"}.NewLogger(&buf).Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())
}
