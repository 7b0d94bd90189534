package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/convoy/internal/api"
	"github.com/mcoot/convoy/internal/factory"
	"github.com/mcoot/convoy/internal/services/auth"
)

func TestClientDecodesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"PARTY_FULL","kind":"RESOURCE_EXHAUSTED","message":"party is full"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL+"/", "tok").Post(context.Background(), "/api/v1/parties/p/join", map[string]string{"invite_code": "ABCDEF"}, nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "PARTY_FULL", apiErr.Code)
	assert.Equal(t, "RESOURCE_EXHAUSTED", apiErr.Kind)
	assert.Equal(t, "party is full (PARTY_FULL)", err.Error())
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_MEMBER","kind":"PERMISSION_DENIED","message":"nope"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Get(context.Background(), "/api/v1/parties/p", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientRetriesFailedReads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Get(context.Background(), "/api/v1/health", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoadTokenTrimsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("abc\n"), 0600))

	c := &Config{TokenFile: path}
	require.NoError(t, c.LoadToken())
	assert.Equal(t, "abc", c.Token)

	missing := &Config{TokenFile: filepath.Join(t.TempDir(), "nope")}
	require.NoError(t, missing.LoadToken())
	assert.Empty(t, missing.Token)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{ServerURL: "http://localhost:8080", Output: OutputText}, false},
		{"https json", Config{ServerURL: "https://convoy.example.com", Output: OutputJSON}, false},
		{"no scheme", Config{ServerURL: "localhost:8080", Output: OutputText}, true},
		{"ftp", Config{ServerURL: "ftp://host", Output: OutputText}, true},
		{"yaml output", Config{ServerURL: "http://host", Output: "yaml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()

	app, err := factory.New(context.Background(), factory.Config{
		AuthConfig: auth.Config{Secret: "cli-test-secret", BcryptCost: 4},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:       nil,
		AuthService:  app.AuthService,
		PartyService: app.PartyService,
		Storage:      app.Storage,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// run executes the CLI with args and returns what it printed
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	err := cmd.Execute()
	return buf.String(), err
}

func TestPartyCommands(t *testing.T) {
	srv := newTestAPI(t)
	dir := t.TempDir()
	hostToken := filepath.Join(dir, "host")
	guestToken := filepath.Join(dir, "guest")
	qrPath := filepath.Join(dir, "invite.png")

	global := func(tokenFile string, args ...string) []string {
		return append([]string{"--server", srv.URL, "--token-file", tokenFile, "--token", "", "-o", "json"}, args...)
	}

	_, err := run(t, global(hostToken, "user", "guest", "--name", "Host")...)
	require.NoError(t, err)
	_, err = os.Stat(hostToken)
	require.NoError(t, err)

	out, err := run(t, global(hostToken, "party", "create", "--name", "Road trip", "--max-members", "3", "--qr-out", qrPath)...)
	require.NoError(t, err)

	var created CreatedParty
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Len(t, created.InviteCode, 6)

	png, err := os.ReadFile(qrPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	_, err = run(t, global(guestToken, "user", "guest", "--name", "Rider")...)
	require.NoError(t, err)

	_, err = run(t, global(guestToken, "party", "join", created.PartyID, "--code", "WRONG9")...)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "INVALID_INVITE_CODE", apiErr.Code)

	_, err = run(t, global(guestToken, "party", "join", created.PartyID, "--code", created.InviteCode)...)
	require.NoError(t, err)

	out, err = run(t, global(guestToken, "party", "members", created.PartyID)...)
	require.NoError(t, err)
	var members MembersResult
	require.NoError(t, json.Unmarshal([]byte(out), &members))
	assert.Len(t, members.Members, 2)

	_, err = run(t, global(guestToken, "party", "disband", created.PartyID)...)
	require.Error(t, err)

	_, err = run(t, global(hostToken, "party", "disband", created.PartyID)...)
	require.NoError(t, err)
}
