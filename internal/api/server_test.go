package api_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/convoy/internal/api"
	"github.com/mcoot/convoy/internal/config"
	"github.com/mcoot/convoy/internal/testutil"
)

func TestServerServesUntilCancelled(t *testing.T) {
	ts := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := api.NewServer(ts.handler, config.ServerConfig{
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, testutil.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerAddr(t *testing.T) {
	server := api.NewServer(http.NotFoundHandler(), config.ServerConfig{Host: "127.0.0.1", Port: 9090}, testutil.NopLogger())
	assert.Equal(t, "127.0.0.1:9090", server.Addr())

	server = api.NewServer(http.NotFoundHandler(), config.ServerConfig{Port: 8080}, testutil.NopLogger())
	assert.Equal(t, ":8080", server.Addr())
}
