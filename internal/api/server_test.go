package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/observability"
	"github.com/photoscale/photoscale/internal/session"
)

type nopExtractor struct{}

func (nopExtractor) ExtractFile(context.Context, string) (*metadata.DroneTelemetry, error) {
	return &metadata.DroneTelemetry{}, nil
}

func (nopExtractor) Extract(context.Context, []byte, string) (*metadata.DroneTelemetry, error) {
	return &metadata.DroneTelemetry{}, nil
}

func newTestServer(t *testing.T, settings *conf.Settings, opts ...ServerOption) *Server {
	t.Helper()
	if settings == nil {
		settings = conf.Defaults()
	}
	manager := session.NewManager(nopExtractor{}, nil, session.WithLogger(logger.NewDiscardLogger()))
	opts = append([]ServerOption{WithLogger(logger.NewDiscardLogger()), WithCalibrator(manager)}, opts...)
	s, err := New(settings, opts...)
	require.NoError(t, err)
	return s
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	t.Parallel()

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	s := newTestServer(t, nil, WithMetrics(m))

	rec := serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = serve(s, http.MethodGet, "/api/v1/coins")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")

	rec = serve(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServerWithoutMetrics(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	rec := serve(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerRequiresCalibrator(t *testing.T) {
	t.Parallel()

	_, err := New(conf.Defaults(), WithLogger(logger.NewDiscardLogger()))
	require.Error(t, err)
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	s := conf.Defaults()
	s.WebServer.Host = "127.0.0.1"
	s.WebServer.Port = "9090"
	s.WebServer.MaxUploadSize = 32 << 20

	cfg := ConfigFromSettings(s)
	assert.Equal(t, "127.0.0.1:9090", cfg.Address())
	assert.Equal(t, "32832K", cfg.BodyLimit)
	require.NoError(t, cfg.Validate())
	assert.True(t, strings.Contains(cfg.String(), "127.0.0.1:9090"))

	cfg.Port = ""
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ReadTimeout = 0
	require.Error(t, cfg.Validate())
	assert.Equal(t, ":8080", DefaultConfig().Address())
}

func TestServerRunAndShutdown(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	settings := conf.Defaults()
	settings.WebServer.Host = "127.0.0.1"
	settings.WebServer.Port = port
	s := newTestServer(t, settings)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:" + port + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
