package serve

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/testutil"
)

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())
	return port
}

func TestRunServesCalibrationsUntilCancelled(t *testing.T) {
	settings := testutil.Settings(t)
	settings.WebServer.Host = "127.0.0.1"
	settings.WebServer.Port = freePort(t)
	base := "http://127.0.0.1:" + settings.WebServer.Port

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, settings, buildinfo.NewContext("test", "", "")) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, testutil.DefaultTestTimeout, 20*time.Millisecond)

	body := `{"coin_id":"us-quarter","zoom_scale":1,"circle_radius":97,"circle_center_x":300,"circle_center_y":200}`
	resp, err := http.Post(base+"/api/v1/calibrations/coin", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/api/v1/calibrations")
	require.NoError(t, err)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	_ = resp.Body.Close()
	assert.Equal(t, 1, list.Count, "completed calibrations are stored")

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, testutil.WaitForError(t, done, testutil.DefaultTestTimeout, "server did not shut down"))
}

func TestRunRejectsBrokenSettings(t *testing.T) {
	settings := testutil.Settings(t)
	settings.MQTT.Enabled = true
	settings.MQTT.Broker = ""

	err := Run(t.Context(), settings, nil)
	require.Error(t, err)
}
