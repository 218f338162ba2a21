package mqtt

import (
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/observability/metrics"
)

func newTestMetrics(t *testing.T) *metrics.MQTTMetrics {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

// closedPort returns a loopback address nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	c, err := NewClient(Config{Broker: "tcp://127.0.0.1:1883"}, nil)
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
	c.Disconnect()
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	s := conf.Defaults()
	s.Main.Name = "field-kit"
	s.MQTT.Broker = "tcp://broker:1883"
	s.MQTT.Topic = "survey"
	s.MQTT.QoS = 1
	s.MQTT.Retain = true

	cfg := ConfigFromSettings(s)
	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, "field-kit", cfg.ClientID)
	assert.Equal(t, "survey", cfg.Topic)
	assert.Equal(t, byte(1), cfg.QoS)
	assert.True(t, cfg.Retain)
	assert.Equal(t, DefaultConfig().PublishTimeout, cfg.PublishTimeout)

	s.MQTT.QoS = 7
	s.MQTT.Topic = ""
	cfg = ConfigFromSettings(s)
	assert.Zero(t, cfg.QoS)
	assert.Equal(t, DefaultTopic, cfg.Topic)
}

func TestPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	c, err := NewClient(Config{Broker: "tcp://127.0.0.1:1883"}, m)
	require.NoError(t, err)

	err = c.Publish(t.Context(), "photoscale/calibration", []byte(`{}`))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.MessagesDelivered), 0)
}

func TestConnectRefusedAndCooldown(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Broker = "tcp://" + closedPort(t)
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReconnectCooldown = time.Hour

	m := newTestMetrics(t)
	c, err := NewClient(cfg, m)
	require.NoError(t, err)

	err = c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 0, testutil.ToFloat64(m.ConnectionStatus), 0)

	err = c.Connect(t.Context())
	require.ErrorContains(t, err, "too recent")
}
