// Package observability wires the Prometheus registry shared by all components.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/photoscale/photoscale/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry    *prometheus.Registry
	Calibration *metrics.CalibrationMetrics
	Elevation   *metrics.ElevationMetrics
	MQTT        *metrics.MQTTMetrics
}

// NewMetrics creates a registry with process and Go runtime collectors and
// all application collectors registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	calibrationMetrics, err := metrics.NewCalibrationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create calibration metrics: %w", err)
	}

	elevationMetrics, err := metrics.NewElevationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create elevation metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	return &Metrics{
		registry:    registry,
		Calibration: calibrationMetrics,
		Elevation:   elevationMetrics,
		MQTT:        mqttMetrics,
	}, nil
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
