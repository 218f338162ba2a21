package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ElevationMetrics contains Prometheus metrics for the elevation web service client
type ElevationMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheTotal      *prometheus.CounterVec
}

// NewElevationMetrics creates and registers elevation metrics
func NewElevationMetrics(registry *prometheus.Registry) (*ElevationMetrics, error) {
	m := &ElevationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ElevationMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elevation_requests_total",
			Help: "Total number of elevation service requests",
		},
		[]string{"status", "status_code"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elevation_request_duration_seconds",
			Help:    "Time taken by elevation service requests",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
		},
		[]string{"status"},
	)

	m.cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elevation_cache_lookups_total",
			Help: "Elevation cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
}

// Describe implements the Collector interface
func (m *ElevationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.cacheTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *ElevationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.cacheTotal.Collect(ch)
}

// RecordRequest records a finished elevation request
func (m *ElevationMetrics) RecordRequest(status, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(status, statusCode).Inc()
	m.requestDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordCacheLookup records a cache hit or miss
func (m *ElevationMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.cacheTotal.WithLabelValues("miss").Inc()
}
