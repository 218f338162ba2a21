package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks delivery of calibration events to the broker.
type MQTTMetrics struct {
	ConnectionStatus  prometheus.Gauge
	MessagesDelivered prometheus.Counter
	Errors            prometheus.Counter
	MessageSize       prometheus.Histogram
	PublishLatency    prometheus.Histogram
}

// NewMQTTMetrics creates the event publishing metrics and registers them.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "calibration_events_broker_connected",
			Help: "1 while the event broker connection is up",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calibration_events_published_total",
			Help: "Calibration events handed to the broker",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calibration_events_publish_errors_total",
			Help: "Calibration events that could not be published",
		}),
		// a completion event with a drone source is a few hundred bytes
		MessageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calibration_event_size_bytes",
			Help:    "Encoded size of published calibration events",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calibration_event_publish_seconds",
			Help:    "Time until the broker acknowledged a calibration event",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MQTTMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.ConnectionStatus, m.MessagesDelivered, m.Errors, m.MessageSize, m.PublishLatency}
}

// UpdateConnectionStatus sets the connection gauge.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if m == nil {
		return
	}
	var v float64
	if connected {
		v = 1
	}
	m.ConnectionStatus.Set(v)
}

// RecordPublish records one publish attempt. Size and latency are only
// observed for delivered events.
func (m *MQTTMetrics) RecordPublish(sizeBytes int, latency time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Errors.Inc()
		return
	}
	m.MessagesDelivered.Inc()
	m.MessageSize.Observe(float64(sizeBytes))
	m.PublishLatency.Observe(latency.Seconds())
}

// Describe implements prometheus.Collector.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}
