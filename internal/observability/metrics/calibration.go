package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CalibrationMetrics contains Prometheus metrics for calibration attempts,
// metadata extraction and ground reference resolution.
//
// All Record methods are safe to call on a nil receiver so components can be
// built without a registry in tests and CLI runs.
type CalibrationMetrics struct {
	registry *prometheus.Registry

	calibrationsTotal       *prometheus.CounterVec
	calibrationDuration     *prometheus.HistogramVec
	extractionsTotal        *prometheus.CounterVec
	extractionSourceTotal   *prometheus.CounterVec
	groundDecisionsTotal    *prometheus.CounterVec
	groundFailuresTotal     *prometheus.CounterVec
	groundSourceTotal       *prometheus.CounterVec
	historyOperationsTotal  *prometheus.CounterVec
	pixelsPerMillimetreLast *prometheus.GaugeVec
}

// NewCalibrationMetrics creates and registers calibration metrics
func NewCalibrationMetrics(registry *prometheus.Registry) (*CalibrationMetrics, error) {
	m := &CalibrationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CalibrationMetrics) initMetrics() {
	m.calibrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calibrations_total",
			Help: "Total number of calibration attempts",
		},
		[]string{"type", "status"}, // type: coin, verbal, blueprint, drone
	)

	m.calibrationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "calibration_duration_seconds",
			Help: "Time taken to produce a calibration, including metadata and ground lookups",
			// 10ms to ~5s covers pure manual math up to a drone run that waits on the elevation service
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
		},
		[]string{"type"},
	)

	m.extractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_extractions_total",
			Help: "Photo telemetry extractions by resulting confidence and detection method",
		},
		[]string{"confidence", "method"},
	)

	m.extractionSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_extraction_source_total",
			Help: "Extraction stages that contributed data",
		},
		[]string{"source", "status"},
	)

	m.groundDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ground_reference_decisions_total",
			Help: "Ground reference proximity decisions",
		},
		[]string{"decision"}, // auto, prompt, skip
	)

	m.groundFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ground_reference_failures_total",
			Help: "Ground reference failures by reason",
		},
		[]string{"reason"},
	)

	m.groundSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ground_reference_source_total",
			Help: "Altitude sources used for above-ground altitude",
		},
		[]string{"source"},
	)

	m.historyOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calibration_history_operations_total",
			Help: "Calibration history datastore operations",
		},
		[]string{"operation", "status"},
	)

	m.pixelsPerMillimetreLast = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "calibration_last_pixels_per_mm",
			Help: "Scale produced by the most recent calibration of each type",
		},
		[]string{"type"},
	)
}

// Describe implements the Collector interface
func (m *CalibrationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.calibrationsTotal.Describe(ch)
	m.calibrationDuration.Describe(ch)
	m.extractionsTotal.Describe(ch)
	m.extractionSourceTotal.Describe(ch)
	m.groundDecisionsTotal.Describe(ch)
	m.groundFailuresTotal.Describe(ch)
	m.groundSourceTotal.Describe(ch)
	m.historyOperationsTotal.Describe(ch)
	m.pixelsPerMillimetreLast.Describe(ch)
}

// Collect implements the Collector interface
func (m *CalibrationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.calibrationsTotal.Collect(ch)
	m.calibrationDuration.Collect(ch)
	m.extractionsTotal.Collect(ch)
	m.extractionSourceTotal.Collect(ch)
	m.groundDecisionsTotal.Collect(ch)
	m.groundFailuresTotal.Collect(ch)
	m.groundSourceTotal.Collect(ch)
	m.historyOperationsTotal.Collect(ch)
	m.pixelsPerMillimetreLast.Collect(ch)
}

// RecordCalibration records the outcome of a calibration attempt
func (m *CalibrationMetrics) RecordCalibration(calibrationType, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.calibrationsTotal.WithLabelValues(calibrationType, status).Inc()
	m.calibrationDuration.WithLabelValues(calibrationType).Observe(durationSeconds)
}

// RecordScale stores the last produced scale for a calibration type
func (m *CalibrationMetrics) RecordScale(calibrationType string, pixelsPerMM float64) {
	if m == nil {
		return
	}
	m.pixelsPerMillimetreLast.WithLabelValues(calibrationType).Set(pixelsPerMM)
}

// RecordExtraction records the confidence reached by a telemetry extraction
func (m *CalibrationMetrics) RecordExtraction(confidence, method string) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(confidence, method).Inc()
}

// RecordExtractionSource records whether an extraction stage produced data
func (m *CalibrationMetrics) RecordExtractionSource(source, status string) {
	if m == nil {
		return
	}
	m.extractionSourceTotal.WithLabelValues(source, status).Inc()
}

// RecordGroundDecision records a proximity decision
func (m *CalibrationMetrics) RecordGroundDecision(decision string) {
	if m == nil {
		return
	}
	m.groundDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordGroundFailure records why a ground reference could not be established
func (m *CalibrationMetrics) RecordGroundFailure(reason string) {
	if m == nil {
		return
	}
	m.groundFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordGroundSource records which altitude source was used
func (m *CalibrationMetrics) RecordGroundSource(source string) {
	if m == nil {
		return
	}
	m.groundSourceTotal.WithLabelValues(source).Inc()
}

// RecordHistoryOperation records a calibration history datastore operation
func (m *CalibrationMetrics) RecordHistoryOperation(operation, status string) {
	if m == nil {
		return
	}
	m.historyOperationsTotal.WithLabelValues(operation, status).Inc()
}
