package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationMetricsRecord(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewCalibrationMetrics(registry)
	require.NoError(t, err)

	m.RecordCalibration("coin", StatusSuccess, 0.02)
	m.RecordCalibration("coin", StatusSuccess, 0.03)
	m.RecordCalibration("drone", StatusError, 1.2)
	m.RecordGroundDecision("prompt")
	m.RecordGroundFailure("permission_denied")
	m.RecordScale("blueprint", 4.5)

	assert.InDelta(t, 2, testutil.ToFloat64(m.calibrationsTotal.WithLabelValues("coin", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.calibrationsTotal.WithLabelValues("drone", StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.groundDecisionsTotal.WithLabelValues("prompt")), 0)
	assert.InDelta(t, 4.5, testutil.ToFloat64(m.pixelsPerMillimetreLast.WithLabelValues("blueprint")), 0)

	families, err := registry.Gather()
	require.NoError(t, err)

	var histogram *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "calibration_duration_seconds" {
			for _, metric := range mf.GetMetric() {
				for _, label := range metric.GetLabel() {
					if label.GetName() == "type" && label.GetValue() == "coin" {
						histogram = metric.GetHistogram()
					}
				}
			}
		}
	}
	require.NotNil(t, histogram)
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.InDelta(t, 0.05, histogram.GetSampleSum(), 1e-9)
}

func TestNilReceiversAreNoops(t *testing.T) {
	t.Parallel()

	var c *CalibrationMetrics
	var e *ElevationMetrics
	var q *MQTTMetrics

	assert.NotPanics(t, func() {
		c.RecordCalibration("coin", StatusSuccess, 0)
		c.RecordExtraction("high", "database")
		e.RecordCacheLookup(true)
		e.RecordRequest(StatusSuccess, "200", 0.1)
		q.RecordPublish(10, time.Millisecond, nil)
		q.UpdateConnectionStatus(true)
	})
}

func TestElevationAndMQTTMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	e, err := NewElevationMetrics(registry)
	require.NoError(t, err)
	q, err := NewMQTTMetrics(registry)
	require.NoError(t, err)

	e.RecordCacheLookup(true)
	e.RecordCacheLookup(false)
	e.RecordCacheLookup(true)
	assert.InDelta(t, 2, testutil.ToFloat64(e.cacheTotal.WithLabelValues("hit")), 0)

	q.RecordPublish(256, 5*time.Millisecond, nil)
	q.RecordPublish(0, 0, errors.New("broker gone"))
	assert.InDelta(t, 1, testutil.ToFloat64(q.MessagesDelivered), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(q.Errors), 0)

	_, err = NewElevationMetrics(registry)
	require.Error(t, err, "duplicate registration must fail")
}
