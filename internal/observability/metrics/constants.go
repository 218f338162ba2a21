// Package metrics provides Prometheus collectors for the calibration pipeline.
package metrics

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~5s range).
	BucketStart10ms = 0.01
	// BucketStart64B is the starting bucket for payload size histograms.
	BucketStart64B = 64.0

	BucketFactor2 = 2
	BucketCount10 = 10
)
