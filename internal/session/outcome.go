package session

import (
	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/groundref"
	"github.com/photoscale/photoscale/internal/metadata"
)

// FailureKind separates the ways an attempt can end without a result.
type FailureKind string

const (
	// FailureManualRequired: the photo cannot be calibrated automatically.
	FailureManualRequired FailureKind = "manual_required"
	// FailureGroundReference: no altitude above ground could be established.
	FailureGroundReference FailureKind = "ground_reference"
)

// Failure is the typed end of an attempt that produced no result.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
	Remedy string      `json:"remedy,omitempty"`
	Err    error       `json:"-"`
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Reason
}

func (f *Failure) Unwrap() error { return f.Err }

// Outcome reports one calibration attempt: a result, or a failure.
type Outcome struct {
	SessionID string                       `json:"session_id"`
	Type      calibration.Type             `json:"type"`
	Result    *calibration.Result          `json:"result,omitempty"`
	Event     *calibration.CompletionEvent `json:"event,omitempty"`
	Failure   *Failure                     `json:"failure,omitempty"`

	// Drone attempts also report what was extracted and resolved.
	Telemetry  *metadata.DroneTelemetry `json:"telemetry,omitempty"`
	Resolution *groundref.Resolution    `json:"resolution,omitempty"`
}

// Completed reports whether the attempt produced a result.
func (o *Outcome) Completed() bool {
	return o != nil && o.Result != nil
}
