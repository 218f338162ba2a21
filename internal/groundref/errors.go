package groundref

import (
	"fmt"

	"github.com/photoscale/photoscale/internal/errors"
)

// Reason names why no ground reference could be established. Each maps to a
// different user remedy.
type Reason string

const (
	ReasonLocationUnavailable   Reason = "location_unavailable"
	ReasonPermissionDenied      Reason = "permission_denied"
	ReasonLocationTimeout       Reason = "location_timeout"
	ReasonDeviceAltitudeMissing Reason = "device_altitude_missing"
	ReasonElevationUnavailable  Reason = "elevation_unavailable"
	ReasonDroneAltitudeMissing  Reason = "drone_altitude_missing"
	ReasonDroneGPSMissing       Reason = "drone_gps_missing"
	ReasonCancelled             Reason = "cancelled"
)

// Remedy is a short hint for the user.
func (r Reason) Remedy() string {
	switch r {
	case ReasonLocationUnavailable:
		return "enable location services"
	case ReasonPermissionDenied:
		return "grant location permission"
	case ReasonLocationTimeout:
		return "retry with a clear view of the sky"
	case ReasonDeviceAltitudeMissing, ReasonElevationUnavailable,
		ReasonDroneAltitudeMissing, ReasonDroneGPSMissing:
		return "enter the flight altitude or use manual calibration"
	default:
		return ""
	}
}

// Error is a ground reference failure.
type Error struct {
	Reason Reason
	// Err is the underlying failure, if any.
	Err error
	// Attempted lists the sources tried before giving up.
	Attempted []Source
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ground reference unavailable (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ground reference unavailable (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *Error) ErrorCategory() errors.ErrorCategory {
	if e.Reason == ReasonCancelled {
		return errors.CategoryCancellation
	}
	return errors.CategoryGroundReference
}

// ReasonOf extracts the failure reason from err.
func ReasonOf(err error) (Reason, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Reason, true
	}
	return "", false
}
