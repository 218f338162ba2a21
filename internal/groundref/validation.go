// Package groundref establishes a drone's altitude above ground when the
// photo does not carry one, and decides how far a secondary ground fix can
// be trusted.
package groundref

import (
	"math"

	"github.com/photoscale/photoscale/internal/geodesy"
)

// Decision is the trust classification of a ground reference.
type Decision string

const (
	// DecisionAuto: the reference is close enough to use without asking.
	DecisionAuto Decision = "auto"
	// DecisionPrompt: usable, but the user should confirm.
	DecisionPrompt Decision = "prompt"
	// DecisionSkip: too far away; route to manual calibration.
	DecisionSkip Decision = "skip"
)

// Trust boundaries in metres of lateral distance. Not configurable.
const (
	AutoThresholdMeters = 100.0
	SkipThresholdMeters = 500.0
)

// Validation is the outcome of ValidateGroundReference.
type Validation struct {
	Decision       Decision `json:"decision"`
	DistanceMeters float64  `json:"distance_meters"`
}

// Usable reports whether the computed altitude may feed a calibration.
func (v Validation) Usable() bool {
	return v.Decision == DecisionAuto || v.Decision == DecisionPrompt
}

// ValidateGroundReference classifies a lateral distance: auto below 100 m,
// prompt from 100 m up to 500 m, skip from 500 m. A NaN distance is skip and
// a negative one is treated as zero.
func ValidateGroundReference(distanceMeters float64) Validation {
	switch {
	case math.IsNaN(distanceMeters):
		return Validation{Decision: DecisionSkip, DistanceMeters: math.Inf(1)}
	case distanceMeters < 0:
		distanceMeters = 0
	}

	v := Validation{DistanceMeters: distanceMeters}
	switch {
	case distanceMeters < AutoThresholdMeters:
		v.Decision = DecisionAuto
	case distanceMeters < SkipThresholdMeters:
		v.Decision = DecisionPrompt
	default:
		v.Decision = DecisionSkip
	}
	return v
}

// ValidateCoordinates measures the great-circle distance between the photo
// and the ground fix and classifies it.
func ValidateCoordinates(photo, ground geodesy.Coordinate) Validation {
	return ValidateGroundReference(geodesy.Distance(photo, ground))
}
