// Package calibration turns a reference action into a pixels-per-millimetre
// scale. Four modalities (coin, blueprint, verbal map scale, drone
// telemetry) produce the same Result contract.
package calibration

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/units"
)

// Type is the calibration modality.
type Type string

const (
	TypeCoin      Type = "coin"
	TypeVerbal    Type = "verbal"
	TypeBlueprint Type = "blueprint"
	TypeDrone     Type = "drone"
)

// Valid reports whether t is a known modality.
func (t Type) Valid() bool {
	switch t {
	case TypeCoin, TypeVerbal, TypeBlueprint, TypeDrone:
		return true
	}
	return false
}

// ErrManualRequired means automatic calibration is not possible for the
// photo and the user must pick a manual modality.
var ErrManualRequired = errors.NewStd("manual calibration required")

// Result is a completed calibration. Fields are read-only after
// construction; build one with NewResult.
type Result struct {
	ID string `json:"id"`
	// PixelsPerMM is the canonical scale. Other units derive from it.
	PixelsPerMM float64 `json:"pixels_per_mm"`
	// Unit is the display unit chosen at calibration time.
	Unit units.Unit `json:"unit"`
	// ReferenceDistance is the ground truth distance, in Unit.
	ReferenceDistance float64        `json:"reference_distance"`
	Type              Type           `json:"type"`
	Source            SourceMetadata `json:"source"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewResult validates and builds a Result with a fresh ID.
func NewResult(pixelsPerMM float64, unit units.Unit, referenceDistance float64, src SourceMetadata) (*Result, error) {
	return Restore(uuid.NewString(), time.Now().UTC(), pixelsPerMM, unit, referenceDistance, src)
}

// Restore rebuilds a stored Result, applying the same validation as NewResult.
func Restore(id string, createdAt time.Time, pixelsPerMM float64, unit units.Unit, referenceDistance float64, src SourceMetadata) (*Result, error) {
	if err := requirePositive("pixels_per_mm", pixelsPerMM); err != nil {
		return nil, err
	}
	if err := requirePositive("reference_distance", referenceDistance); err != nil {
		return nil, err
	}
	if !unit.Valid() {
		return nil, validationError("unknown unit %q", unit)
	}
	if src == nil {
		return nil, validationError("source metadata is required")
	}
	if id == "" {
		return nil, validationError("result id is required")
	}
	return &Result{
		ID:                id,
		PixelsPerMM:       pixelsPerMM,
		Unit:              unit,
		ReferenceDistance: referenceDistance,
		Type:              src.calibrationType(),
		Source:            src,
		CreatedAt:         createdAt,
	}, nil
}

// PixelsPerUnit returns the scale expressed per u.
func (r *Result) PixelsPerUnit(u units.Unit) float64 {
	return r.PixelsPerMM * units.MillimetresPer(u)
}

// Measure converts a pixel length in the calibrated photo to millimetres.
func (r *Result) Measure(pixels float64) float64 {
	return pixels / r.PixelsPerMM
}

// MeasureArea converts a pixel area to square millimetres.
func (r *Result) MeasureArea(squarePixels float64) float64 {
	return squarePixels / (r.PixelsPerMM * r.PixelsPerMM)
}

// FormatDistance renders a pixel length with the display rules of system.
func (r *Result) FormatDistance(pixels float64, system units.System) string {
	return units.FormatMeasurement(r.Measure(pixels), units.MM, system)
}

// UnmarshalJSON decodes the source variant according to the type field and
// re-validates the result.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                string          `json:"id"`
		PixelsPerMM       float64         `json:"pixels_per_mm"`
		Unit              units.Unit      `json:"unit"`
		ReferenceDistance float64         `json:"reference_distance"`
		Type              Type            `json:"type"`
		Source            json.RawMessage `json:"source"`
		CreatedAt         time.Time       `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.New(err).
			Component("calibration").
			Category(errors.CategoryFileParsing).
			Build()
	}
	src, err := DecodeSource(raw.Type, raw.Source)
	if err != nil {
		return err
	}
	res, err := Restore(raw.ID, raw.CreatedAt, raw.PixelsPerMM, raw.Unit, raw.ReferenceDistance, src)
	if err != nil {
		return err
	}
	*r = *res
	return nil
}

func requirePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return validationError("%s must be finite, got %v", name, v)
	}
	if v <= 0 {
		return validationError("%s must be positive, got %v", name, v)
	}
	return nil
}

func validationError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("calibration").
		Category(errors.CategoryValidation).
		Build()
}
