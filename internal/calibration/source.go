package calibration

import (
	"encoding/json"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/groundref"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/units"
)

// SourceMetadata carries the modality-specific inputs of a Result, enough
// to redisplay or audit it. Implemented only by the types in this file.
type SourceMetadata interface {
	calibrationType() Type
}

// CoinCircle is the coin modality: the reference circle mapped back into
// image coordinates.
type CoinCircle struct {
	CoinID     string  `json:"coin_id,omitempty"`
	CoinName   string  `json:"coin_name"`
	DiameterMM float64 `json:"diameter_mm"`

	// Image-space circle in original photo pixels.
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Radius  float64 `json:"radius"`

	// View state that produced it.
	ZoomScale       float64 `json:"zoom_scale"`
	PanX            float64 `json:"pan_x"`
	PanY            float64 `json:"pan_y"`
	ReferenceRadius float64 `json:"reference_radius"`
}

func (*CoinCircle) calibrationType() Type { return TypeCoin }

// Point is a position in image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BlueprintScale is the two-point modality.
type BlueprintScale struct {
	PixelDistance float64    `json:"pixel_distance"`
	RealDistance  float64    `json:"real_distance"`
	RealUnit      units.Unit `json:"real_unit"`
	Points        []Point    `json:"points,omitempty"`
}

func (*BlueprintScale) calibrationType() Type { return TypeBlueprint }

// VerbalScale is the map-scale modality.
type VerbalScale struct {
	ScreenDistance float64    `json:"screen_distance"`
	ScreenUnit     units.Unit `json:"screen_unit"`
	RealDistance   float64    `json:"real_distance"`
	RealUnit       units.Unit `json:"real_unit"`
	// ScreenPixelsPerUnit is how many photo pixels span one ScreenUnit.
	ScreenPixelsPerUnit float64 `json:"screen_pixels_per_unit"`
	// RepresentativeFraction is N in the 1:N form of the scale.
	RepresentativeFraction float64 `json:"representative_fraction"`
	// Declination in degrees, east positive. Stored for bearing
	// corrections; not part of the scale.
	Declination *float64 `json:"declination,omitempty"`
}

func (*VerbalScale) calibrationType() Type { return TypeVerbal }

// DroneTelemetry is the drone modality.
type DroneTelemetry struct {
	AltitudeAGL     float64            `json:"altitude_agl"`
	AltitudeSource  groundref.Source   `json:"altitude_source"`
	Decision        groundref.Decision `json:"decision"`
	DistanceMeters  float64            `json:"distance_meters,omitempty"`
	Degraded        bool               `json:"degraded,omitempty"`
	GSDCm           float64            `json:"gsd_cm"`
	CoverageWidthM  float64            `json:"coverage_width_m"`
	CoverageHeightM float64            `json:"coverage_height_m"`
	ImageWidth      int                `json:"image_width"`
	ImageHeight     int                `json:"image_height"`

	Make            string                   `json:"make,omitempty"`
	Model           string                   `json:"model,omitempty"`
	Specs           metadata.OpticalSpec     `json:"specs"`
	Confidence      metadata.Confidence      `json:"confidence"`
	DetectionMethod metadata.DetectionMethod `json:"detection_method"`
	Gimbal          *metadata.Gimbal         `json:"gimbal,omitempty"`
	Latitude        float64                  `json:"latitude"`
	Longitude       float64                  `json:"longitude"`
}

func (*DroneTelemetry) calibrationType() Type { return TypeDrone }

// DecodeSource unmarshals the source variant for t.
func DecodeSource(t Type, data []byte) (SourceMetadata, error) {
	var src SourceMetadata
	switch t {
	case TypeCoin:
		src = &CoinCircle{}
	case TypeBlueprint:
		src = &BlueprintScale{}
	case TypeVerbal:
		src = &VerbalScale{}
	case TypeDrone:
		src = &DroneTelemetry{}
	default:
		return nil, validationError("unknown calibration type %q", t)
	}
	if err := json.Unmarshal(data, src); err != nil {
		return nil, errors.New(err).
			Component("calibration").
			Category(errors.CategoryFileParsing).
			Context("calibration_type", string(t)).
			Build()
	}
	return src, nil
}
