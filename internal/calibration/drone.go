package calibration

import (
	"math"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/groundref"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/units"
)

// DefaultNadirTolerance is how far from straight down (pitch -90) the gimbal
// may point when StrictNadir is on.
const DefaultNadirTolerance = 10.0

// DroneOptions tunes the drone engine.
type DroneOptions struct {
	DisplayUnit units.Unit
	// StrictNadir refuses photos whose gimbal pitch is not near -90 degrees
	// instead of assuming every drone photo is overhead.
	StrictNadir    bool
	NadirTolerance float64
}

// DroneEngine derives a scale from flight altitude and camera optics.
type DroneEngine struct {
	opts DroneOptions
}

// NewDroneEngine returns an engine with opts, defaulting the display unit
// to metres and the nadir tolerance to DefaultNadirTolerance.
func NewDroneEngine(opts DroneOptions) *DroneEngine {
	if !opts.DisplayUnit.Valid() {
		opts.DisplayUnit = units.M
	}
	if opts.NadirTolerance <= 0 {
		opts.NadirTolerance = DefaultNadirTolerance
	}
	return &DroneEngine{opts: opts}
}

// CompletionEvent announces an automatic calibration. No circle was placed,
// so Circle is a placeholder centred on the image.
type CompletionEvent struct {
	SessionID       string             `json:"session_id,omitempty"`
	ResultID        string             `json:"result_id"`
	Type            Type               `json:"type"`
	CoverageWidthM  float64            `json:"coverage_width_m"`
	CoverageHeightM float64            `json:"coverage_height_m"`
	GSDCm           float64            `json:"gsd_cm"`
	AltitudeAGL     float64            `json:"altitude_agl"`
	Decision        groundref.Decision `json:"decision"`
	Circle          PlaceholderCircle  `json:"circle"`
}

// PlaceholderCircle stands in for the coin circle of manual modes.
type PlaceholderCircle struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Radius  float64 `json:"radius"`
}

// GSD is the ground sample distance of a photo in metres per pixel.
type GSD struct {
	Width  float64
	Height float64
}

// CentimetresPerPixel is the mean GSD in cm.
func (g GSD) CentimetresPerPixel() float64 {
	return (g.Width + g.Height) / 2 * 100
}

// PixelsPerMM converts the mean GSD to the calibration scale.
func (g GSD) PixelsPerMM() float64 {
	return 1 / (g.CentimetresPerPixel() * 10)
}

// ComputeGSD returns altitude*sensor/(focal*pixels) per axis. Altitude is in
// metres, sensor and focal length in millimetres.
func ComputeGSD(altitudeM float64, spec metadata.OpticalSpec, widthPx, heightPx int) (GSD, error) {
	if err := requirePositive("altitude", altitudeM); err != nil {
		return GSD{}, err
	}
	if err := requirePositive("sensor_width_mm", spec.SensorWidthMM); err != nil {
		return GSD{}, err
	}
	if err := requirePositive("sensor_height_mm", spec.SensorHeightMM); err != nil {
		return GSD{}, err
	}
	if err := requirePositive("focal_length_mm", spec.FocalLengthMM); err != nil {
		return GSD{}, err
	}
	if widthPx <= 0 || heightPx <= 0 {
		return GSD{}, validationError("image resolution unknown")
	}
	return GSD{
		Width:  altitudeM * spec.SensorWidthMM / (spec.FocalLengthMM * float64(widthPx)),
		Height: altitudeM * spec.SensorHeightMM / (spec.FocalLengthMM * float64(heightPx)),
	}, nil
}

// Calibrate produces a drone result from extracted telemetry and a ground
// reference. Photos that cannot be calibrated automatically fail with an
// error wrapping ErrManualRequired.
func (e *DroneEngine) Calibrate(tel *metadata.DroneTelemetry, ref *groundref.Resolution) (*Result, *CompletionEvent, error) {
	if tel == nil || !tel.Usable() {
		return nil, nil, manualRequired("no_metadata")
	}
	if !tel.IsDrone || !tel.IsOverhead {
		return nil, nil, manualRequired("not_drone")
	}
	if e.opts.StrictNadir {
		if tel.Gimbal == nil || math.Abs(tel.Gimbal.Pitch+90) > e.opts.NadirTolerance {
			return nil, nil, manualRequired("not_nadir")
		}
	}
	if ref == nil {
		return nil, nil, manualRequired("no_ground_reference")
	}
	if !ref.Usable() {
		return nil, nil, manualRequired("ground_reference_" + string(ref.Decision()))
	}
	if tel.Specs == nil {
		return nil, nil, manualRequired("no_optical_spec")
	}

	width, height := tel.ImageWidth, tel.ImageHeight
	if width <= 0 || height <= 0 {
		width, height = tel.Specs.ResolutionWidth, tel.Specs.ResolutionHeight
	}

	gsd, err := ComputeGSD(ref.AltitudeAGL, *tel.Specs, width, height)
	if err != nil {
		return nil, nil, err
	}

	coverageW := gsd.Width * float64(width)
	coverageH := gsd.Height * float64(height)

	src := &DroneTelemetry{
		AltitudeAGL:     ref.AltitudeAGL,
		AltitudeSource:  ref.Source,
		Decision:        ref.Decision(),
		Degraded:        ref.Degraded,
		GSDCm:           gsd.CentimetresPerPixel(),
		CoverageWidthM:  coverageW,
		CoverageHeightM: coverageH,
		ImageWidth:      width,
		ImageHeight:     height,
		Make:            tel.Make,
		Model:           tel.Model,
		Specs:           *tel.Specs,
		Confidence:      tel.Confidence,
		DetectionMethod: tel.DetectionMethod,
		Gimbal:          tel.Gimbal,
	}
	if ref.Validation != nil {
		src.DistanceMeters = ref.Validation.DistanceMeters
	}
	if tel.GPS != nil {
		src.Latitude, src.Longitude = tel.GPS.Latitude, tel.GPS.Longitude
	}

	unit := e.opts.DisplayUnit
	res, err := NewResult(gsd.PixelsPerMM(), unit, units.Convert(coverageW, units.M, unit), src)
	if err != nil {
		return nil, nil, err
	}

	event := &CompletionEvent{
		ResultID:        res.ID,
		Type:            TypeDrone,
		CoverageWidthM:  coverageW,
		CoverageHeightM: coverageH,
		GSDCm:           src.GSDCm,
		AltitudeAGL:     ref.AltitudeAGL,
		Decision:        src.Decision,
		Circle: PlaceholderCircle{
			CenterX: float64(width) / 2,
			CenterY: float64(height) / 2,
			Radius:  float64(min(width, height)) / 4,
		},
	}
	return res, event, nil
}

func manualRequired(reason string) error {
	return errors.New(ErrManualRequired).
		Component("calibration").
		Category(errors.CategoryCalibration).
		Context("reason", reason).
		Build()
}

// ManualReason returns the reason recorded on an ErrManualRequired error.
func ManualReason(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && errors.Is(err, ErrManualRequired) {
		if r, ok := ee.GetContext()["reason"].(string); ok {
			return r
		}
	}
	return ""
}
