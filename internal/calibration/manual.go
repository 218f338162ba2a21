package calibration

import (
	"math"

	"github.com/photoscale/photoscale/internal/units"
)

// ManualEngine computes scales from the three manual modalities. It is
// stateless; user preferences arrive with every call.
type ManualEngine struct{}

// CoinInput is the final view state of the coin modality: the user zoomed
// and panned the photo until the coin's edge met a fixed on-screen circle.
type CoinInput struct {
	// CoinID selects a catalogue coin; empty uses the preferred coin.
	CoinID string
	// DiameterMM overrides the catalogue diameter, for coins not listed.
	DiameterMM float64

	ZoomScale float64
	PanX      float64
	PanY      float64

	// Reference circle on screen, in screen pixels.
	CircleRadius  float64
	CircleCenterX float64
	CircleCenterY float64
}

// ValidateCoin reports whether in can produce a result.
func ValidateCoin(in CoinInput) error {
	if err := requirePositive("zoom_scale", in.ZoomScale); err != nil {
		return err
	}
	if err := requirePositive("circle_radius", in.CircleRadius); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"pan_x": in.PanX, "pan_y": in.PanY,
		"circle_center_x": in.CircleCenterX, "circle_center_y": in.CircleCenterY,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validationError("%s must be finite, got %v", name, v)
		}
	}
	if in.DiameterMM != 0 {
		return requirePositive("diameter_mm", in.DiameterMM)
	}
	if in.CoinID != "" {
		if _, ok := LookupCoin(in.CoinID); !ok {
			return validationError("unknown coin %q", in.CoinID)
		}
	}
	return nil
}

// Coin computes pixelsPerMM = (2R/s)/D and maps the reference circle back
// into image coordinates: centre ((Cx-tx)/s, (Cy-ty)/s), radius R/s.
func (ManualEngine) Coin(in CoinInput, prefs Preferences) (*Result, error) {
	if err := ValidateCoin(in); err != nil {
		return nil, err
	}

	coin := prefs.Coin()
	if in.CoinID != "" {
		coin, _ = LookupCoin(in.CoinID)
	}
	if in.DiameterMM > 0 {
		coin = Coin{ID: "custom", Name: "Custom coin", DiameterMM: in.DiameterMM}
	}

	view := ViewTransform{Scale: in.ZoomScale, TranslateX: in.PanX, TranslateY: in.PanY}
	cx, cy := view.ToImage(in.CircleCenterX, in.CircleCenterY)
	radius := view.ToImageLength(in.CircleRadius)

	pixelsPerMM := (2 * radius) / coin.DiameterMM

	unit := prefs.DisplayUnit()
	return NewResult(pixelsPerMM, unit, units.Convert(coin.DiameterMM, units.MM, unit), &CoinCircle{
		CoinID:          coin.ID,
		CoinName:        coin.Name,
		DiameterMM:      coin.DiameterMM,
		CenterX:         cx,
		CenterY:         cy,
		Radius:          radius,
		ZoomScale:       in.ZoomScale,
		PanX:            in.PanX,
		PanY:            in.PanY,
		ReferenceRadius: in.CircleRadius,
	})
}

// BlueprintInput is the two-point modality. Either PixelDistance or both
// Points must be given.
type BlueprintInput struct {
	PixelDistance float64
	Points        []Point
	Distance      float64
	Unit          units.Unit
}

func (in BlueprintInput) pixelDistance() float64 {
	if len(in.Points) == 2 {
		return math.Hypot(in.Points[1].X-in.Points[0].X, in.Points[1].Y-in.Points[0].Y)
	}
	return in.PixelDistance
}

// ValidateBlueprint reports whether in can produce a result.
func ValidateBlueprint(in BlueprintInput) error {
	if len(in.Points) != 0 && len(in.Points) != 2 {
		return validationError("exactly two points are required, got %d", len(in.Points))
	}
	for _, p := range in.Points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return validationError("point coordinates must be finite")
		}
	}
	if err := requirePositive("pixel_distance", in.pixelDistance()); err != nil {
		return err
	}
	if err := requirePositive("distance", in.Distance); err != nil {
		return err
	}
	if !in.Unit.Valid() {
		return validationError("unknown unit %q", in.Unit)
	}
	return nil
}

// Blueprint computes pixelsPerMM = pixelDistance / distanceInMM.
func (ManualEngine) Blueprint(in BlueprintInput, _ Preferences) (*Result, error) {
	if err := ValidateBlueprint(in); err != nil {
		return nil, err
	}

	delta := in.pixelDistance()
	pixelsPerMM := delta / units.ToMM(in.Distance, in.Unit)

	return NewResult(pixelsPerMM, in.Unit, in.Distance, &BlueprintScale{
		PixelDistance: delta,
		RealDistance:  in.Distance,
		RealUnit:      in.Unit,
		Points:        in.Points,
	})
}

// VerbalInput is the map-scale modality: ScreenDistance ScreenUnit on the
// map equals RealDistance RealUnit on the ground.
type VerbalInput struct {
	ScreenDistance float64
	ScreenUnit     units.Unit
	RealDistance   float64
	RealUnit       units.Unit
	// ScreenPixelsPerUnit is how many photo pixels span one ScreenUnit of
	// the map, typically measured off the map's scale bar.
	ScreenPixelsPerUnit float64
	Declination         *float64
}

// ValidateVerbal reports whether in can produce a result.
func ValidateVerbal(in VerbalInput) error {
	if err := requirePositive("screen_distance", in.ScreenDistance); err != nil {
		return err
	}
	if err := requirePositive("real_distance", in.RealDistance); err != nil {
		return err
	}
	if err := requirePositive("screen_pixels_per_unit", in.ScreenPixelsPerUnit); err != nil {
		return err
	}
	if in.ScreenUnit != units.CM && in.ScreenUnit != units.IN {
		return validationError("screen unit must be cm or in, got %q", in.ScreenUnit)
	}
	switch in.RealUnit {
	case units.M, units.KM, units.FT, units.MI:
	default:
		return validationError("real unit must be m, km, ft or mi, got %q", in.RealUnit)
	}
	if d := in.Declination; d != nil {
		if math.IsNaN(*d) || math.IsInf(*d, 0) || math.Abs(*d) > 180 {
			return validationError("declination must be within ±180 degrees, got %v", *d)
		}
	}
	return nil
}

// Verbal computes pixelsPerMM = (screenPixelsPerUnit / mm(screenUnit)) *
// (screen_mm / real_mm). Declination is carried along unused.
func (ManualEngine) Verbal(in VerbalInput, _ Preferences) (*Result, error) {
	if err := ValidateVerbal(in); err != nil {
		return nil, err
	}

	screenMM := units.ToMM(in.ScreenDistance, in.ScreenUnit)
	realMM := units.ToMM(in.RealDistance, in.RealUnit)
	pixelsPerScreenMM := in.ScreenPixelsPerUnit / units.MillimetresPer(in.ScreenUnit)
	pixelsPerMM := pixelsPerScreenMM * (screenMM / realMM)

	var declination *float64
	if in.Declination != nil {
		d := *in.Declination
		declination = &d
	}

	return NewResult(pixelsPerMM, in.RealUnit, in.RealDistance, &VerbalScale{
		ScreenDistance:         in.ScreenDistance,
		ScreenUnit:             in.ScreenUnit,
		RealDistance:           in.RealDistance,
		RealUnit:               in.RealUnit,
		ScreenPixelsPerUnit:    in.ScreenPixelsPerUnit,
		RepresentativeFraction: realMM / screenMM,
		Declination:            declination,
	})
}
