package calibration

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/photoscale/photoscale/internal/units"
)

var (
	verbalPattern = regexp.MustCompile(`(?i)^\s*([0-9]*\.?[0-9]+)\s*([a-z"']+)\s*(?:=|:|equals|represents|to)\s*([0-9][0-9,_ ]*\.?[0-9]*)\s*([a-z]+)\s*$`)
	ratioPattern  = regexp.MustCompile(`^\s*1\s*:\s*([0-9][0-9,_ ]*)\s*$`)
)

// VerbalScaleText is a parsed verbal scale, ready for VerbalInput.
type VerbalScaleText struct {
	ScreenDistance float64
	ScreenUnit     units.Unit
	RealDistance   float64
	RealUnit       units.Unit
}

// ParseVerbalScale reads scales like "1 cm = 2 km", `1" represents 1 mi`
// or a representative fraction "1:25000". A fraction of the form 1:N is read
// as 1 cm = N cm and expressed in metres, or in feet when system is imperial
// (1 in = N in).
func ParseVerbalScale(text string, system units.System) (VerbalScaleText, error) {
	if m := ratioPattern.FindStringSubmatch(text); m != nil {
		n, err := parseNumber(m[1])
		if err != nil || n <= 0 {
			return VerbalScaleText{}, validationError("invalid scale ratio %q", text)
		}
		if system == units.Imperial {
			return VerbalScaleText{ScreenDistance: 1, ScreenUnit: units.IN, RealDistance: units.Convert(n, units.IN, units.FT), RealUnit: units.FT}, nil
		}
		return VerbalScaleText{ScreenDistance: 1, ScreenUnit: units.CM, RealDistance: units.Convert(n, units.CM, units.M), RealUnit: units.M}, nil
	}

	m := verbalPattern.FindStringSubmatch(text)
	if m == nil {
		return VerbalScaleText{}, validationError("unrecognised verbal scale %q", text)
	}
	screen, err := parseNumber(m[1])
	if err != nil {
		return VerbalScaleText{}, validationError("invalid screen distance in %q", text)
	}
	screenUnit, err := units.ParseUnit(m[2])
	if err != nil {
		return VerbalScaleText{}, err
	}
	realDistance, err := parseNumber(m[3])
	if err != nil {
		return VerbalScaleText{}, validationError("invalid real distance in %q", text)
	}
	realUnit, err := units.ParseUnit(m[4])
	if err != nil {
		return VerbalScaleText{}, err
	}
	return VerbalScaleText{ScreenDistance: screen, ScreenUnit: screenUnit, RealDistance: realDistance, RealUnit: realUnit}, nil
}

// Input combines the parsed text with the measured scale bar.
func (v VerbalScaleText) Input(screenPixelsPerUnit float64, declination *float64) VerbalInput {
	return VerbalInput{
		ScreenDistance:      v.ScreenDistance,
		ScreenUnit:          v.ScreenUnit,
		RealDistance:        v.RealDistance,
		RealUnit:            v.RealUnit,
		ScreenPixelsPerUnit: screenPixelsPerUnit,
		Declination:         declination,
	}
}

func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	return strconv.ParseFloat(s, 64)
}
