// Package units converts and formats lengths and areas between the metric
// and imperial units used for measurements. All conversions go through
// millimetres.
package units

import (
	"fmt"
	"math"
	"strings"

	"github.com/photoscale/photoscale/internal/errors"
)

// Unit is a length unit.
type Unit string

const (
	MM Unit = "mm"
	CM Unit = "cm"
	IN Unit = "in"
	M  Unit = "m"
	FT Unit = "ft"
	KM Unit = "km"
	MI Unit = "mi"
)

// System is a unit system preference.
type System string

const (
	Metric   System = "metric"
	Imperial System = "imperial"
)

// mmPer holds the length of one unit in millimetres.
var mmPer = map[Unit]float64{
	MM: 1,
	CM: 10,
	IN: 25.4,
	M:  1000,
	FT: 304.8,
	KM: 1_000_000,
	MI: 1_609_344,
}

// All lists the supported units, smallest first within each system.
var All = []Unit{MM, CM, M, KM, IN, FT, MI}

var unitAliases = map[string]Unit{
	"mm": MM, "millimeter": MM, "millimeters": MM, "millimetre": MM, "millimetres": MM,
	"cm": CM, "centimeter": CM, "centimeters": CM, "centimetre": CM, "centimetres": CM,
	"in": IN, "inch": IN, "inches": IN, `"`: IN,
	"m": M, "meter": M, "meters": M, "metre": M, "metres": M,
	"ft": FT, "foot": FT, "feet": FT, "'": FT,
	"km": KM, "kilometer": KM, "kilometers": KM, "kilometre": KM, "kilometres": KM,
	"mi": MI, "mile": MI, "miles": MI,
}

// ParseUnit parses a unit symbol or name, case-insensitively.
func ParseUnit(s string) (Unit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", errors.Newf("unknown unit %q", s).
		Component("units").
		Category(errors.CategoryValidation).
		Build()
}

// ParseSystem parses "metric" or "imperial".
func ParseSystem(s string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metric", "si":
		return Metric, nil
	case "imperial", "us", "customary":
		return Imperial, nil
	}
	return "", errors.Newf("unknown unit system %q", s).
		Component("units").
		Category(errors.CategoryValidation).
		Build()
}

// Valid reports whether u is a supported unit.
func (u Unit) Valid() bool {
	_, ok := mmPer[u]
	return ok
}

// System returns the unit system u belongs to.
func (u Unit) System() System {
	switch u {
	case IN, FT, MI:
		return Imperial
	default:
		return Metric
	}
}

// MillimetresPer returns the length of one u in millimetres, or 0 for an unknown unit.
func MillimetresPer(u Unit) float64 {
	return mmPer[u]
}

// Convert converts a length between units.
func Convert(value float64, from, to Unit) float64 {
	if from == to {
		return value
	}
	return value * mmPer[from] / mmPer[to]
}

// ToMM converts a length to millimetres.
func ToMM(value float64, from Unit) float64 {
	return value * mmPer[from]
}

// Validate rejects non-finite and negative lengths.
func Validate(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.Newf("length must be a finite number, got %v", value).
			Component("units").
			Category(errors.CategoryValidation).
			Build()
	}
	if value < 0 {
		return errors.Newf("length must not be negative, got %v", value).
			Component("units").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// DefaultUnit returns the unit a fresh measurement is displayed in for a system.
func DefaultUnit(system System) Unit {
	if system == Imperial {
		return IN
	}
	return CM
}

// Display unit thresholds, in millimetres.
const (
	metricCMThreshold = 250
	metricMThreshold  = 1000
	metricKMThreshold = 1_000_000

	imperialFTThresholdIn = 12
	imperialMIThresholdIn = 63_360
)

// SelectDisplayUnit picks the unit a length reads best in for the given system
// and returns the value converted to it.
func SelectDisplayUnit(value float64, unit Unit, system System) (float64, Unit) {
	if system == Imperial {
		inches := Convert(value, unit, IN)
		switch {
		case inches < imperialFTThresholdIn:
			return inches, IN
		case inches < imperialMIThresholdIn:
			return Convert(inches, IN, FT), FT
		default:
			return Convert(inches, IN, MI), MI
		}
	}

	mm := ToMM(value, unit)
	switch {
	case mm < metricCMThreshold:
		return mm, MM
	case mm < metricMThreshold:
		return Convert(mm, MM, CM), CM
	case mm < metricKMThreshold:
		return Convert(mm, MM, M), M
	default:
		return Convert(mm, MM, KM), KM
	}
}

// FormatMeasurement renders a length in the best display unit of the system.
func FormatMeasurement(value float64, unit Unit, system System) string {
	v, u := SelectDisplayUnit(value, unit, system)
	return FormatValue(v, u)
}

// FormatValue renders a length in exactly the given unit.
//
// Millimetres round to the nearest half and drop a trailing ".0"; feet render
// as feet and inches (5'6"), carrying 12 inches into the next foot.
func FormatValue(value float64, unit Unit) string {
	switch unit {
	case MM:
		half := math.Round(value*2) / 2
		return fmt.Sprintf("%s mm", trimZeroDecimal(fmt.Sprintf("%.1f", half)))
	case CM:
		return fmt.Sprintf("%.1f cm", value)
	case M:
		return fmt.Sprintf("%.2f m", value)
	case KM:
		return fmt.Sprintf("%.3f km", value)
	case IN:
		return fmt.Sprintf("%.2f in", value)
	case FT:
		return formatFeetInches(value)
	case MI:
		return fmt.Sprintf("%.2f mi", value)
	default:
		return fmt.Sprintf("%g %s", value, unit)
	}
}

func formatFeetInches(feet float64) string {
	sign := ""
	if feet < 0 {
		sign = "-"
		feet = -feet
	}
	whole := math.Floor(feet)
	inches := math.Round((feet - whole) * 12)
	if inches >= 12 {
		whole++
		inches = 0
	}
	if inches == 0 {
		return fmt.Sprintf("%s%.0f'", sign, whole)
	}
	return fmt.Sprintf("%s%.0f'%.0f\"", sign, whole, inches)
}

func trimZeroDecimal(s string) string {
	return strings.TrimSuffix(s, ".0")
}
