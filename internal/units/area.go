package units

import (
	"fmt"
)

// ConvertArea converts an area between the squares of two length units.
func ConvertArea(value float64, from, to Unit) float64 {
	if from == to {
		return value
	}
	f, t := mmPer[from], mmPer[to]
	return value * (f * f) / (t * t)
}

// Area display thresholds.
const (
	areaMM2Limit = 10_000     // mm² below this stay in mm²
	areaCM2Limit = 10_000     // cm² below this stay in cm²
	areaM2Limit  = 1_000_000  // m² below this stay in m²
	areaIN2Limit = 144        // in² below this stay in in²
	areaFT2Limit = 27_878_400 // one square mile in ft²
)

// SelectAreaDisplayUnit picks the squared unit an area reads best in and
// returns the converted value. The returned Unit names the side length.
func SelectAreaDisplayUnit(value float64, unit Unit, system System) (float64, Unit) {
	if system == Imperial {
		in2 := ConvertArea(value, unit, IN)
		switch {
		case in2 < areaIN2Limit:
			return in2, IN
		default:
			ft2 := ConvertArea(in2, IN, FT)
			if ft2 < areaFT2Limit {
				return ft2, FT
			}
			return ConvertArea(ft2, FT, MI), MI
		}
	}

	mm2 := ConvertArea(value, unit, MM)
	if mm2 < areaMM2Limit {
		return mm2, MM
	}
	cm2 := ConvertArea(mm2, MM, CM)
	if cm2 < areaCM2Limit {
		return cm2, CM
	}
	m2 := ConvertArea(mm2, MM, M)
	if m2 < areaM2Limit {
		return m2, M
	}
	return ConvertArea(m2, M, KM), KM
}

// FormatArea renders an area in the best squared display unit of the system.
func FormatArea(value float64, unit Unit, system System) string {
	v, u := SelectAreaDisplayUnit(value, unit, system)
	return FormatAreaValue(v, u)
}

// FormatAreaValue renders an area in exactly the square of the given unit.
func FormatAreaValue(value float64, unit Unit) string {
	switch unit {
	case MM:
		return fmt.Sprintf("%.0f mm²", value)
	case CM:
		return fmt.Sprintf("%.1f cm²", value)
	case M:
		return fmt.Sprintf("%.2f m²", value)
	case KM:
		return fmt.Sprintf("%.3f km²", value)
	case IN:
		return fmt.Sprintf("%.2f in²", value)
	case FT:
		return fmt.Sprintf("%.2f ft²", value)
	case MI:
		return fmt.Sprintf("%.2f mi²", value)
	default:
		return fmt.Sprintf("%g %s²", value, unit)
	}
}
