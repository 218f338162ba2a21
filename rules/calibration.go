//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// mathPackages are the packages computing scales, distances and unit
// conversions.
const mathPackages = `internal/(calibration|geodesy|units|groundref)$`

// FloatEquality flags == and != between two computed float64 values in the
// measurement math. Comparisons against a constant such as 0 stay allowed.
//
// Use a tolerance instead:
//
//	math.Abs(a-b) < 1e-9
func FloatEquality(m dsl.Matcher) {
	m.Match(`$x == $y`, `$x != $y`).
		Where(m.File().PkgPath.Matches(mathPackages) &&
			!m.File().Name.Matches(`_test\.go$`) &&
			m["x"].Type.Is("float64") && m["y"].Type.Is("float64") &&
			!m["x"].Const && !m["y"].Const).
		Report("float64 compared with $$; compare against a tolerance")
}

// SquareWithPow flags math.Pow with a literal exponent of 2.
func SquareWithPow(m dsl.Matcher) {
	m.Match(`math.Pow($x, 2)`, `math.Pow($x, 2.0)`).
		Where(m["x"].Pure).
		Report("use $x * $x instead of math.Pow($x, 2)").
		Suggest("$x * $x")
}

// PlanarDistance flags hand written Euclidean distances.
func PlanarDistance(m dsl.Matcher) {
	m.Match(`math.Sqrt($dx*$dx + $dy*$dy)`).
		Where(m["dx"].Pure && m["dy"].Pure).
		Report("use math.Hypot($dx, $dy)").
		Suggest("math.Hypot($dx, $dy)")
}

// ErrorsBuilder flags fmt.Errorf in the domain packages, which report
// through the internal errors builder so every error carries a component and
// a category.
func ErrorsBuilder(m dsl.Matcher) {
	m.Match(`fmt.Errorf($*_)`).
		Where(m.File().PkgPath.Matches(`internal/(app|calibration|datastore|elevation|geodesy|groundref|location|metadata|session|units)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("use errors.Newf(...).Component(...).Category(...).Build() instead of fmt.Errorf")
}
