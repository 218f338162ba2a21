// Package geodesy holds the spherical-earth math used to compare a drone
// photo's position with the device that is standing in for the ground.
package geodesy

import "math"

// EarthRadiusMeters is the mean earth radius used by HaversineDistance.
const EarthRadiusMeters = 6_371_000.0

const degToRad = math.Pi / 180

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is finite and inside the lat/lon ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// HaversineDistance returns the great-circle distance in metres between two
// points given in decimal degrees.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*sinLon*sinLon
	a = math.Min(1, a)

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Distance is HaversineDistance for two coordinates.
func Distance(a, b Coordinate) float64 {
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// AltitudeDifference returns upper minus lower, in the units given.
func AltitudeDifference(upper, lower float64) float64 {
	return upper - lower
}
