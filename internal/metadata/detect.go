package metadata

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// GimbalAltitudeThreshold is the GPS altitude above which gimbal data alone
// marks a photo as taken from a drone.
const GimbalAltitudeThreshold = 50.0

var droneManufacturers = []string{
	"DJI",
	"Autel",
	"Autel Robotics",
	"Parrot",
	"Skydio",
	"Yuneec",
	"Hasselblad",
	"senseFly",
	"PowerVision",
	"FIMI",
	"Hubsan",
	"Holy Stone",
	"Potensic",
	"Ryze",
}

var droneModelPattern = regexp.MustCompile(
	`(?i)^(FC\d{3,4}[A-Z]?|L[12]D-20c|M3[ETM]|M30T?|ZH20[TN]?|XT2|H20[TN]?|` +
		`mavic.*|phantom.*|inspire.*|matrice.*|mini\s?\d.*|air\s?2s?|evo.*|anafi.*|bebop.*|typhoon.*)$`,
)

var caseFolder = cases.Fold()

var droneMakeSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(droneManufacturers))
	for _, name := range droneManufacturers {
		m[foldKey(name)] = struct{}{}
	}
	return m
}()

func foldKey(s string) string {
	return caseFolder.String(strings.TrimSpace(s))
}

// IsDroneManufacturer reports whether cameraMake is on the drone allowlist.
// Makes like "DJI Technology" are matched on their first word as well.
func IsDroneManufacturer(cameraMake string) bool {
	key := foldKey(cameraMake)
	if key == "" {
		return false
	}
	if _, ok := droneMakeSet[key]; ok {
		return true
	}
	if first, _, found := strings.Cut(key, " "); found {
		_, ok := droneMakeSet[first]
		return ok
	}
	return false
}

// IsDroneModel reports whether model matches a known drone camera pattern.
func IsDroneModel(model string) bool {
	model = strings.TrimSpace(model)
	return model != "" && droneModelPattern.MatchString(model)
}

// DetectDrone classifies a photo. GPS is required; beyond that the make,
// the model, or gimbal data combined with a GPS altitude over 50 m is
// evidence. A high GPS altitude on its own is not.
func DetectDrone(cameraMake, model string, gps *GPSFix, gimbal *Gimbal) bool {
	if gps == nil {
		return false
	}
	if IsDroneManufacturer(cameraMake) || IsDroneModel(model) {
		return true
	}
	return gimbal != nil && gps.AltitudeASL != nil && *gps.AltitudeASL > GimbalAltitudeThreshold
}
