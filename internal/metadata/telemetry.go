// Package metadata recovers camera identity, GPS position and gimbal
// orientation from photo bytes and classifies drone photos.
//
// Extraction is layered: the vendor XMP packet is scanned first, then a chain
// of structured metadata sources (EXIF, then exiftool) is tried in order, and
// finally the image header is probed for pixel dimensions.
package metadata

import (
	"time"
)

// Confidence grades how well the optical parameters of a photo are known.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// DetectionMethod records where the optical spec came from.
type DetectionMethod string

const (
	MethodDatabase       DetectionMethod = "database"
	MethodEstimated      DetectionMethod = "estimated"
	MethodManualRequired DetectionMethod = "manual_required"
)

// GPSFix is the position recorded in the photo.
type GPSFix struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	AltitudeASL *float64 `json:"altitude_asl,omitempty"`
	// AltitudeRef is 0 above sea level, 1 below. AltitudeASL is already signed.
	AltitudeRef int `json:"altitude_ref"`
}

// Gimbal holds camera orientation in degrees. Pitch -90 points straight down.
type Gimbal struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// OpticalSpec describes a camera's sensor and lens.
type OpticalSpec struct {
	Name             string  `json:"name,omitempty"`
	SensorWidthMM    float64 `json:"sensor_width_mm"`
	SensorHeightMM   float64 `json:"sensor_height_mm"`
	FocalLengthMM    float64 `json:"focal_length_mm"`
	ResolutionWidth  int     `json:"resolution_width"`
	ResolutionHeight int     `json:"resolution_height"`
}

// DroneTelemetry is everything recovered from one photo. It is built once by
// the Extractor and treated as read-only afterwards.
type DroneTelemetry struct {
	IsDrone    bool `json:"is_drone"`
	IsOverhead bool `json:"is_overhead"`

	GPS    *GPSFix `json:"gps,omitempty"`
	Gimbal *Gimbal `json:"gimbal,omitempty"`

	RelativeAltitudeAGL *float64 `json:"relative_altitude_agl,omitempty"`
	AbsoluteAltitudeASL *float64 `json:"absolute_altitude_asl,omitempty"`

	Specs           *OpticalSpec    `json:"specs,omitempty"`
	Confidence      Confidence      `json:"confidence"`
	DetectionMethod DetectionMethod `json:"detection_method"`

	Make            string    `json:"make,omitempty"`
	Model           string    `json:"model,omitempty"`
	FocalLength     float64   `json:"focal_length,omitempty"`
	FocalLength35mm float64   `json:"focal_length_35mm,omitempty"`
	ImageWidth      int       `json:"image_width,omitempty"`
	ImageHeight     int       `json:"image_height,omitempty"`
	CapturedAt      time.Time `json:"captured_at,omitzero"`

	// Sources names the extraction stages that contributed data, in order.
	Sources []string `json:"sources,omitempty"`
}

// DroneAltitudeASL returns the best sea-level altitude of the drone: the
// vendor absolute altitude when present, else the EXIF GPS altitude.
func (t *DroneTelemetry) DroneAltitudeASL() (float64, bool) {
	if t.AbsoluteAltitudeASL != nil {
		return *t.AbsoluteAltitudeASL, true
	}
	if t.GPS != nil && t.GPS.AltitudeASL != nil {
		return *t.GPS.AltitudeASL, true
	}
	return 0, false
}

// Usable reports whether any extraction stage produced data.
func (t *DroneTelemetry) Usable() bool {
	return t.Confidence != ConfidenceNone
}

// StructuredMetadata is the output of one structured metadata source.
type StructuredMetadata struct {
	Make            string
	Model           string
	GPS             *GPSFix
	FocalLength     float64
	FocalLength35mm float64
	ImageWidth      int
	ImageHeight     int
	CapturedAt      time.Time
}

// Empty reports whether the source produced nothing worth keeping.
func (m *StructuredMetadata) Empty() bool {
	return m == nil || (m.Make == "" && m.Model == "" && m.GPS == nil && m.FocalLength == 0 && m.ImageWidth == 0)
}

func float64Ptr(v float64) *float64 {
	return &v
}
