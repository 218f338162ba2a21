package metadata

import (
	"bytes"
	"context"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/photoscale/photoscale/internal/errors"
)

// ExifSource reads standard EXIF tags with goexif.
type ExifSource struct{}

// Name implements Source.
func (ExifSource) Name() string { return "exif" }

// Extract implements Source.
func (ExifSource) Extract(ctx context.Context, data []byte, _ string) (*StructuredMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil {
		if err == nil {
			err = errors.NewStd("no EXIF data")
		}
		return nil, errors.New(err).
			Component("metadata").
			Category(errors.CategoryMetadata).
			Context("source", "exif").
			Build()
	}

	out := &StructuredMetadata{
		Make:  tagString(x, exif.Make),
		Model: tagString(x, exif.Model),
	}

	if v, ok := tagRational(x, exif.FocalLength, 0); ok {
		out.FocalLength = v
	}
	if v, ok := tagInt(x, exif.FocalLengthIn35mmFilm); ok {
		out.FocalLength35mm = float64(v)
	}

	out.ImageWidth, _ = firstInt(x, exif.PixelXDimension, exif.ImageWidth)
	out.ImageHeight, _ = firstInt(x, exif.PixelYDimension, exif.ImageLength)

	if t, err := x.DateTime(); err == nil {
		out.CapturedAt = t
	}

	out.GPS = exifGPS(x)

	return out, nil
}

// exifGPS reads the GPS IFD. A fix needs both latitude and longitude.
func exifGPS(x *exif.Exif) *GPSFix {
	lat, okLat := tagDMS(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	lon, okLon := tagDMS(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if !okLat || !okLon {
		return nil
	}

	fix := &GPSFix{Latitude: lat, Longitude: lon}
	if ref, ok := tagInt(x, exif.GPSAltitudeRef); ok {
		fix.AltitudeRef = ref
	}
	if alt, ok := tagRational(x, exif.GPSAltitude, 0); ok {
		fix.AltitudeASL = float64Ptr(signedAltitude(alt, fix.AltitudeRef))
	}
	return fix
}

// signedAltitude applies the EXIF altitude reference; 1 means below sea level.
func signedAltitude(alt float64, ref int) float64 {
	if ref == 1 {
		return -alt
	}
	return alt
}

// DMSToDecimal converts degrees, minutes and seconds to decimal degrees,
// negated for the southern and western hemispheres.
func DMSToDecimal(degrees, minutes, seconds float64, ref string) float64 {
	v := degrees + minutes/60 + seconds/3600
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		return -v
	}
	return v
}

// Rational divides an EXIF [numerator, denominator] pair.
func Rational(num, den int64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

func tagDMS(x *exif.Exif, field, refField exif.FieldName) (float64, bool) {
	tag, err := x.Get(field)
	if err != nil || tag.Count < 3 {
		return 0, false
	}
	var parts [3]float64
	for i := range parts {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, false
		}
		v, ok := Rational(num, den)
		if !ok {
			return 0, false
		}
		parts[i] = v
	}
	return DMSToDecimal(parts[0], parts[1], parts[2], tagString(x, refField)), true
}

func tagString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func tagRational(x *exif.Exif, field exif.FieldName, i int) (float64, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(i)
	if err != nil {
		return 0, false
	}
	return Rational(num, den)
}

func tagInt(x *exif.Exif, field exif.FieldName) (int, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstInt(x *exif.Exif, fields ...exif.FieldName) (int, bool) {
	for _, f := range fields {
		if v, ok := tagInt(x, f); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}
