package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/photoscale/photoscale/internal/errors"
)

const exifToolOutput = `[{
  "SourceFile": "DJI_0042.JPG",
  "Make": "DJI",
  "Model": "FC3170",
  "GPSLatitude": 60.1699,
  "GPSLongitude": -24.9384,
  "GPSAltitude": 3.5,
  "GPSAltitudeRef": 1,
  "FocalLength": 4.49,
  "FocalLengthIn35mmFormat": 24,
  "ExifImageWidth": 4000,
  "ExifImageHeight": 3000,
  "DateTimeOriginal": "2024:06:01 12:30:45"
}]`

func TestParseExifToolJSON(t *testing.T) {
	t.Parallel()

	md, err := parseExifToolJSON([]byte(exifToolOutput))
	require.NoError(t, err)

	assert.Equal(t, "DJI", md.Make)
	assert.Equal(t, "FC3170", md.Model)
	require.NotNil(t, md.GPS)
	assert.InDelta(t, 60.1699, md.GPS.Latitude, 1e-12)
	assert.InDelta(t, -24.9384, md.GPS.Longitude, 1e-12)
	require.NotNil(t, md.GPS.AltitudeASL)
	assert.InDelta(t, -3.5, *md.GPS.AltitudeASL, 1e-12, "ref 1 is below sea level")
	assert.InDelta(t, 4.49, md.FocalLength, 1e-12)
	assert.InDelta(t, 24, md.FocalLength35mm, 0)
	assert.Equal(t, 4000, md.ImageWidth)
	assert.Equal(t, 3000, md.ImageHeight)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC), md.CapturedAt)
}

func TestParseExifToolJSONNumericModel(t *testing.T) {
	t.Parallel()

	md, err := parseExifToolJSON([]byte(`[{"Make":"Yuneec","Model":520,"ImageWidth":4000,"ImageHeight":3000}]`))
	require.NoError(t, err)
	assert.Equal(t, "520", md.Model)
	assert.Nil(t, md.GPS)
	assert.Equal(t, 4000, md.ImageWidth)
}

func TestParseExifToolJSONInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "{}", "[]", "not json", `["string"]`} {
		_, err := parseExifToolJSON([]byte(in))
		require.Error(t, err, "input %q", in)
		assert.True(t, perrors.IsCategory(err, perrors.CategoryFileParsing), "input %q", in)
	}
}

func TestExifToolSourceArguments(t *testing.T) {
	t.Parallel()

	var gotArgs []string
	var gotStdin []byte
	src := NewExifToolSource("", 0)
	src.run = func(_ context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
		assert.Equal(t, "exiftool", name)
		gotArgs = args
		gotStdin = stdin
		return []byte(exifToolOutput), nil
	}

	_, err := src.Extract(t.Context(), []byte("bytes"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"-json", "-n", "-"}, gotArgs)
	assert.Equal(t, []byte("bytes"), gotStdin)

	// bytes win over a path that may name an unrelated local file
	_, err = src.Extract(t.Context(), []byte("uploaded bytes without exif"), "upload.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"-json", "-n", "-"}, gotArgs)
	assert.Equal(t, []byte("uploaded bytes without exif"), gotStdin)

	_, err = src.Extract(t.Context(), nil, "/photos/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"-json", "-n", "/photos/a.jpg"}, gotArgs)
	assert.Nil(t, gotStdin)
}

func TestExifToolSourceCommandFailure(t *testing.T) {
	t.Parallel()

	src := NewExifToolSource("exiftool", time.Second)
	src.run = func(context.Context, string, []byte, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}

	_, err := src.Extract(t.Context(), nil, "x.jpg")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryCommandExecution))
}
