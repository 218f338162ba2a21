package metadata

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/observability/metrics"
)

func newTestExtractor(t *testing.T, sources ...Source) *Extractor {
	t.Helper()
	m, err := metrics.NewCalibrationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return NewExtractor(NewChain(sources...),
		WithLogger(logger.NewDiscardLogger()),
		WithMetrics(m))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestExtractXMPRelativeAltitude(t *testing.T) {
	t.Parallel()

	exif := &fakeSource{name: "exif", md: &StructuredMetadata{
		Make:        "DJI",
		Model:       "FC3582",
		GPS:         &GPSFix{Latitude: 60.17, Longitude: 24.94, AltitudeASL: float64Ptr(112.25)},
		ImageWidth:  4032,
		ImageHeight: 3024,
	}}
	e := newTestExtractor(t, exif)

	tel, err := e.Extract(t.Context(), []byte(djiElementPacket), "")
	require.NoError(t, err)

	require.NotNil(t, tel.RelativeAltitudeAGL)
	assert.InDelta(t, 30.5, *tel.RelativeAltitudeAGL, 1e-12)
	assert.True(t, tel.IsDrone)
	assert.True(t, tel.IsOverhead)
	assert.Equal(t, ConfidenceHigh, tel.Confidence)
	assert.Equal(t, MethodDatabase, tel.DetectionMethod)
	assert.Equal(t, []string{"xmp", "exif"}, tel.Sources)
	require.NotNil(t, tel.Specs)
	assert.InDelta(t, 9.6, tel.Specs.SensorWidthMM, 0)
}

func TestExtractNothingUsable(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, &fakeSource{name: "exif", err: assert.AnError})

	tel, err := e.Extract(t.Context(), []byte("plain bytes"), "")
	require.NoError(t, err, "no metadata is a classification, not an error")
	assert.Equal(t, ConfidenceNone, tel.Confidence)
	assert.Equal(t, MethodManualRequired, tel.DetectionMethod)
	assert.False(t, tel.Usable())
	assert.False(t, tel.IsDrone)
	assert.Nil(t, tel.Specs)
}

func TestExtractGroundPhotoNotDrone(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, &fakeSource{name: "exif", md: &StructuredMetadata{
		Model: "Unknown Cam",
		GPS:   &GPSFix{Latitude: 45.83, Longitude: 6.86, AltitudeASL: float64Ptr(2000)},
	}})

	tel, err := e.Extract(t.Context(), pngBytes(t, 400, 300), "")
	require.NoError(t, err)
	assert.False(t, tel.IsDrone)
	assert.False(t, tel.IsOverhead)
	assert.Equal(t, 400, tel.ImageWidth, "dimensions come from the header probe")
	assert.Contains(t, tel.Sources, "header")
	assert.Equal(t, ConfidenceMedium, tel.Confidence)
}

func TestExtractGimbalUsesXMPAltitudeForDetection(t *testing.T) {
	t.Parallel()

	packet := `<x:xmpmeta><drone:AbsoluteAltitude>300</drone:AbsoluteAltitude>` +
		`<drone:GimbalPitchDegree>-90</drone:GimbalPitchDegree></x:xmpmeta>`
	e := newTestExtractor(t, &fakeSource{name: "exif", md: &StructuredMetadata{
		GPS: &GPSFix{Latitude: 1, Longitude: 2},
	}})

	tel, err := e.Extract(t.Context(), []byte(packet), "")
	require.NoError(t, err)
	assert.True(t, tel.IsDrone)
	alt, ok := tel.DroneAltitudeASL()
	require.True(t, ok)
	assert.InDelta(t, 300, alt, 0)
}

func TestExtractFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte(djiAttributePacket), 0o600))

	e := newTestExtractor(t)
	tel, err := e.ExtractFile(t.Context(), path)
	require.NoError(t, err)
	require.NotNil(t, tel.RelativeAltitudeAGL)
	assert.InDelta(t, 60.2, *tel.RelativeAltitudeAGL, 1e-12)
	assert.False(t, tel.IsDrone, "no GPS fix in the packet")

	_, err = e.ExtractFile(t.Context(), filepath.Join(dir, "missing.jpg"))
	require.Error(t, err)
	assert.True(t, perrors.IsNotFound(err))
}

func TestExtractPipesBytesToExifTool(t *testing.T) {
	t.Parallel()

	var gotArgs []string
	var gotStdin []byte
	tool := NewExifToolSource("", 0)
	tool.run = func(_ context.Context, _ string, stdin []byte, args ...string) ([]byte, error) {
		gotArgs, gotStdin = args, stdin
		return []byte(exifToolOutput), nil
	}
	e := newTestExtractor(t, ExifSource{}, tool)

	data := []byte("uploaded bytes without exif")
	tel, err := e.Extract(t.Context(), data, "upload.jpg")
	require.NoError(t, err)

	assert.Equal(t, []string{"-json", "-n", "-"}, gotArgs)
	assert.Equal(t, data, gotStdin)
	assert.Equal(t, "DJI", tel.Make)
	assert.Contains(t, tel.Sources, "exiftool")
}

func TestExtractCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newTestExtractor(t, &fakeSource{name: "exif"}).Extract(ctx, nil, "")
	require.Error(t, err)
}

func TestProbeDimensions(t *testing.T) {
	t.Parallel()

	w, h, format, ok := ProbeDimensions(pngBytes(t, 64, 48))
	require.True(t, ok)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
	assert.Equal(t, "png", format)

	_, _, _, ok = ProbeDimensions([]byte("nope"))
	assert.False(t, ok)
}
