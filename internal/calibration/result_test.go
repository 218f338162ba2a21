package calibration

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/units"
)

func TestNewResultValidates(t *testing.T) {
	t.Parallel()

	src := &BlueprintScale{PixelDistance: 100, RealDistance: 1, RealUnit: units.M}
	tests := []struct {
		name string
		ppmm float64
		unit units.Unit
		ref  float64
		src  SourceMetadata
	}{
		{"zero scale", 0, units.M, 1, src},
		{"negative scale", -1, units.M, 1, src},
		{"nan scale", math.NaN(), units.M, 1, src},
		{"infinite scale", math.Inf(1), units.M, 1, src},
		{"zero reference", 1, units.M, 0, src},
		{"bad unit", 1, "furlong", 1, src},
		{"no source", 1, units.M, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := NewResult(tt.ppmm, tt.unit, tt.ref, tt.src)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestNewResultAssignsIdentity(t *testing.T) {
	t.Parallel()

	src := &BlueprintScale{PixelDistance: 100, RealDistance: 1, RealUnit: units.M}
	a, err := NewResult(0.1, units.M, 1, src)
	require.NoError(t, err)
	b, err := NewResult(0.1, units.M, 1, src)
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, TypeBlueprint, a.Type)
	assert.WithinDuration(t, time.Now(), a.CreatedAt, time.Minute)
}

func TestResultConversions(t *testing.T) {
	t.Parallel()

	res, err := NewResult(4, units.CM, 2.5, &CoinCircle{DiameterMM: 25, Radius: 50})
	require.NoError(t, err)

	assert.InDelta(t, 40, res.PixelsPerUnit(units.CM), 1e-12)
	assert.InDelta(t, 101.6, res.PixelsPerUnit(units.IN), 1e-12)
	assert.InDelta(t, 25, res.Measure(100), 1e-12)
	assert.InDelta(t, 6.25, res.MeasureArea(100), 1e-12)
	assert.Equal(t, "25 mm", res.FormatDistance(100, units.Metric))
}

func TestResultJSONRoundTrip(t *testing.T) {
	t.Parallel()

	decl := -3.5
	originals := []SourceMetadata{
		&CoinCircle{CoinID: "us-quarter", CoinName: "US Quarter", DiameterMM: 24.26, CenterX: 95, CenterY: 202.5, Radius: 65, ZoomScale: 2},
		&BlueprintScale{PixelDistance: 500, RealDistance: 2, RealUnit: units.M, Points: []Point{{X: 1, Y: 2}, {X: 301, Y: 402}}},
		&VerbalScale{ScreenDistance: 1, ScreenUnit: units.CM, RealDistance: 2, RealUnit: units.KM, ScreenPixelsPerUnit: 118, RepresentativeFraction: 200_000, Declination: &decl},
		&DroneTelemetry{AltitudeAGL: 50, GSDCm: 1.37, CoverageWidthM: 75, ImageWidth: 5472, ImageHeight: 3648, Model: "FC6310"},
	}
	for _, src := range originals {
		res, err := NewResult(0.5, units.M, 1, src)
		require.NoError(t, err)

		data, err := json.Marshal(res)
		require.NoError(t, err)

		var decoded Result
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, res.ID, decoded.ID)
		assert.Equal(t, res.Type, decoded.Type)
		assert.Equal(t, res.Source, decoded.Source)
		assert.True(t, res.CreatedAt.Equal(decoded.CreatedAt))
	}
}

func TestResultUnmarshalRejects(t *testing.T) {
	t.Parallel()

	var r Result
	err := json.Unmarshal([]byte(`{"id":"x","pixels_per_mm":1,"unit":"m","reference_distance":1,"type":"laser","source":{}}`), &r)
	require.Error(t, err)

	err = json.Unmarshal([]byte(`{"id":"x","pixels_per_mm":-1,"unit":"m","reference_distance":1,"type":"coin","source":{}}`), &r)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	err = json.Unmarshal([]byte(`{"id":"x","pixels_per_mm":1,"unit":"m","reference_distance":1,"type":"coin","source":[]}`), &r)
	require.Error(t, err)
}

func TestTypeValid(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeCoin, TypeVerbal, TypeBlueprint, TypeDrone} {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, Type("laser").Valid())
}
