package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/units"
)

func TestCoinBackProjection(t *testing.T) {
	t.Parallel()

	in := CoinInput{
		CoinID:        "us-quarter",
		ZoomScale:     2.0,
		PanX:          10,
		PanY:          -5,
		CircleRadius:  130,
		CircleCenterX: 200,
		CircleCenterY: 400,
	}
	res, err := ManualEngine{}.Coin(in, DefaultPreferences())
	require.NoError(t, err)

	assert.InDelta(t, (260/2.0)/24.26, res.PixelsPerMM, 1e-12)
	assert.Equal(t, TypeCoin, res.Type)

	circle, ok := res.Source.(*CoinCircle)
	require.True(t, ok)
	assert.InDelta(t, 65, circle.Radius, 1e-12)
	assert.InDelta(t, (200-10)/2.0, circle.CenterX, 1e-12)
	assert.InDelta(t, (400+5)/2.0, circle.CenterY, 1e-12)
	assert.InDelta(t, 24.26, circle.DiameterMM, 0)
	assert.Equal(t, "US Quarter", circle.CoinName)

	// Reference distance is the coin diameter in the display unit (cm for metric).
	assert.Equal(t, units.CM, res.Unit)
	assert.InDelta(t, 2.426, res.ReferenceDistance, 1e-12)
}

func TestCoinUsesPreferences(t *testing.T) {
	t.Parallel()

	prefs := Preferences{LastCoinID: "eur-2", UnitSystem: units.Imperial}
	res, err := ManualEngine{}.Coin(CoinInput{ZoomScale: 1, CircleRadius: 100}, prefs)
	require.NoError(t, err)

	circle := res.Source.(*CoinCircle)
	assert.Equal(t, "eur-2", circle.CoinID)
	assert.InDelta(t, 200/25.75, res.PixelsPerMM, 1e-12)
	assert.Equal(t, units.IN, res.Unit)
}

func TestCoinCustomDiameter(t *testing.T) {
	t.Parallel()

	res, err := ManualEngine{}.Coin(CoinInput{DiameterMM: 20, ZoomScale: 0.5, CircleRadius: 50}, DefaultPreferences())
	require.NoError(t, err)
	assert.InDelta(t, 200.0/20, res.PixelsPerMM, 1e-12)
	assert.Equal(t, "custom", res.Source.(*CoinCircle).CoinID)
}

func TestCoinRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	base := CoinInput{ZoomScale: 1, CircleRadius: 100}
	tests := []struct {
		name   string
		mutate func(*CoinInput)
	}{
		{"zero zoom", func(in *CoinInput) { in.ZoomScale = 0 }},
		{"negative zoom", func(in *CoinInput) { in.ZoomScale = -1 }},
		{"nan zoom", func(in *CoinInput) { in.ZoomScale = math.NaN() }},
		{"zero radius", func(in *CoinInput) { in.CircleRadius = 0 }},
		{"infinite pan", func(in *CoinInput) { in.PanX = math.Inf(1) }},
		{"negative diameter", func(in *CoinInput) { in.DiameterMM = -3 }},
		{"unknown coin", func(in *CoinInput) { in.CoinID = "doubloon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := base
			tt.mutate(&in)
			res, err := ManualEngine{}.Coin(in, DefaultPreferences())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.IsValidation(err))
			assert.Error(t, ValidateCoin(in))
		})
	}
}

func TestBlueprint(t *testing.T) {
	t.Parallel()

	res, err := ManualEngine{}.Blueprint(BlueprintInput{
		Points:   []Point{{X: 10, Y: 10}, {X: 310, Y: 410}},
		Distance: 2,
		Unit:     units.M,
	}, DefaultPreferences())
	require.NoError(t, err)

	assert.InDelta(t, 500.0/2000, res.PixelsPerMM, 1e-12)
	assert.Equal(t, units.M, res.Unit)
	assert.InDelta(t, 2, res.ReferenceDistance, 0)
	assert.InDelta(t, 500.0/2, res.PixelsPerUnit(units.M), 1e-9)

	bp := res.Source.(*BlueprintScale)
	assert.InDelta(t, 500, bp.PixelDistance, 1e-12)
}

func TestBlueprintPixelDistance(t *testing.T) {
	t.Parallel()

	res, err := ManualEngine{}.Blueprint(BlueprintInput{PixelDistance: 254, Distance: 1, Unit: units.IN}, Preferences{})
	require.NoError(t, err)
	assert.InDelta(t, 10, res.PixelsPerMM, 1e-12)
}

func TestBlueprintRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []BlueprintInput{
		{PixelDistance: 0, Distance: 1, Unit: units.M},
		{PixelDistance: 100, Distance: 0, Unit: units.M},
		{PixelDistance: 100, Distance: math.Inf(1), Unit: units.M},
		{PixelDistance: 100, Distance: 1, Unit: "yd"},
		{Points: []Point{{X: 5, Y: 5}, {X: 5, Y: 5}}, Distance: 1, Unit: units.M},
		{Points: []Point{{X: 5, Y: 5}}, Distance: 1, Unit: units.M},
		{Points: []Point{{X: math.NaN(), Y: 5}, {X: 1, Y: 1}}, Distance: 1, Unit: units.M},
	}
	for i, in := range tests {
		_, err := ManualEngine{}.Blueprint(in, Preferences{})
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.IsValidation(err), "case %d", i)
	}
}

func TestVerbal(t *testing.T) {
	t.Parallel()

	decl := 6.5
	res, err := ManualEngine{}.Verbal(VerbalInput{
		ScreenDistance:      1,
		ScreenUnit:          units.CM,
		RealDistance:        2,
		RealUnit:            units.KM,
		ScreenPixelsPerUnit: 118,
		Declination:         &decl,
	}, DefaultPreferences())
	require.NoError(t, err)

	// 11.8 px per map mm, 1 map mm is 200000 real mm.
	assert.InDelta(t, 11.8/200_000, res.PixelsPerMM, 1e-15)
	assert.Equal(t, units.KM, res.Unit)

	vs := res.Source.(*VerbalScale)
	assert.InDelta(t, 200_000, vs.RepresentativeFraction, 1e-6)
	require.NotNil(t, vs.Declination)
	assert.InDelta(t, 6.5, *vs.Declination, 0)

	decl = 99
	assert.InDelta(t, 6.5, *vs.Declination, 0, "declination is copied")
}

func TestVerbalDeclinationDoesNotAffectScale(t *testing.T) {
	t.Parallel()

	in := VerbalInput{ScreenDistance: 1, ScreenUnit: units.IN, RealDistance: 1, RealUnit: units.MI, ScreenPixelsPerUnit: 96}
	plain, err := ManualEngine{}.Verbal(in, Preferences{})
	require.NoError(t, err)

	d := -12.0
	in.Declination = &d
	withDecl, err := ManualEngine{}.Verbal(in, Preferences{})
	require.NoError(t, err)

	assert.InDelta(t, plain.PixelsPerMM, withDecl.PixelsPerMM, 0)
	assert.InDelta(t, 96/25.4*(25.4/1_609_344), plain.PixelsPerMM, 1e-15)
}

func TestVerbalRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	base := VerbalInput{ScreenDistance: 1, ScreenUnit: units.CM, RealDistance: 1, RealUnit: units.KM, ScreenPixelsPerUnit: 10}
	bad := func(f func(*VerbalInput)) VerbalInput { in := base; f(&in); return in }
	out := 181.0
	tests := []VerbalInput{
		bad(func(in *VerbalInput) { in.ScreenDistance = 0 }),
		bad(func(in *VerbalInput) { in.RealDistance = -1 }),
		bad(func(in *VerbalInput) { in.ScreenPixelsPerUnit = math.NaN() }),
		bad(func(in *VerbalInput) { in.ScreenUnit = units.KM }),
		bad(func(in *VerbalInput) { in.RealUnit = units.MM }),
		bad(func(in *VerbalInput) { in.Declination = &out }),
	}
	for i, in := range tests {
		_, err := ManualEngine{}.Verbal(in, Preferences{})
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.IsValidation(err), "case %d", i)
	}
}
