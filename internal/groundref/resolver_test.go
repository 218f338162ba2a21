package groundref

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/location"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/metadata"
)

func f64(v float64) *float64 { return &v }

func droneTelemetry(asl float64) *metadata.DroneTelemetry {
	return &metadata.DroneTelemetry{
		IsDrone:    true,
		IsOverhead: true,
		GPS:        &metadata.GPSFix{Latitude: 60.0, Longitude: 25.0, AltitudeASL: f64(asl)},
	}
}

type fakeElevation struct {
	value *float64
	calls int
}

func (f *fakeElevation) GetElevation(context.Context, float64, float64) *float64 {
	f.calls++
	return f.value
}

func newResolver(cfg Config, loc location.Service, opts ...Option) *Resolver {
	opts = append([]Option{WithLogger(logger.NewDiscardLogger())}, opts...)
	return NewResolver(cfg, loc, opts...)
}

func TestResolveXMPRelativeWins(t *testing.T) {
	t.Parallel()

	tel := droneTelemetry(150)
	tel.RelativeAltitudeAGL = f64(30.5)
	elev := &fakeElevation{value: f64(10)}
	loc := location.ServiceFunc(func(context.Context) (location.Position, error) {
		t.Fatal("device location must not be queried")
		return location.Position{}, nil
	})

	res, err := newResolver(Config{}, loc, WithElevation(elev)).Resolve(t.Context(), tel)
	require.NoError(t, err)
	assert.Equal(t, SourceXMPRelative, res.Source)
	assert.InDelta(t, 30.5, res.AltitudeAGL, 0)
	assert.Nil(t, res.Validation)
	assert.True(t, res.Usable())
	assert.Equal(t, 0, elev.calls)
}

func TestResolveNonPositiveRelativeIsIgnored(t *testing.T) {
	t.Parallel()

	tel := droneTelemetry(150)
	tel.RelativeAltitudeAGL = f64(0)
	loc := location.NewStaticService(&location.Position{Latitude: 60.0, Longitude: 25.0, Altitude: f64(100)})

	res, err := newResolver(Config{}, loc).Resolve(t.Context(), tel)
	require.NoError(t, err)
	assert.Equal(t, SourceDeviceGPS, res.Source)
}

func TestResolveDeviceDecisions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		deviceLat float64
		decision  Decision
		usable    bool
	}{
		{"same spot", 60.0, DecisionAuto, true},
		{"a few hundred metres", 60.003, DecisionPrompt, true},
		{"kilometres away", 60.02, DecisionSkip, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			loc := location.NewStaticService(&location.Position{Latitude: tt.deviceLat, Longitude: 25.0, Altitude: f64(20)})
			res, err := newResolver(Config{}, loc).Resolve(t.Context(), droneTelemetry(80))
			require.NoError(t, err, "skip is a resolution, not an error")
			assert.Equal(t, SourceDeviceGPS, res.Source)
			assert.InDelta(t, 60, res.AltitudeAGL, 1e-12)
			assert.Equal(t, tt.decision, res.Decision())
			assert.Equal(t, tt.usable, res.Usable())
			require.NotNil(t, res.DevicePosition)
		})
	}
}

func TestResolveDroneBelowDeviceNotUsable(t *testing.T) {
	t.Parallel()

	loc := location.NewStaticService(&location.Position{Latitude: 60, Longitude: 25, Altitude: f64(300)})
	res, err := newResolver(Config{}, loc).Resolve(t.Context(), droneTelemetry(250))
	require.NoError(t, err)
	assert.InDelta(t, -50, res.AltitudeAGL, 1e-12)
	assert.False(t, res.Usable())
}

func TestResolveFailureReasons(t *testing.T) {
	t.Parallel()

	failing := func(err error) location.Service {
		return location.ServiceFunc(func(context.Context) (location.Position, error) {
			return location.Position{}, err
		})
	}

	tests := []struct {
		name string
		tel  *metadata.DroneTelemetry
		loc  location.Service
		want Reason
	}{
		{"permission", droneTelemetry(100), failing(location.ErrPermissionDenied), ReasonPermissionDenied},
		{"services disabled", droneTelemetry(100), location.DisabledService{}, ReasonLocationUnavailable},
		{"timeout", droneTelemetry(100), failing(location.ErrTimeout), ReasonLocationTimeout},
		{"wrapped permission", droneTelemetry(100),
			failing(errors.New(location.ErrPermissionDenied).Component("location").Build()), ReasonPermissionDenied},
		{"no fix", droneTelemetry(100), location.NewStaticService(nil), ReasonLocationUnavailable},
		{"device altitude missing", droneTelemetry(100),
			location.NewStaticService(&location.Position{Latitude: 60, Longitude: 25}), ReasonDeviceAltitudeMissing},
		{"no location service", droneTelemetry(100), nil, ReasonLocationUnavailable},
		{"drone gps missing", &metadata.DroneTelemetry{IsDrone: true}, location.DisabledService{}, ReasonDroneGPSMissing},
		{"drone altitude missing", &metadata.DroneTelemetry{GPS: &metadata.GPSFix{Latitude: 1, Longitude: 1}},
			location.DisabledService{}, ReasonDroneAltitudeMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := newResolver(Config{}, tt.loc).Resolve(t.Context(), tt.tel)
			require.Error(t, err)
			assert.Nil(t, res)
			reason, ok := ReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, reason)
			assert.True(t, errors.IsCategory(errors.New(err).Build(), errors.CategoryGroundReference))
		})
	}
}

func TestResolveElevationFallback(t *testing.T) {
	t.Parallel()

	elev := &fakeElevation{value: f64(35)}
	loc := location.ServiceFunc(func(context.Context) (location.Position, error) {
		return location.Position{}, location.ErrPermissionDenied
	})

	res, err := newResolver(Config{}, loc, WithElevation(elev)).Resolve(t.Context(), droneTelemetry(95))
	require.NoError(t, err)
	assert.Equal(t, SourceElevationService, res.Source)
	assert.InDelta(t, 60, res.AltitudeAGL, 1e-12)
	assert.Equal(t, DecisionAuto, res.Decision())
	assert.False(t, res.Degraded)
	assert.Equal(t, 1, elev.calls)
}

func TestResolveElevationFailureKeepsDeviceReason(t *testing.T) {
	t.Parallel()

	elev := &fakeElevation{}
	loc := location.NewStaticService(&location.Position{Latitude: 60, Longitude: 25})

	_, err := newResolver(Config{}, loc, WithElevation(elev)).Resolve(t.Context(), droneTelemetry(95))
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ReasonDeviceAltitudeMissing, gerr.Reason)
	assert.Equal(t, []Source{SourceDeviceGPS, SourceElevationService}, gerr.Attempted)

	_, err = newResolver(Config{}, nil, WithElevation(elev)).Resolve(t.Context(), droneTelemetry(95))
	reason, _ := ReasonOf(err)
	assert.Equal(t, ReasonElevationUnavailable, reason)
}

func TestResolveDegradedFallbackIsLabelled(t *testing.T) {
	t.Parallel()

	res, err := newResolver(Config{AllowASLFallback: true}, location.DisabledService{}).
		Resolve(t.Context(), droneTelemetry(120))
	require.NoError(t, err)
	assert.Equal(t, SourceUnreferencedASL, res.Source)
	assert.True(t, res.Degraded)
	assert.InDelta(t, 120, res.AltitudeAGL, 0)
}

func TestResolveLocationTimeout(t *testing.T) {
	t.Parallel()

	blocking := location.ServiceFunc(func(ctx context.Context) (location.Position, error) {
		<-ctx.Done()
		return location.Position{}, ctx.Err()
	})

	start := time.Now()
	_, err := newResolver(Config{LocationTimeout: 20 * time.Millisecond}, blocking).
		Resolve(t.Context(), droneTelemetry(100))
	reason, _ := ReasonOf(err)
	assert.Equal(t, ReasonLocationTimeout, reason)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveCancelledByCaller(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	blocking := location.ServiceFunc(func(ctx context.Context) (location.Position, error) {
		close(started)
		<-ctx.Done()
		return location.Position{}, ctx.Err()
	})
	elev := &fakeElevation{value: f64(1)}

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		_, err := newResolver(Config{LocationTimeout: time.Minute}, blocking, WithElevation(elev)).
			Resolve(ctx, droneTelemetry(100))
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		reason, ok := ReasonOf(err)
		require.True(t, ok)
		assert.Equal(t, ReasonCancelled, reason)
		assert.True(t, errors.IsCategory(errors.New(err).Build(), errors.CategoryCancellation))
		assert.Equal(t, 0, elev.calls, "cancellation stops the fallback chain")
	case <-time.After(5 * time.Second):
		t.Fatal("resolver did not return after cancellation")
	}
}
