package groundref

import (
	"context"
	"time"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/geodesy"
	"github.com/photoscale/photoscale/internal/location"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/observability/metrics"
)

// Source names where an above-ground altitude came from.
type Source string

const (
	SourceXMPRelative      Source = "xmp_relative"
	SourceDeviceGPS        Source = "device_gps"
	SourceElevationService Source = "elevation_service"
	// SourceUnreferencedASL uses the drone's sea-level altitude as if it
	// were above ground. Only produced when explicitly enabled.
	SourceUnreferencedASL Source = "unreferenced_asl"
)

// DefaultLocationTimeout bounds the device position query.
const DefaultLocationTimeout = 15 * time.Second

// ElevationService looks up ground elevation. nil means "try the next source".
type ElevationService interface {
	GetElevation(ctx context.Context, lat, lon float64) *float64
}

// Resolution is an established above-ground altitude.
type Resolution struct {
	AltitudeAGL float64 `json:"altitude_agl"`
	Source      Source  `json:"source"`
	// Validation is set for sources that compare two positions.
	Validation *Validation `json:"validation,omitempty"`
	// Degraded marks altitudes that are not referenced to the ground.
	Degraded bool `json:"degraded,omitempty"`

	DroneAltitudeASL  *float64           `json:"drone_altitude_asl,omitempty"`
	GroundAltitudeASL *float64           `json:"ground_altitude_asl,omitempty"`
	DevicePosition    *location.Position `json:"device_position,omitempty"`
}

// Usable reports whether the altitude may drive an automatic calibration.
// A skip decision or a non-positive altitude is not usable.
func (r *Resolution) Usable() bool {
	if r == nil || r.AltitudeAGL <= 0 {
		return false
	}
	return r.Validation == nil || r.Validation.Usable()
}

// Decision returns the validation decision; sources without a position
// comparison are auto.
func (r *Resolution) Decision() Decision {
	if r.Validation == nil {
		return DecisionAuto
	}
	return r.Validation.Decision
}

// Config tunes the resolver.
type Config struct {
	LocationTimeout time.Duration
	// AllowASLFallback enables SourceUnreferencedASL as a last resort.
	AllowASLFallback bool
}

// Resolver picks the best available ground reference for a drone photo.
type Resolver struct {
	config    Config
	location  location.Service
	elevation ElevationService
	log       logger.Logger
	metrics   *metrics.CalibrationMetrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithElevation sets the elevation fallback.
func WithElevation(e ElevationService) Option {
	return func(r *Resolver) { r.elevation = e }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithMetrics records decisions, sources and failures.
func WithMetrics(m *metrics.CalibrationMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver builds a resolver. loc may be nil when the host has no
// location service.
func NewResolver(config Config, loc location.Service, opts ...Option) *Resolver {
	if config.LocationTimeout <= 0 {
		config.LocationTimeout = DefaultLocationTimeout
	}
	r := &Resolver{
		config:   config,
		location: loc,
		log:      logger.Global().Module("groundref"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the drone's altitude above ground. Priority: positive XMP
// relative altitude, then the device position, then the elevation service
// at the photo position, then (if enabled) the unreferenced sea-level
// altitude. A skip decision is returned as a Resolution, not an error; every
// failure is an *Error carrying a Reason.
func (r *Resolver) Resolve(ctx context.Context, tel *metadata.DroneTelemetry) (*Resolution, error) {
	if tel == nil {
		return nil, r.fail(&Error{Reason: ReasonDroneGPSMissing})
	}

	if tel.RelativeAltitudeAGL != nil && *tel.RelativeAltitudeAGL > 0 {
		return r.done(&Resolution{AltitudeAGL: *tel.RelativeAltitudeAGL, Source: SourceXMPRelative}), nil
	}

	if tel.GPS == nil {
		return nil, r.fail(&Error{Reason: ReasonDroneGPSMissing})
	}
	droneASL, ok := tel.DroneAltitudeASL()
	if !ok {
		return nil, r.fail(&Error{Reason: ReasonDroneAltitudeMissing})
	}
	photo := geodesy.Coordinate{Latitude: tel.GPS.Latitude, Longitude: tel.GPS.Longitude}

	var attempted []Source
	var primary *Error

	if r.location != nil {
		attempted = append(attempted, SourceDeviceGPS)
		res, err := r.fromDevice(ctx, photo, droneASL)
		if err == nil {
			return r.done(res), nil
		}
		if err.Reason == ReasonCancelled {
			err.Attempted = attempted
			return nil, r.fail(err)
		}
		primary = err
		r.log.Debug("device ground reference failed",
			logger.String("reason", string(err.Reason)),
			logger.Error(err.Err))
	}

	if r.elevation != nil {
		attempted = append(attempted, SourceElevationService)
		if ground := r.elevation.GetElevation(ctx, photo.Latitude, photo.Longitude); ground != nil {
			v := ValidateGroundReference(0)
			return r.done(&Resolution{
				AltitudeAGL:       geodesy.AltitudeDifference(droneASL, *ground),
				Source:            SourceElevationService,
				Validation:        &v,
				DroneAltitudeASL:  &droneASL,
				GroundAltitudeASL: ground,
			}), nil
		}
		if ctx.Err() != nil {
			return nil, r.fail(&Error{Reason: ReasonCancelled, Err: ctx.Err(), Attempted: attempted})
		}
		if primary == nil {
			primary = &Error{Reason: ReasonElevationUnavailable}
		}
	}

	if r.config.AllowASLFallback {
		r.log.Warn("using unreferenced sea-level altitude as ground reference",
			logger.Float64("altitude_asl", droneASL))
		return r.done(&Resolution{
			AltitudeAGL:      droneASL,
			Source:           SourceUnreferencedASL,
			Degraded:         true,
			DroneAltitudeASL: &droneASL,
		}), nil
	}

	if primary == nil {
		primary = &Error{Reason: ReasonLocationUnavailable}
	}
	primary.Attempted = attempted
	return nil, r.fail(primary)
}

func (r *Resolver) fromDevice(ctx context.Context, photo geodesy.Coordinate, droneASL float64) (*Resolution, *Error) {
	lctx, cancel := context.WithTimeout(ctx, r.config.LocationTimeout)
	defer cancel()

	pos, err := r.location.GetCurrentPosition(lctx)
	if err != nil {
		return nil, &Error{Reason: classifyLocationError(ctx, err), Err: err}
	}
	if verr := pos.Validate(); verr != nil {
		return nil, &Error{Reason: ReasonLocationUnavailable, Err: verr}
	}
	if pos.Altitude == nil {
		return nil, &Error{Reason: ReasonDeviceAltitudeMissing}
	}

	v := ValidateCoordinates(photo, geodesy.Coordinate{Latitude: pos.Latitude, Longitude: pos.Longitude})
	return &Resolution{
		AltitudeAGL:       geodesy.AltitudeDifference(droneASL, *pos.Altitude),
		Source:            SourceDeviceGPS,
		Validation:        &v,
		DroneAltitudeASL:  &droneASL,
		GroundAltitudeASL: pos.Altitude,
		DevicePosition:    &pos,
	}, nil
}

// classifyLocationError maps a location failure to a Reason. Cancellation
// by the caller wins over everything else.
func classifyLocationError(parent context.Context, err error) Reason {
	switch {
	case parent.Err() != nil && errors.Is(parent.Err(), context.Canceled):
		return ReasonCancelled
	case errors.Is(err, location.ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, location.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonLocationTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	default:
		return ReasonLocationUnavailable
	}
}

func (r *Resolver) done(res *Resolution) *Resolution {
	r.metrics.RecordGroundSource(string(res.Source))
	r.metrics.RecordGroundDecision(string(res.Decision()))
	fields := []logger.Field{
		logger.String("source", string(res.Source)),
		logger.Float64("altitude_agl", res.AltitudeAGL),
		logger.String("decision", string(res.Decision())),
	}
	if res.Validation != nil {
		fields = append(fields, logger.Float64("distance_m", res.Validation.DistanceMeters))
	}
	r.log.Info("ground reference resolved", fields...)
	return res
}

func (r *Resolver) fail(err *Error) error {
	r.metrics.RecordGroundFailure(string(err.Reason))
	r.log.Info("ground reference unavailable",
		logger.String("reason", string(err.Reason)))
	return err
}
