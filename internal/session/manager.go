package session

import (
	"context"
	"time"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/groundref"
	"github.com/photoscale/photoscale/internal/location"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/observability/metrics"
)

// TelemetryExtractor reads drone telemetry from a photo.
type TelemetryExtractor interface {
	ExtractFile(ctx context.Context, path string) (*metadata.DroneTelemetry, error)
	Extract(ctx context.Context, data []byte, path string) (*metadata.DroneTelemetry, error)
}

// GroundResolver establishes the drone's altitude above ground.
type GroundResolver interface {
	Resolve(ctx context.Context, tel *metadata.DroneTelemetry) (*groundref.Resolution, error)
}

// PreferenceStore persists the user preferences the manual engine reads.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context) (calibration.Preferences, error)
	SavePreferences(ctx context.Context, prefs calibration.Preferences) error
}

// ResolverFactory builds a resolver around a device location service.
type ResolverFactory func(loc location.Service) GroundResolver

// Manager runs calibration attempts. It is safe for concurrent use; every
// attempt gets its own Session.
type Manager struct {
	extractor   TelemetryExtractor
	newResolver ResolverFactory
	location    location.Service
	drone       *calibration.DroneEngine
	manual      calibration.ManualEngine
	prefs       PreferenceStore
	sinks       []Sink
	metrics     *metrics.CalibrationMetrics
	log         logger.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithSinks adds completion sinks.
func WithSinks(sinks ...Sink) Option {
	return func(m *Manager) {
		for _, s := range sinks {
			if s != nil {
				m.sinks = append(m.sinks, s)
			}
		}
	}
}

// WithPreferenceStore loads and saves preferences around manual attempts.
func WithPreferenceStore(p PreferenceStore) Option {
	return func(m *Manager) { m.prefs = p }
}

// WithDroneOptions configures the drone engine.
func WithDroneOptions(opts calibration.DroneOptions) Option {
	return func(m *Manager) { m.drone = calibration.NewDroneEngine(opts) }
}

// WithLocation sets the default device location service.
func WithLocation(loc location.Service) Option {
	return func(m *Manager) { m.location = loc }
}

// WithMetrics records attempts and scales.
func WithMetrics(mt *metrics.CalibrationMetrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a manager extracting with extractor and resolving
// ground references with resolvers built by newResolver.
func NewManager(extractor TelemetryExtractor, newResolver ResolverFactory, opts ...Option) *Manager {
	m := &Manager{
		extractor:   extractor,
		newResolver: newResolver,
		drone:       calibration.NewDroneEngine(calibration.DroneOptions{}),
		log:         logger.Global().Module("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DroneRequest is one drone photo. Data takes precedence over Path when
// both are set.
type DroneRequest struct {
	Path string
	Data []byte
	// Location overrides the manager's device location for this photo, for
	// example a fix sent along with an upload.
	Location location.Service
}

// Telemetry extracts telemetry without calibrating.
func (m *Manager) Telemetry(ctx context.Context, req DroneRequest) (*metadata.DroneTelemetry, error) {
	if req.Data != nil {
		return m.extractor.Extract(ctx, req.Data, req.Path)
	}
	return m.extractor.ExtractFile(ctx, req.Path)
}

// Drone runs extraction, ground reference resolution and GSD computation,
// then completes the session in one step. Photos that cannot be calibrated
// automatically yield an Outcome with a Failure and a nil error; the error
// is reserved for I/O failures and cancellation.
func (m *Manager) Drone(ctx context.Context, req DroneRequest) (*Outcome, error) {
	start := time.Now()
	s := newSession(calibration.TypeDrone, m.sinks, m.log)
	out := &Outcome{SessionID: s.ID, Type: calibration.TypeDrone}

	tel, err := m.Telemetry(ctx, req)
	if err != nil {
		m.record(calibration.TypeDrone, metrics.StatusError, start)
		return nil, err
	}
	out.Telemetry = tel

	// Only photos the engine could accept are worth a location query.
	if tel.Usable() && tel.IsDrone {
		resolver := m.resolver(req.Location)
		ref, err := resolver.Resolve(ctx, tel)
		if err != nil {
			reason, ok := groundref.ReasonOf(err)
			if !ok || reason == groundref.ReasonCancelled {
				m.record(calibration.TypeDrone, metrics.StatusError, start)
				return nil, err
			}
			return m.fail(s, out, &Failure{
				Kind:   FailureGroundReference,
				Reason: string(reason),
				Remedy: reason.Remedy(),
				Err:    err,
			}, start)
		}
		out.Resolution = ref
	}

	res, event, err := m.drone.Calibrate(tel, out.Resolution)
	if err != nil {
		if errors.Is(err, calibration.ErrManualRequired) {
			return m.fail(s, out, &Failure{
				Kind:   FailureManualRequired,
				Reason: calibration.ManualReason(err),
				Err:    err,
			}, start)
		}
		m.record(calibration.TypeDrone, metrics.StatusError, start)
		return nil, err
	}

	return m.complete(ctx, s, out, res, event, start)
}

// Coin calibrates from a coin placed under the reference circle and
// remembers the coin for next time.
func (m *Manager) Coin(ctx context.Context, in calibration.CoinInput) (*Outcome, error) {
	start := time.Now()
	prefs := m.loadPreferences(ctx)

	res, err := m.manual.Coin(in, prefs)
	if err != nil {
		m.record(calibration.TypeCoin, metrics.StatusError, start)
		return nil, err
	}

	if circle, ok := res.Source.(*calibration.CoinCircle); ok && circle.CoinID != prefs.LastCoinID {
		if updated, err := prefs.WithCoin(circle.CoinID); err == nil {
			m.savePreferences(ctx, updated)
		}
	}

	s := newSession(calibration.TypeCoin, m.sinks, m.log)
	return m.complete(ctx, s, &Outcome{SessionID: s.ID, Type: calibration.TypeCoin}, res, nil, start)
}

// Blueprint calibrates from two points a known distance apart.
func (m *Manager) Blueprint(ctx context.Context, in calibration.BlueprintInput) (*Outcome, error) {
	start := time.Now()
	res, err := m.manual.Blueprint(in, m.loadPreferences(ctx))
	if err != nil {
		m.record(calibration.TypeBlueprint, metrics.StatusError, start)
		return nil, err
	}
	s := newSession(calibration.TypeBlueprint, m.sinks, m.log)
	return m.complete(ctx, s, &Outcome{SessionID: s.ID, Type: calibration.TypeBlueprint}, res, nil, start)
}

// Verbal calibrates from a map's verbal scale.
func (m *Manager) Verbal(ctx context.Context, in calibration.VerbalInput) (*Outcome, error) {
	start := time.Now()
	res, err := m.manual.Verbal(in, m.loadPreferences(ctx))
	if err != nil {
		m.record(calibration.TypeVerbal, metrics.StatusError, start)
		return nil, err
	}
	s := newSession(calibration.TypeVerbal, m.sinks, m.log)
	return m.complete(ctx, s, &Outcome{SessionID: s.ID, Type: calibration.TypeVerbal}, res, nil, start)
}

// Preferences returns the stored preferences, or the defaults.
func (m *Manager) Preferences(ctx context.Context) calibration.Preferences {
	return m.loadPreferences(ctx)
}

func (m *Manager) resolver(loc location.Service) GroundResolver {
	if loc == nil {
		loc = m.location
	}
	if m.newResolver == nil {
		return groundref.NewResolver(groundref.Config{}, loc, groundref.WithLogger(m.log), groundref.WithMetrics(m.metrics))
	}
	return m.newResolver(loc)
}

func (m *Manager) complete(ctx context.Context, s *Session, out *Outcome, res *calibration.Result, event *calibration.CompletionEvent, start time.Time) (*Outcome, error) {
	if _, err := s.Complete(ctx, res, event); err != nil {
		m.record(s.Type, metrics.StatusError, start)
		return nil, err
	}
	out.Result = res
	out.Event = event
	m.record(s.Type, metrics.StatusSuccess, start)
	m.metrics.RecordScale(string(s.Type), res.PixelsPerMM)
	return out, nil
}

func (m *Manager) fail(s *Session, out *Outcome, f *Failure, start time.Time) (*Outcome, error) {
	if err := s.Fail(f); err != nil {
		return nil, err
	}
	out.Failure = f
	m.record(s.Type, metrics.StatusSkipped, start)
	return out, nil
}

func (m *Manager) record(t calibration.Type, status string, start time.Time) {
	m.metrics.RecordCalibration(string(t), status, time.Since(start).Seconds())
}

func (m *Manager) loadPreferences(ctx context.Context) calibration.Preferences {
	if m.prefs == nil {
		return calibration.DefaultPreferences()
	}
	prefs, err := m.prefs.LoadPreferences(ctx)
	if err != nil {
		m.log.Warn("failed to load preferences, using defaults", logger.Error(err))
		return calibration.DefaultPreferences()
	}
	return prefs
}

func (m *Manager) savePreferences(ctx context.Context, prefs calibration.Preferences) {
	if m.prefs == nil {
		return
	}
	if err := m.prefs.SavePreferences(ctx, prefs); err != nil {
		m.log.Warn("failed to save preferences", logger.Error(err))
	}
}
