// Package app assembles the calibration components from settings. The CLI
// commands and the HTTP server share one App per process.
package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/datastore"
	"github.com/photoscale/photoscale/internal/elevation"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/groundref"
	"github.com/photoscale/photoscale/internal/httpclient"
	"github.com/photoscale/photoscale/internal/location"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/mqtt"
	"github.com/photoscale/photoscale/internal/observability"
	"github.com/photoscale/photoscale/internal/session"
	"github.com/photoscale/photoscale/internal/units"
)

// sentryFlushTimeout bounds how long Close waits for queued error reports.
const sentryFlushTimeout = 2 * time.Second

// App owns the long-lived components built from one Settings.
type App struct {
	Settings  *conf.Settings
	Build     *buildinfo.Context
	Metrics   *observability.Metrics
	Extractor *metadata.Extractor
	Manager   *session.Manager

	// Optional components, nil when disabled in settings.
	Elevation *elevation.Client
	Store     datastore.Interface
	MQTT      mqtt.Client
	Publisher *mqtt.Publisher
	Device    *location.StaticService

	log    logger.Logger
	sentry bool
}

// Option adjusts how an App is assembled.
type Option func(*options)

type options struct {
	skipStore bool
	skipMQTT  bool
	sinks     []session.Sink
}

// WithoutDatastore leaves calibration history and preferences in memory,
// for commands that must not touch the database.
func WithoutDatastore() Option {
	return func(o *options) { o.skipStore = true }
}

// WithoutMQTT disables publishing regardless of settings.
func WithoutMQTT() Option {
	return func(o *options) { o.skipMQTT = true }
}

// WithSinks adds completion sinks after the configured ones.
func WithSinks(sinks ...session.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sinks...) }
}

// New builds every enabled component. On error the components built so far
// are closed.
func New(settings *conf.Settings, build *buildinfo.Context, opts ...Option) (a *App, err error) {
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a = &App{
		Settings: settings,
		Build:    build,
		log:      logger.Global().Module("app"),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if settings.Sentry.Enabled {
		if err := a.initSentry(); err != nil {
			return nil, err
		}
	}

	if a.Metrics, err = observability.NewMetrics(); err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_metrics").
			Build()
	}

	a.Extractor = a.newExtractor()

	if settings.Elevation.Enabled {
		if a.Elevation, err = a.newElevation(); err != nil {
			return nil, err
		}
	}

	if dev := settings.Calibration.GroundReference.Device; dev.Enabled {
		alt := dev.Altitude
		a.Device = location.NewStaticService(&location.Position{
			Latitude:  dev.Latitude,
			Longitude: dev.Longitude,
			Altitude:  &alt,
		})
	}

	var sinks []session.Sink
	if !o.skipStore {
		if a.Store, err = a.openStore(); err != nil {
			return nil, err
		}
		if a.Store != nil {
			sinks = append(sinks, datastore.HistorySink{Store: a.Store})
		}
	}

	if settings.MQTT.Enabled && !o.skipMQTT {
		client, err := mqtt.NewClient(mqtt.ConfigFromSettings(settings), a.Metrics.MQTT)
		if err != nil {
			return nil, err
		}
		a.MQTT = client
		a.Publisher = mqtt.NewPublisher(client, settings.MQTT.Topic)
		sinks = append(sinks, a.Publisher)
	}
	sinks = append(sinks, o.sinks...)

	a.Manager = a.newManager(sinks)
	a.log.Debug("components initialized",
		logger.Bool("elevation", a.Elevation != nil),
		logger.Bool("history", a.Store != nil),
		logger.Bool("mqtt", a.Publisher != nil),
		logger.Bool("device_position", a.Device != nil))
	return a, nil
}

func (a *App) initSentry() error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              a.Settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          a.Build.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			event.ServerName = ""
			event.Request = nil
			event.User = sentry.User{ID: a.Build.SystemID()}
			return event
		},
	})
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_sentry").
			Build()
	}
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	a.sentry = true
	return nil
}

// newExtractor chains the built-in EXIF parser with exiftool when the
// binary is installed.
func (a *App) newExtractor() *metadata.Extractor {
	sources := []metadata.Source{metadata.ExifSource{}}
	if et := a.Settings.Metadata.ExifTool; et.Enabled {
		tool := metadata.NewExifToolSource(et.Path, et.Timeout)
		if tool.Available() {
			sources = append(sources, tool)
		} else {
			a.log.Info("exiftool not found, using built-in EXIF parser only", logger.String("path", et.Path))
		}
	}
	return metadata.NewExtractor(metadata.NewChain(sources...),
		metadata.WithFileReader(metadata.OSFileReader{MaxBytes: a.Settings.Metadata.MaxFileSize}),
		metadata.WithMetrics(a.Metrics.Calibration))
}

func (a *App) newElevation() (*elevation.Client, error) {
	es := a.Settings.Elevation
	hc := httpclient.New(&httpclient.Config{
		DefaultTimeout: es.Timeout,
		UserAgent:      a.Build.UserAgent(),
	})
	log := a.log.Module("elevation-http")
	hc.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error) {
		if err != nil {
			log.Debug("elevation request failed", logger.String("host", req.URL.Host), logger.Error(err))
			return
		}
		log.Debug("elevation response", logger.String("host", req.URL.Host), logger.Int("status", resp.StatusCode))
	})
	return elevation.NewClient(elevation.Config{
		Endpoint:          es.Endpoint,
		Timeout:           es.Timeout,
		CacheTTL:          es.CacheTTL,
		RequestsPerSecond: es.RequestsPerSecond,
		Burst:             es.Burst,
		MaxRetries:        es.MaxRetries,
	}, hc, elevation.WithMetrics(a.Metrics.Elevation))
}

func (a *App) openStore() (datastore.Interface, error) {
	store := datastore.New(a.Settings)
	if store == nil {
		return nil, nil
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	switch s := store.(type) {
	case *datastore.SQLiteStore:
		s.SetMetrics(a.Metrics.Calibration)
	case *datastore.MySQLStore:
		s.SetMetrics(a.Metrics.Calibration)
	}
	return store, nil
}

func (a *App) newManager(sinks []session.Sink) *session.Manager {
	cs := a.Settings.Calibration
	grConfig := groundref.Config{
		LocationTimeout:  cs.GroundReference.LocationTimeout,
		AllowASLFallback: cs.GroundReference.AllowASLFallback,
	}
	grOpts := []groundref.Option{groundref.WithMetrics(a.Metrics.Calibration)}
	if a.Elevation != nil {
		grOpts = append(grOpts, groundref.WithElevation(a.Elevation))
	}
	factory := func(loc location.Service) session.GroundResolver {
		return groundref.NewResolver(grConfig, loc, grOpts...)
	}

	displayUnit, err := units.ParseUnit(cs.Drone.DisplayUnit)
	if err != nil {
		displayUnit = units.M
	}

	opts := []session.Option{
		session.WithSinks(sinks...),
		session.WithMetrics(a.Metrics.Calibration),
		session.WithDroneOptions(calibration.DroneOptions{
			DisplayUnit:    displayUnit,
			StrictNadir:    cs.Drone.StrictNadir,
			NadirTolerance: cs.Drone.NadirTolerance,
		}),
	}
	if a.Store != nil {
		opts = append(opts, session.WithPreferenceStore(a.Store))
	} else {
		opts = append(opts, session.WithPreferenceStore(&settingsPreferences{settings: a.Settings}))
	}
	if a.Device != nil {
		opts = append(opts, session.WithLocation(a.Device))
	} else {
		opts = append(opts, session.WithLocation(location.DisabledService{}))
	}
	return session.NewManager(a.Extractor, factory, opts...)
}

// AuditCoin writes a crop of the coin in photoPath into dir and returns the
// file written. The name is derived from the result id.
func (a *App) AuditCoin(res *calibration.Result, photoPath, dir string) (string, error) {
	circle, ok := res.Source.(*calibration.CoinCircle)
	if !ok {
		return "", errors.Newf("audit crops are only available for coin calibrations").
			Component("app").
			Category(errors.CategoryValidation).
			Build()
	}
	if dir == "" {
		dir = conf.ResolvePath(a.Settings.Main.DataDir, a.Settings.Calibration.AuditCrop.Path)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.New(err).
			Component("app").
			Category(errors.CategoryFileIO).
			FileContext(dir, 0).
			Build()
	}

	img, err := calibration.LoadAuditImage(photoPath)
	if err != nil {
		return "", err
	}
	crop, err := calibration.CoinAuditCrop(img, circle, a.Settings.Calibration.AuditCrop.Size)
	if err != nil {
		return "", err
	}
	out := filepath.Join(dir, "coin-"+res.ID+".png")
	if err := calibration.SaveAuditImage(crop, out); err != nil {
		return "", err
	}
	return out, nil
}

// Close releases every component. It is safe to call on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.Elevation != nil {
		a.Elevation.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.sentry {
		sentry.Flush(sentryFlushTimeout)
	}
	return errors.Join(errs...)
}

// settingsPreferences keeps preferences in the settings when there is no
// database. Changes last for the life of the process.
type settingsPreferences struct {
	settings *conf.Settings
}

func (p *settingsPreferences) LoadPreferences(context.Context) (calibration.Preferences, error) {
	prefs := calibration.DefaultPreferences()
	if p.settings.Calibration.Coin != "" {
		prefs.LastCoinID = p.settings.Calibration.Coin
	}
	if sys, err := units.ParseSystem(p.settings.Units.System); err == nil {
		prefs.UnitSystem = sys
	}
	if p.settings.Units.DefaultUnit != "" {
		if u, err := units.ParseUnit(p.settings.Units.DefaultUnit); err == nil {
			prefs.DefaultUnit = u
		}
	}
	if err := prefs.Validate(); err != nil {
		return calibration.DefaultPreferences(), err
	}
	return prefs, nil
}

func (p *settingsPreferences) SavePreferences(_ context.Context, prefs calibration.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	p.settings.Calibration.Coin = prefs.LastCoinID
	p.settings.Units.System = string(prefs.UnitSystem)
	p.settings.Units.DefaultUnit = string(prefs.DefaultUnit)
	return nil
}
