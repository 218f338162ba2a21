// Package conf loads photoscale settings from config.yaml, environment
// variables and built-in defaults.
package conf

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings holds general settings.
type MainSettings struct {
	Name    string // instance name, used as MQTT client id prefix
	DataDir string // base directory for relative paths
}

// UnitSettings selects how measurements are displayed.
type UnitSettings struct {
	System      string // metric or imperial
	DefaultUnit string // overrides the system default display unit when set
}

// DroneSettings tunes automatic drone calibration.
type DroneSettings struct {
	Enabled        bool    // false routes every photo to manual calibration
	StrictNadir    bool    // refuse photos whose gimbal is not pointing straight down
	NadirTolerance float64 // degrees from -90 accepted with StrictNadir
	DisplayUnit    string  // unit drone results are labelled with
}

// DevicePosition is a fixed ground station position used when no live
// location service is available.
type DevicePosition struct {
	Enabled   bool
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// GroundReferenceSettings tunes altitude-above-ground resolution.
type GroundReferenceSettings struct {
	LocationTimeout  time.Duration // device location query timeout
	AllowASLFallback bool          // use sea-level altitude as a labelled last resort
	Device           DevicePosition
}

// CalibrationSettings groups the calibration engines.
type CalibrationSettings struct {
	Coin            string // last used coin id
	Drone           DroneSettings
	GroundReference GroundReferenceSettings
	AuditCrop       struct {
		Enabled bool   // write a crop of the coin for review after coin calibration
		Path    string // directory for audit crops
		Size    int    // edge length in pixels
	}
}

// ElevationSettings configures the elevation web service.
type ElevationSettings struct {
	Enabled           bool
	Endpoint          string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
}

// ExifToolSettings configures the exiftool fallback source.
type ExifToolSettings struct {
	Enabled bool
	Path    string
	Timeout time.Duration
}

// MetadataSettings configures telemetry extraction.
type MetadataSettings struct {
	MaxFileSize int64 // bytes read from a photo at most
	ExifTool    ExifToolSettings
}

// SQLiteSettings configures the SQLite datastore.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings configures the MySQL datastore.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

// DatastoreSettings selects calibration history storage.
type DatastoreSettings struct {
	Debug  bool
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// MQTTSettings configures calibration event publishing.
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	Username string
	Password string
	QoS      int
	Retain   bool
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Enabled       bool
	Host          string
	Port          string
	MaxUploadSize int64 // bytes accepted per uploaded photo
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// Settings is the complete configuration.
type Settings struct {
	Debug bool

	Main        MainSettings
	Logging     logger.LoggingConfig
	Units       UnitSettings
	Calibration CalibrationSettings
	Elevation   ElevationSettings
	Metadata    MetadataSettings
	Datastore   DatastoreSettings
	MQTT        MQTTSettings
	WebServer   WebServerSettings
	Sentry      SentrySettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables. When no
// config file exists one is written from the embedded defaults.
func Load() (*Settings, error) {
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return nil, err
	}
	settings, err := LoadFrom(paths...)
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// LoadFrom reads config.yaml from the first of paths that has one.
func LoadFrom(paths ...string) (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaultConfig(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("operation", "read-config").
				Build()
		}
		if len(paths) > 0 {
			if err := createDefaultConfig(v, paths[0]); err != nil {
				return nil, err
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// createDefaultConfig writes the embedded config.yaml to dir and reads it.
func createDefaultConfig(v *viper.Viper, dir string) error {
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			FileContext(dir, 0).
			Build()
	}
	if err := os.WriteFile(configPath, DefaultConfig(), 0o644); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			FileContext(configPath, 0).
			Build()
	}
	logger.Global().Module("conf").Info("created default config file", logger.String("path", configPath))
	return v.ReadInConfig()
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() []byte {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// The file is embedded at build time.
		panic(err)
	}
	return data
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings, loading them on first use.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				logger.Global().Module("conf").Error("failed to load settings, using defaults", logger.Error(err))
				settingsMutex.Lock()
				settingsInstance = Defaults()
				settingsMutex.Unlock()
			}
		}
	})
	return GetSettings()
}

// Defaults returns settings built from defaults alone.
func Defaults() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	_ = v.Unmarshal(settings)
	return settings
}

// SaveSettings writes the current settings back to the config file in use.
func SaveSettings() error {
	settings := GetSettings()
	if settings == nil {
		return errors.Newf("settings not loaded").
			Component("conf").
			Category(errors.CategoryState).
			Build()
	}
	configPath, err := FindConfigFile()
	if err != nil {
		return err
	}
	copied := *settings
	return SaveYAMLConfig(configPath, &copied)
}

// SaveYAMLConfig writes settings to configPath through a temporary file
// and rename. Comments in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "marshal-config").
			Build()
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fileError(err, configPath)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fileError(err, tempFileName)
	}
	if err := tempFile.Close(); err != nil {
		return fileError(err, tempFileName)
	}

	// Rename fails across devices; fall back to copying.
	if err := os.Rename(tempFileName, configPath); err != nil {
		if err := moveFile(tempFileName, configPath); err != nil {
			return fileError(err, configPath)
		}
	}
	return nil
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("conf").
		Category(errors.CategoryFileIO).
		FileContext(path, 0).
		Build()
}
