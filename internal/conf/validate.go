package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/units"
)

// ValidationError collects every problem found in a configuration.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings validates all sections and reports every problem at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}
	for _, check := range []func(*Settings) error{
		validateUnitSettings,
		validateCalibrationSettings,
		validateElevationSettings,
		validateMetadataSettings,
		validateDatastoreSettings,
		validateMQTTSettings,
		validateWebServerSettings,
	} {
		if err := check(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateUnitSettings(s *Settings) error {
	if _, err := units.ParseSystem(s.Units.System); err != nil {
		return fmt.Errorf("units.system: %w", err)
	}
	if s.Units.DefaultUnit != "" {
		if _, err := units.ParseUnit(s.Units.DefaultUnit); err != nil {
			return fmt.Errorf("units.defaultunit: %w", err)
		}
	}
	return nil
}

func validateCalibrationSettings(s *Settings) error {
	var errs []string
	c := &s.Calibration

	if c.Coin != "" {
		if _, ok := calibration.LookupCoin(c.Coin); !ok {
			errs = append(errs, fmt.Sprintf("unknown coin %q", c.Coin))
		}
	}
	if c.Drone.NadirTolerance < 0 || c.Drone.NadirTolerance > 90 {
		errs = append(errs, "nadir tolerance must be between 0 and 90 degrees")
	}
	if c.Drone.DisplayUnit != "" {
		if _, err := units.ParseUnit(c.Drone.DisplayUnit); err != nil {
			errs = append(errs, "drone display unit: "+err.Error())
		}
	}
	if c.GroundReference.LocationTimeout < 0 {
		errs = append(errs, "location timeout must not be negative")
	}
	if d := c.GroundReference.Device; d.Enabled {
		if d.Latitude < -90 || d.Latitude > 90 || d.Longitude < -180 || d.Longitude > 180 {
			errs = append(errs, "device position out of range")
		}
	}
	if c.AuditCrop.Enabled && c.AuditCrop.Size <= 0 {
		errs = append(errs, "audit crop size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("calibration settings errors: %v", errs)
	}
	return nil
}

func validateElevationSettings(s *Settings) error {
	e := &s.Elevation
	if !e.Enabled {
		return nil
	}
	var errs []string
	if u, err := url.Parse(e.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid endpoint %q", e.Endpoint))
	}
	if e.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if e.RequestsPerSecond < 0 {
		errs = append(errs, "requests per second must not be negative")
	}
	if e.MaxRetries < 0 {
		errs = append(errs, "max retries must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("elevation settings errors: %v", errs)
	}
	return nil
}

func validateMetadataSettings(s *Settings) error {
	if s.Metadata.MaxFileSize <= 0 {
		return fmt.Errorf("metadata max file size must be positive")
	}
	if s.Metadata.ExifTool.Enabled && s.Metadata.ExifTool.Path == "" {
		return fmt.Errorf("exiftool path is required when exiftool is enabled")
	}
	return nil
}

func validateDatastoreSettings(s *Settings) error {
	d := &s.Datastore
	if d.SQLite.Enabled && d.MySQL.Enabled {
		return fmt.Errorf("only one of sqlite and mysql may be enabled")
	}
	if d.SQLite.Enabled && d.SQLite.Path == "" {
		return fmt.Errorf("sqlite path is required")
	}
	if d.MySQL.Enabled {
		if d.MySQL.Host == "" || d.MySQL.Database == "" {
			return fmt.Errorf("mysql host and database are required")
		}
		if err := validatePort(d.MySQL.Port); err != nil {
			return fmt.Errorf("mysql port: %w", err)
		}
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	m := &s.MQTT
	if !m.Enabled {
		return nil
	}
	if m.Broker == "" {
		return fmt.Errorf("mqtt broker is required when mqtt is enabled")
	}
	if m.Topic == "" || strings.ContainsAny(m.Topic, "+#") {
		return fmt.Errorf("mqtt topic must be a non-empty topic without wildcards")
	}
	if m.QoS < 0 || m.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2")
	}
	return nil
}

func validateWebServerSettings(s *Settings) error {
	w := &s.WebServer
	if !w.Enabled {
		return nil
	}
	if err := validatePort(w.Port); err != nil {
		return fmt.Errorf("webserver port: %w", err)
	}
	if w.MaxUploadSize <= 0 {
		return fmt.Errorf("webserver max upload size must be positive")
	}
	return nil
}

func validatePort(port string) error {
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
