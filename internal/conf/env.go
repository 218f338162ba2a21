package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/photoscale/photoscale/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. PHOTOSCALE_MQTT_BROKER
// for mqtt.broker.
const EnvPrefix = "PHOTOSCALE"

// envBinding ties a config key to a validated environment variable.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// getEnvBindings lists the variables whose values are checked before use.
// Every other key is still overridable through the automatic prefix mapping.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"units.system", "PHOTOSCALE_UNITS_SYSTEM", validateEnvSystem},
		{"calibration.drone.strictnadir", "PHOTOSCALE_CALIBRATION_DRONE_STRICTNADIR", validateEnvBool},
		{"calibration.groundreference.locationtimeout", "PHOTOSCALE_CALIBRATION_GROUNDREFERENCE_LOCATIONTIMEOUT", validateEnvDuration},
		{"calibration.groundreference.device.latitude", "PHOTOSCALE_DEVICE_LATITUDE", validateEnvLatitude},
		{"calibration.groundreference.device.longitude", "PHOTOSCALE_DEVICE_LONGITUDE", validateEnvLongitude},
		{"elevation.endpoint", "PHOTOSCALE_ELEVATION_ENDPOINT", nil},
		{"elevation.timeout", "PHOTOSCALE_ELEVATION_TIMEOUT", validateEnvDuration},
		{"mqtt.broker", "PHOTOSCALE_MQTT_BROKER", nil},
		{"mqtt.password", "PHOTOSCALE_MQTT_PASSWORD", nil},
		{"datastore.mysql.password", "PHOTOSCALE_MYSQL_PASSWORD", nil},
		{"sentry.dsn", "PHOTOSCALE_SENTRY_DSN", nil},
	}
}

// bindEnvVars enables PHOTOSCALE_* overrides and validates the listed ones.
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var problems []string
	for _, b := range getEnvBindings() {
		if err := v.BindEnv(b.ConfigKey, b.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", b.EnvVar, err))
			continue
		}
		if b.Validate == nil {
			continue
		}
		if value := os.Getenv(b.EnvVar); value != "" {
			if err := b.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value %q: %v", b.EnvVar, value, err))
			}
		}
	}

	if len(problems) > 0 {
		return errors.Newf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - ")).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

func validateEnvSystem(value string) error {
	switch strings.ToLower(value) {
	case "metric", "imperial":
		return nil
	}
	return fmt.Errorf("must be metric or imperial")
}

func validateEnvLatitude(value string) error {
	lat, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %g", lat)
	}
	return nil
}

func validateEnvLongitude(value string) error {
	lng, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid longitude: %w", err)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %g", lng)
	}
	return nil
}
