package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"unknown system", func(s *Settings) { s.Units.System = "nautical" }},
		{"unknown default unit", func(s *Settings) { s.Units.DefaultUnit = "yd" }},
		{"unknown coin", func(s *Settings) { s.Calibration.Coin = "doubloon" }},
		{"nadir tolerance", func(s *Settings) { s.Calibration.Drone.NadirTolerance = 120 }},
		{"device out of range", func(s *Settings) {
			s.Calibration.GroundReference.Device.Enabled = true
			s.Calibration.GroundReference.Device.Latitude = 95
		}},
		{"bad elevation endpoint", func(s *Settings) { s.Elevation.Endpoint = "not a url" }},
		{"zero elevation timeout", func(s *Settings) { s.Elevation.Timeout = 0 }},
		{"exiftool without path", func(s *Settings) { s.Metadata.ExifTool.Path = "" }},
		{"two databases", func(s *Settings) { s.Datastore.MySQL.Enabled = true }},
		{"mqtt wildcard topic", func(s *Settings) {
			s.MQTT.Enabled = true
			s.MQTT.Topic = "sites/+"
		}},
		{"mqtt qos", func(s *Settings) {
			s.MQTT.Enabled = true
			s.MQTT.QoS = 3
		}},
		{"webserver port", func(s *Settings) { s.WebServer.Port = "http" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Defaults()
			tt.mutate(s)
			err := ValidateSettings(s)
			require.Error(t, err)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Errors, 1)
		})
	}
}

func TestValidateSettingsCollectsAll(t *testing.T) {
	t.Parallel()

	s := Defaults()
	s.Units.System = "nautical"
	s.WebServer.Port = "0"
	s.Elevation.Enabled = false
	s.Elevation.Endpoint = ""

	var ve ValidationError
	require.ErrorAs(t, ValidateSettings(s), &ve)
	assert.Len(t, ve.Errors, 2, "disabled elevation is not validated")
}

func TestValidateMySQL(t *testing.T) {
	t.Parallel()

	s := Defaults()
	s.Datastore.SQLite.Enabled = false
	s.Datastore.MySQL.Enabled = true
	require.NoError(t, ValidateSettings(s))

	s.Datastore.MySQL.Port = "99999"
	require.Error(t, ValidateSettings(s))
}
