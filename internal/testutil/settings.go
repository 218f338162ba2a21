package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/conf"
)

// Settings returns default settings confined to a temporary data directory:
// SQLite history, no elevation service, no exiftool, no broker, no Sentry.
func Settings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := conf.Defaults()
	settings.Main.DataDir = t.TempDir()
	settings.Logging.FileOutput = nil
	settings.Datastore.SQLite.Enabled = true
	settings.Datastore.SQLite.Path = "photoscale.db"
	settings.Datastore.MySQL.Enabled = false
	settings.Elevation.Enabled = false
	settings.Metadata.ExifTool.Enabled = false
	settings.MQTT.Enabled = false
	settings.Sentry.Enabled = false
	settings.WebServer.Port = "0"
	return settings
}

// WritePhoto saves a plain width x height PNG without metadata and returns
// its path.
func WritePhoto(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	img := imaging.New(width, height, color.NRGBA{R: 120, G: 130, B: 90, A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}
