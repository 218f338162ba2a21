package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerWritesFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug).Module("calibration").Module("coin")

	log.Info("coin calibration computed",
		String("coin", "us_quarter"),
		Float64("pixels_per_mm", 4.123456),
		Duration("elapsed", 1500*time.Microsecond))

	out := buf.String()
	assert.Contains(t, out, "module=calibration.coin")
	assert.Contains(t, out, "coin=us_quarter")
	assert.Contains(t, out, "pixels_per_mm=4.123")
	assert.Contains(t, out, "elapsed=2ms")
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithAccumulatesWithoutMutatingParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := NewSlogLogger(&buf, LogLevelInfo)
	child := parent.With(String("session_id", "abc"))

	parent.Info("parent")
	assert.NotContains(t, buf.String(), "session_id")

	child.Info("child")
	assert.Contains(t, buf.String(), "session_id=abc")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo)

	log.WithContext(WithTraceID(t.Context(), "req-7")).Info("handled")
	assert.Contains(t, buf.String(), "trace_id=req-7")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"elevation": "error"},
	})
	require.NoError(t, err)

	cl.Module("units").Debug("converted", String("from", "ft"))
	cl.Module("elevation").Info("suppressed")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"units"`)
	assert.NotContains(t, string(data), "suppressed")
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}
