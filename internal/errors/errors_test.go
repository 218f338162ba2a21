package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderCarriesCategoryAndContext(t *testing.T) {
	t.Parallel()

	ee := Newf("altitude %d out of range", 42).
		Component("calibration").
		Category(CategoryValidation).
		Context("operation", "drone_gsd").
		Build()

	assert.Equal(t, "calibration", ee.GetComponent())
	assert.True(t, IsValidation(ee))
	assert.Equal(t, "drone_gsd", ee.GetContext()["operation"])

	wrapped := fmt.Errorf("outer: %w", ee)
	assert.True(t, IsCategory(wrapped, CategoryValidation))
	assert.False(t, IsNotFound(wrapped))
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"cancelled", fmt.Errorf("lookup: %w", context.Canceled), CategoryCancellation},
		{"deadline", fmt.Errorf("lookup: %w", context.DeadlineExceeded), CategoryTimeout},
		{"invalid input", NewStd("invalid coin diameter"), CategoryValidation},
		{"plain", NewStd("something happened"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectCategory(tt.err))
		})
	}
}

func TestReporterReceivesBuiltErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("elevation lookup failed")).Category(CategoryElevation).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
}

func TestBasicURLScrub(t *testing.T) {
	t.Parallel()

	scrubbed := basicURLScrub("Error at https://api.example.com/lookup?locations=60.1699,24.9384")
	assert.Equal(t, "Error at https://api.example.com/lookup?[REDACTED]", scrubbed)

	scrubbed = basicURLScrub("config error: api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")
	assert.NotContains(t, scrubbed, "secret123")

	scrubbed = basicURLScrub("device at 60.169912, 24.938412 too far")
	assert.NotContains(t, scrubbed, "60.169912")
	assert.NotContains(t, scrubbed, "24.938412")
}

func TestPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		priority string
		category ErrorCategory
		want     string
		level    sentry.Level
	}{
		{"unset uses category level", "", CategoryValidation, "", sentry.LevelInfo},
		{"critical", PriorityCritical, CategoryDatabase, PriorityCritical, sentry.LevelFatal},
		{"high", PriorityHigh, CategoryValidation, PriorityHigh, sentry.LevelError},
		{"low", PriorityLow, CategoryDatabase, PriorityLow, sentry.LevelInfo},
		{"unknown falls back to medium", "urgent", CategoryNetwork, PriorityMedium, sentry.LevelWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ee := Newf("boom").Category(tt.category).Priority(tt.priority).Build()
			assert.Equal(t, tt.want, ee.Priority)
			assert.Equal(t, tt.level, errorLevel(ee))
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("boom")).
		Component("groundref").
		Category(CategoryGroundReference).
		Context("operation", "resolve_altitude").
		Build()

	assert.Equal(t, "Groundref Ground Reference Error Resolve Altitude", generateErrorTitle(ee))
}
