package v1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/groundref"
)

func TestValidateGroundReference(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	tests := []struct {
		name     string
		body     string
		decision groundref.Decision
		usable   bool
	}{
		{"near by distance", `{"distance_meters":42}`, groundref.DecisionAuto, true},
		{"prompt band", `{"distance_meters":250}`, groundref.DecisionPrompt, true},
		{"too far", `{"distance_meters":500}`, groundref.DecisionSkip, false},
		{"negative is zero", `{"distance_meters":-3}`, groundref.DecisionAuto, true},
		{
			"coordinates",
			`{"photo":{"latitude":60.1699,"longitude":24.9384},"ground":{"latitude":60.1700,"longitude":24.9384}}`,
			groundref.DecisionAuto, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(http.MethodPost, "/api/v1/ground-reference/validate", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[GroundReferenceResponse](t, rec)
			assert.Equal(t, tt.decision, resp.Decision)
			assert.Equal(t, tt.usable, resp.Usable)
			assert.InDelta(t, groundref.AutoThresholdMeters, resp.AutoThresholdMeters, 0)
			assert.InDelta(t, groundref.SkipThresholdMeters, resp.SkipThresholdMeters, 0)
		})
	}
}

func TestValidateGroundReferenceRejects(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	for _, body := range []string{
		`{}`,
		`{"photo":{"latitude":1,"longitude":1}}`,
		`{"photo":{"latitude":91,"longitude":0},"ground":{"latitude":0,"longitude":0}}`,
		`{"distance_meters":"far"}`,
	} {
		rec := env.doJSON(http.MethodPost, "/api/v1/ground-reference/validate", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}
