package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvBool("true"))
	assert.Error(t, validateEnvBool("yes please"))

	assert.NoError(t, validateEnvDuration("15s"))
	assert.Error(t, validateEnvDuration("-1s"))
	assert.Error(t, validateEnvDuration("soon"))

	assert.NoError(t, validateEnvSystem("Imperial"))
	assert.Error(t, validateEnvSystem("nautical"))

	assert.NoError(t, validateEnvLatitude("-45.5"))
	assert.Error(t, validateEnvLatitude("91"))
	assert.NoError(t, validateEnvLongitude("179.9"))
	assert.Error(t, validateEnvLongitude("east"))
}

func TestEnvBindingsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, b := range getEnvBindings() {
		assert.False(t, seen[b.EnvVar], b.EnvVar)
		seen[b.EnvVar] = true
		assert.Contains(t, b.EnvVar, EnvPrefix)
	}
}
