package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDrone(t *testing.T) {
	t.Parallel()

	alt := func(v float64) *GPSFix { return &GPSFix{Latitude: 46.5, Longitude: 7.9, AltitudeASL: float64Ptr(v)} }
	gimbal := &Gimbal{Pitch: -90}

	tests := []struct {
		name   string
		make   string
		model  string
		gps    *GPSFix
		gimbal *Gimbal
		want   bool
	}{
		{"mountain hike without evidence", "", "", alt(2000), nil, false},
		{"phone at altitude", "Apple", "iPhone 15 Pro", alt(2000), nil, false},
		{"allowlisted make", "DJI", "", alt(10), nil, true},
		{"allowlisted make folded", "dji", "", alt(10), nil, true},
		{"make with suffix", "Autel Robotics", "XT701", alt(10), nil, true},
		{"make first word", "Parrot SA", "", alt(10), nil, true},
		{"model pattern", "", "FC3582", alt(10), nil, true},
		{"model name pattern", "", "Mavic 3 Classic", alt(10), nil, true},
		{"gimbal high", "", "", alt(50.5), gimbal, true},
		{"gimbal exactly 50", "", "", alt(50), gimbal, false},
		{"gimbal without altitude", "", "", &GPSFix{Latitude: 1, Longitude: 1}, gimbal, false},
		{"no gps with make", "DJI", "FC3582", nil, gimbal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectDrone(tt.make, tt.model, tt.gps, tt.gimbal))
		})
	}
}

func TestIsDroneModel(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDroneModel("FC6310S"))
	assert.True(t, IsDroneModel("L1D-20c"))
	assert.True(t, IsDroneModel("ANAFI Ai"))
	assert.False(t, IsDroneModel(""))
	assert.False(t, IsDroneModel("Pixel 8"))
	assert.False(t, IsDroneModel("iPhone 12 mini"))
}
