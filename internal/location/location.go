// Package location provides the device position used as a ground-level
// reference for drone photos.
package location

import (
	"context"
	"math"
	"sync"

	"github.com/photoscale/photoscale/internal/errors"
)

// Sentinel failures of a Service. Each calls for a different remedy, so
// callers must not collapse them.
var (
	ErrPermissionDenied    = errors.NewStd("location permission denied")
	ErrServicesDisabled    = errors.NewStd("location services disabled")
	ErrTimeout             = errors.NewStd("location request timed out")
	ErrPositionUnavailable = errors.NewStd("position unavailable")
)

// Position is a device fix. Altitude is nil when the device reported none.
type Position struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	// Accuracy is the horizontal accuracy radius in metres; 0 when unknown.
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Validate checks the coordinate ranges.
func (p Position) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.Abs(p.Latitude) > 90 || math.Abs(p.Longitude) > 180 {
		return errors.Newf("position out of range: %.6f,%.6f", p.Latitude, p.Longitude).
			Component("location").
			Category(errors.CategoryValidation).
			Build()
	}
	if p.Altitude != nil && (math.IsNaN(*p.Altitude) || math.IsInf(*p.Altitude, 0)) {
		return errors.Newf("altitude is not finite").
			Component("location").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Service returns the device's current position. Implementations honour
// ctx cancellation and deadline; a deadline hit is reported as ErrTimeout.
type Service interface {
	GetCurrentPosition(ctx context.Context) (Position, error)
}

// StaticService serves a fixed position, e.g. one configured for a ground
// station or supplied by an API client alongside the photo.
type StaticService struct {
	mu  sync.RWMutex
	pos *Position
}

// NewStaticService returns a service answering with pos. A nil pos behaves
// as unavailable until Set is called.
func NewStaticService(pos *Position) *StaticService {
	s := &StaticService{}
	if pos != nil {
		p := *pos
		s.pos = &p
	}
	return s
}

// Set replaces the served position.
func (s *StaticService) Set(pos Position) {
	s.mu.Lock()
	s.pos = &pos
	s.mu.Unlock()
}

// GetCurrentPosition implements Service.
func (s *StaticService) GetCurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, contextError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pos == nil {
		return Position{}, ErrPositionUnavailable
	}
	return *s.pos, nil
}

// DisabledService always reports disabled location services.
type DisabledService struct{}

// GetCurrentPosition implements Service.
func (DisabledService) GetCurrentPosition(context.Context) (Position, error) {
	return Position{}, ErrServicesDisabled
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context) (Position, error)

// GetCurrentPosition implements Service.
func (f ServiceFunc) GetCurrentPosition(ctx context.Context) (Position, error) {
	return f(ctx)
}

// contextError maps a context failure to the service vocabulary: a
// deadline is a timeout, cancellation passes through.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
