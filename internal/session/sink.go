package session

import (
	"context"
	"slices"
	"sync"

	"github.com/photoscale/photoscale/internal/calibration"
)

// Completion is what a finished session hands to its sinks, exactly once.
type Completion struct {
	SessionID string              `json:"session_id"`
	Result    *calibration.Result `json:"result"`
	// Event is set for automatic (drone) calibrations.
	Event *calibration.CompletionEvent `json:"event,omitempty"`
}

// Sink receives completed calibrations: history storage, event publishing
// and the like. Deliver must not retain c.Result for mutation.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, c Completion) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	ID string
	Fn func(ctx context.Context, c Completion) error
}

func (f SinkFunc) Name() string { return f.ID }

func (f SinkFunc) Deliver(ctx context.Context, c Completion) error { return f.Fn(ctx, c) }

// MemorySink keeps completions in memory.
type MemorySink struct {
	mu          sync.Mutex
	completions []Completion
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Name() string { return "memory" }

func (m *MemorySink) Deliver(_ context.Context, c Completion) error {
	m.mu.Lock()
	m.completions = append(m.completions, c)
	m.mu.Unlock()
	return nil
}

// Completions returns a snapshot of everything delivered so far.
func (m *MemorySink) Completions() []Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.completions)
}
