package datastore

import (
	"context"

	"github.com/photoscale/photoscale/internal/session"
)

// HistorySink stores every completed calibration.
type HistorySink struct {
	Store Interface
}

// Name implements session.Sink.
func (HistorySink) Name() string { return "datastore" }

// Deliver implements session.Sink.
func (h HistorySink) Deliver(ctx context.Context, c session.Completion) error {
	return h.Store.SaveCalibration(ctx, c.SessionID, c.Result)
}
