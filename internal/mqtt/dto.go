package mqtt

import (
	"time"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/session"
)

// CalibrationTopicSuffix is appended to the base topic for completion events.
const CalibrationTopicSuffix = "calibration"

// CalibrationMessage is the JSON payload published when a session completes.
//
// Field names are part of the published contract; consumers key on them.
type CalibrationMessage struct {
	SessionID   string                       `json:"session_id"`
	Result      *calibration.Result          `json:"result"`
	Event       *calibration.CompletionEvent `json:"event,omitempty"`
	PublishedAt time.Time                    `json:"published_at"`
}

// NewCalibrationMessage builds the payload for a completion.
func NewCalibrationMessage(c session.Completion) *CalibrationMessage {
	return &CalibrationMessage{
		SessionID:   c.SessionID,
		Result:      c.Result,
		Event:       c.Event,
		PublishedAt: time.Now().UTC(),
	}
}
