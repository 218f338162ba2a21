// Package session runs calibration attempts end to end and hands each
// completed result to the configured sinks exactly once.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
)

// ErrAlreadyFinished is returned when a session is completed or failed a
// second time.
var ErrAlreadyFinished = errors.NewStd("calibration session already finished")

// State is the lifecycle state of a session.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Session is one calibration attempt. It moves from pending to either
// completed or failed, once; no intermediate state is observable.
type Session struct {
	ID        string
	Type      calibration.Type
	StartedAt time.Time

	once       sync.Once
	mu         sync.RWMutex
	state      State
	completion *Completion
	failure    *Failure

	sinks []Sink
	log   logger.Logger
}

func newSession(t calibration.Type, sinks []Sink, log logger.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		Type:      t,
		StartedAt: time.Now(),
		state:     StatePending,
		sinks:     sinks,
		log:       log.With(logger.String("session_id", id), logger.String("type", string(t))),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Completion returns the delivered completion, or nil.
func (s *Session) Completion() *Completion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completion
}

// Failure returns the recorded failure, or nil.
func (s *Session) Failure() *Failure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure
}

// Complete finishes the session with res and delivers it to every sink.
// Sink failures are logged and do not undo the completion.
func (s *Session) Complete(ctx context.Context, res *calibration.Result, event *calibration.CompletionEvent) (*Completion, error) {
	if res == nil {
		return nil, errors.Newf("completion requires a result").
			Component("session").
			Category(errors.CategoryValidation).
			Build()
	}

	var (
		c     *Completion
		fresh bool
	)
	s.once.Do(func() {
		fresh = true
		if event != nil {
			event.SessionID = s.ID
		}
		c = &Completion{SessionID: s.ID, Result: res, Event: event}

		s.mu.Lock()
		s.state = StateCompleted
		s.completion = c
		s.mu.Unlock()
	})
	if !fresh {
		return nil, s.finishedError()
	}

	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, *c); err != nil {
			s.log.Warn("calibration sink failed",
				logger.String("sink", sink.Name()),
				logger.Error(err))
		}
	}
	s.log.Info("calibration completed",
		logger.String("result_id", res.ID),
		logger.Float64("pixels_per_mm", res.PixelsPerMM))
	return c, nil
}

// Fail finishes the session without a result.
func (s *Session) Fail(f *Failure) error {
	fresh := false
	s.once.Do(func() {
		fresh = true
		s.mu.Lock()
		s.state = StateFailed
		s.failure = f
		s.mu.Unlock()
	})
	if !fresh {
		return s.finishedError()
	}
	s.log.Info("calibration not completed",
		logger.String("kind", string(f.Kind)),
		logger.String("reason", f.Reason))
	return nil
}

func (s *Session) finishedError() error {
	return errors.New(ErrAlreadyFinished).
		Component("session").
		Category(errors.CategoryState).
		Context("session_id", s.ID).
		Context("state", string(s.State())).
		Build()
}
