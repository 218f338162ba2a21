package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/units"
)

func testResult(t *testing.T) *calibration.Result {
	t.Helper()
	res, err := calibration.NewResult(2, units.M, 1, &calibration.BlueprintScale{PixelDistance: 2000, RealDistance: 1, RealUnit: units.M})
	require.NoError(t, err)
	return res
}

func TestSessionCompletesOnce(t *testing.T) {
	t.Parallel()

	sink := NewMemorySink()
	s := newSession(calibration.TypeBlueprint, []Sink{sink}, logger.NewDiscardLogger())
	assert.Equal(t, StatePending, s.State())

	c, err := s.Complete(t.Context(), testResult(t), nil)
	require.NoError(t, err)
	assert.Equal(t, s.ID, c.SessionID)
	assert.Equal(t, StateCompleted, s.State())

	_, err = s.Complete(t.Context(), testResult(t), nil)
	require.ErrorIs(t, err, ErrAlreadyFinished)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))

	require.ErrorIs(t, s.Fail(&Failure{Kind: FailureManualRequired}), ErrAlreadyFinished)
	assert.Len(t, sink.Completions(), 1)
	assert.Nil(t, s.Failure())
}

func TestSessionConcurrentCompletion(t *testing.T) {
	t.Parallel()

	sink := NewMemorySink()
	s := newSession(calibration.TypeCoin, []Sink{sink}, logger.NewDiscardLogger())
	res := testResult(t)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 16 {
		wg.Go(func() {
			if _, err := s.Complete(t.Context(), res, nil); err == nil {
				successes.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Len(t, sink.Completions(), 1)
}

func TestSessionEventCarriesSessionID(t *testing.T) {
	t.Parallel()

	s := newSession(calibration.TypeDrone, nil, logger.NewDiscardLogger())
	event := &calibration.CompletionEvent{Type: calibration.TypeDrone}
	c, err := s.Complete(t.Context(), testResult(t), event)
	require.NoError(t, err)
	assert.Equal(t, s.ID, c.Event.SessionID)
}

func TestSessionFailThenComplete(t *testing.T) {
	t.Parallel()

	s := newSession(calibration.TypeDrone, nil, logger.NewDiscardLogger())
	require.NoError(t, s.Fail(&Failure{Kind: FailureGroundReference, Reason: "permission_denied"}))
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, "permission_denied", s.Failure().Reason)

	_, err := s.Complete(t.Context(), testResult(t), nil)
	require.ErrorIs(t, err, ErrAlreadyFinished)
	assert.Nil(t, s.Completion())
}

func TestSessionSinkFailureKeepsCompletion(t *testing.T) {
	t.Parallel()

	failing := SinkFunc{ID: "broken", Fn: func(context.Context, Completion) error {
		return errors.NewStd("disk full")
	}}
	after := NewMemorySink()
	s := newSession(calibration.TypeVerbal, []Sink{failing, after}, logger.NewDiscardLogger())

	_, err := s.Complete(t.Context(), testResult(t), nil)
	require.NoError(t, err)
	assert.Len(t, after.Completions(), 1, "later sinks still receive the completion")
}

func TestSessionRequiresResult(t *testing.T) {
	t.Parallel()

	s := newSession(calibration.TypeCoin, nil, logger.NewDiscardLogger())
	_, err := s.Complete(t.Context(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, StatePending, s.State())
}
