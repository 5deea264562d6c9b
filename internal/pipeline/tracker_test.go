package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clearcrew/internal/report"
	dErrors "clearcrew/pkg/domain-errors"
)

// gatedSubmitter blocks each Submit until release is closed.
type gatedSubmitter struct {
	entered chan struct{}
	release chan struct{}
	result  SubmissionResult
	err     error
}

func newGatedSubmitter() *gatedSubmitter {
	return &gatedSubmitter{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedSubmitter) Submit(ctx context.Context, _ report.Report) (SubmissionResult, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return SubmissionResult{}, ctx.Err()
	}
	return g.result, g.err
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestTrackerStartsIdle(t *testing.T) {
	tr, err := NewTracker(newGatedSubmitter())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, tr.Status().State)
}

func TestTrackerRejectsConcurrentSubmit(t *testing.T) {
	g := newGatedSubmitter()
	g.result = SubmissionResult{ContentID: "cid", TransactionID: "0xtx"}
	tr, err := NewTracker(g, WithTrackerClock(fixedClock))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := tr.Submit(context.Background(), sample)
		done <- err
	}()
	<-g.entered
	assert.Equal(t, StateSubmitting, tr.Status().State)

	_, err = tr.Submit(context.Background(), sample)
	assert.True(t, dErrors.Is(err, dErrors.CodeSubmissionInProgress))

	close(g.release)
	require.NoError(t, <-done)

	st := tr.Status()
	assert.Equal(t, StateSucceeded, st.State)
	require.NotNil(t, st.Result)
	assert.Equal(t, "cid", st.Result.ContentID)
	assert.Equal(t, fixedClock(), st.FinishedAt)
}

func TestTrackerRecordsFailure(t *testing.T) {
	g := newGatedSubmitter()
	g.err = dErrors.New(dErrors.CodeNetworkFailure, "registry unavailable")
	close(g.release)
	tr, err := NewTracker(g)
	require.NoError(t, err)

	_, err = tr.Submit(context.Background(), sample)
	require.Error(t, err)

	st := tr.Status()
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, dErrors.CodeNetworkFailure, st.Code)
	assert.Equal(t, "registry unavailable", st.Message)
	assert.True(t, st.Retryable)
	assert.Nil(t, st.Result)
}

func TestTrackerSubscribers(t *testing.T) {
	g := newGatedSubmitter()
	tr, err := NewTracker(g)
	require.NoError(t, err)

	updates, cancel := tr.Subscribe()
	defer cancel()
	assert.Equal(t, StateIdle, (<-updates).State)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = tr.Submit(context.Background(), sample)
	}()
	<-g.entered
	assert.Equal(t, StateSubmitting, (<-updates).State)
	close(g.release)
	<-done
	assert.Equal(t, StateSucceeded, (<-updates).State)
}

func TestTrackerSlowSubscriberSeesNewestState(t *testing.T) {
	g := newGatedSubmitter()
	close(g.release)
	tr, err := NewTracker(g)
	require.NoError(t, err)

	updates, cancel := tr.Subscribe()
	_, err = tr.Submit(context.Background(), sample)
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, (<-updates).State)
	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)
}
