package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"clearcrew/internal/report"
	dErrors "clearcrew/pkg/domain-errors"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Status is the last known state of this device's submission.
type Status struct {
	State      State             `json:"state"`
	Result     *SubmissionResult `json:"result,omitempty"`
	Code       dErrors.Code      `json:"code,omitempty"`
	Message    string            `json:"message,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
	StartedAt  time.Time         `json:"startedAt,omitzero"`
	FinishedAt time.Time         `json:"finishedAt,omitzero"`
}

type Submitter interface {
	Submit(ctx context.Context, r report.Report) (SubmissionResult, error)
}

// Tracker admits one submission at a time and publishes each state change
// to subscribers.
type Tracker struct {
	submitter Submitter
	sem       *semaphore.Weighted
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	status Status
	subs   map[int]chan Status
	nextID int
}

type TrackerOption func(*Tracker)

func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

func NewTracker(submitter Submitter, opts ...TrackerOption) (*Tracker, error) {
	if submitter == nil {
		return nil, errors.New("submitter is required")
	}
	t := &Tracker{
		submitter: submitter,
		sem:       semaphore.NewWeighted(1),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		status:    Status{State: StateIdle},
		subs:      make(map[int]chan Status),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Submit runs one submission. A second call while one is in flight fails
// immediately with CodeSubmissionInProgress.
func (t *Tracker) Submit(ctx context.Context, r report.Report) (SubmissionResult, error) {
	if !t.sem.TryAcquire(1) {
		return SubmissionResult{}, dErrors.New(dErrors.CodeSubmissionInProgress, "a submission is already in progress")
	}
	defer t.sem.Release(1)

	started := t.now()
	t.publish(Status{State: StateSubmitting, StartedAt: started})

	result, err := t.submitter.Submit(ctx, r)
	if err != nil {
		code := dErrors.CodeOf(err)
		t.publish(Status{
			State:      StateFailed,
			Code:       code,
			Message:    dErrors.Message(err),
			Retryable:  dErrors.Retryable(err),
			StartedAt:  started,
			FinishedAt: t.now(),
		})
		return SubmissionResult{}, err
	}
	t.publish(Status{
		State:      StateSucceeded,
		Result:     &result,
		StartedAt:  started,
		FinishedAt: t.now(),
	})
	return result, nil
}

// Status returns the latest published state.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Subscribe returns a channel that receives the current state and every
// later change, plus a function that closes it. A slow subscriber sees only
// the newest state.
func (t *Tracker) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	ch <- t.status
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			close(ch)
			t.mu.Unlock()
		})
	}
}

func (t *Tracker) publish(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	for _, ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
	t.logger.Debug("submission state changed", "state", s.State, "code", s.Code)
}
