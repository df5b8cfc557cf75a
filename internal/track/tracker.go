package track

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/providers/inference"
)

// Options configures a Tracker.
type Options struct {
	Provider     inference.Provider
	Logger       infra.Logger
	Metrics      *metrics.Metrics
	PollInterval time.Duration
	CallbackURL  string
}

// Tracker submits jobs to the inference provider and drives each one to a
// single terminal state. Completion may arrive through the push callback or
// the fallback status poll; whichever terminal signal wins the race is
// applied and every later one is dropped.
type Tracker struct {
	provider     inference.Provider
	logger       infra.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
	callbackURL  string

	mu            sync.Mutex
	byID          map[string]*TrackedJob
	byCorrelation map[string]*TrackedJob
}

// New builds a Tracker.
func New(opts Options) *Tracker {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Tracker{
		provider:      opts.Provider,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		pollInterval:  interval,
		callbackURL:   opts.CallbackURL,
		byID:          make(map[string]*TrackedJob),
		byCorrelation: make(map[string]*TrackedJob),
	}
}

// TrackedJob is one job owned by the tracker. All status mutation goes
// through finish/updateProgress, which reject any change after a terminal
// state has been reached.
type TrackedJob struct {
	tracker *Tracker

	mu         sync.Mutex
	job        domain.Job
	onProgress domain.ProgressFunc
	cancelPoll context.CancelFunc
	done       chan struct{}
}

func (t *Tracker) newJob(op domain.Operation, source domain.SourceAsset, onProgress domain.ProgressFunc) *TrackedJob {
	j := &TrackedJob{
		tracker: t,
		job: domain.Job{
			ID:            uuid.NewString(),
			CorrelationID: uuid.NewString(),
			Operation:     op,
			Source:        source,
			Status:        domain.JobStatusPreparing,
			CreatedAt:     time.Now(),
		},
		onProgress: onProgress,
		cancelPoll: func() {},
		done:       make(chan struct{}),
	}
	t.mu.Lock()
	t.byID[j.job.ID] = j
	t.byCorrelation[j.job.CorrelationID] = j
	t.mu.Unlock()
	return j
}

// Submit sends the normalized request to the provider and starts the fallback
// poll loop. A provider rejection is terminal; the job is still returned so
// the caller can observe the failure state. The context is checked before
// submission; cancelling it later cancels the job cooperatively.
func (t *Tracker) Submit(ctx context.Context, op domain.Operation, source domain.SourceAsset, normalizedURL string, onProgress domain.ProgressFunc) (*TrackedJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j := t.newJob(op, source, onProgress)
	j.emit(domain.SubmittingEvent())
	if t.metrics != nil {
		t.metrics.JobsSubmitted.Inc()
	}

	taskID, err := t.provider.Submit(ctx, inference.SubmitRequest{
		ImageURL:      normalizedURL,
		Kind:          op.Kind,
		Prompt:        op.Prompt,
		CorrelationID: j.job.CorrelationID,
		CallbackURL:   t.callbackURL,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			j.finish(domain.JobStatusCancelled, "", nil)
			return j, err
		}
		j.finish(domain.JobStatusFailed, "", domain.FailureFrom(err))
		return j, err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	j.mu.Lock()
	// The push notification can win the race against Submit returning; a
	// terminal job must not be revived or polled.
	advanced := j.job.Status.CanTransition(domain.JobStatusSubmitted)
	if advanced {
		j.job.Status = domain.JobStatusSubmitted
		j.cancelPoll = cancel
	}
	j.mu.Unlock()
	if !advanced {
		cancel()
		return j, nil
	}
	go t.poll(pollCtx, j, taskID)

	return j, nil
}

// SubmitResolved synthesizes a completion for a result-cache hit. The job
// still goes through the single terminal-signal path, after a short
// deliberate delay for perceived responsiveness.
func (t *Tracker) SubmitResolved(ctx context.Context, op domain.Operation, source domain.SourceAsset, resultURI string, delay time.Duration, onProgress domain.ProgressFunc) *TrackedJob {
	j := t.newJob(op, source, onProgress)
	j.emit(domain.SubmittingEvent())
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			j.finish(domain.JobStatusCancelled, "", nil)
		case <-timer.C:
			j.finish(domain.JobStatusCompleted, resultURI, nil)
		}
	}()
	return j
}

// HandlePush routes a provider push notification to its job. Duplicate and
// late signals are dropped silently.
func (t *Tracker) HandlePush(correlationID string, success bool, outputURL, message string) error {
	t.mu.Lock()
	j := t.byCorrelation[correlationID]
	t.mu.Unlock()
	if j == nil {
		return domain.ErrJobNotFound
	}

	var accepted bool
	if success {
		accepted = j.finish(domain.JobStatusCompleted, outputURL, nil)
	} else {
		accepted = j.finish(domain.JobStatusFailed, "", &domain.Failure{
			Class:   classifyProviderMessage(message),
			Message: message,
		})
	}
	if !accepted {
		t.dropSignal(j.ID(), "push")
	}
	return nil
}

// Cancel cooperatively cancels the job. A completion that arrives afterwards
// is dropped like any other late terminal signal.
func (t *Tracker) Cancel(jobID string) error {
	t.mu.Lock()
	j := t.byID[jobID]
	t.mu.Unlock()
	if j == nil {
		return domain.ErrJobNotFound
	}
	if !j.finish(domain.JobStatusCancelled, "", nil) {
		t.dropSignal(jobID, "cancel")
	}
	return nil
}

// Forget releases a job the caller no longer observes. Callers do this after
// seeing a terminal state.
func (t *Tracker) Forget(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j := t.byID[jobID]
	if j == nil {
		return
	}
	delete(t.byID, jobID)
	delete(t.byCorrelation, j.job.CorrelationID)
}

func (t *Tracker) dropSignal(jobID, channel string) {
	if t.metrics != nil {
		t.metrics.DuplicateSignals.Inc()
	}
	t.logger.Debug().Str("job_id", jobID).Str("channel", channel).Msg("tracker: dropped late terminal signal")
}

func (t *Tracker) poll(ctx context.Context, j *TrackedJob, taskID string) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				j.finish(domain.JobStatusFailed, "", &domain.Failure{Class: domain.FailureTimeout, Message: "deadline exceeded"})
			} else {
				j.finish(domain.JobStatusCancelled, "", nil)
			}
			return
		case <-j.done:
			return
		case <-ticker.C:
			status, err := t.provider.Status(ctx, taskID)
			if err != nil {
				// Transient poll failures are not terminal; the push
				// channel may still deliver.
				t.logger.Debug().Err(err).Str("job_id", j.ID()).Msg("tracker: poll failed")
				continue
			}
			switch status.State {
			case inference.TaskSucceeded:
				if !j.finish(domain.JobStatusCompleted, status.OutputURL, nil) {
					t.dropSignal(j.ID(), "poll")
				}
				return
			case inference.TaskFailed:
				if !j.finish(domain.JobStatusFailed, "", &domain.Failure{
					Class:   classifyProviderMessage(status.Message),
					Message: status.Message,
				}) {
					t.dropSignal(j.ID(), "poll")
				}
				return
			default:
				j.updateProgress(status.Progress, status.Message)
			}
		}
	}
}

// ID returns the job id.
func (j *TrackedJob) ID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.job.ID
}

// CorrelationID returns the id the provider echoes on push notifications.
func (j *TrackedJob) CorrelationID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.job.CorrelationID
}

// Snapshot returns a copy of the job's current state.
func (j *TrackedJob) Snapshot() domain.Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.job
}

// Done is closed once the job reaches its terminal state.
func (j *TrackedJob) Done() <-chan struct{} {
	return j.done
}

// finish performs the atomic has-already-terminated check-and-set. The first
// caller wins and emits the single terminal progress event; every later call
// returns false and has no side effects.
func (j *TrackedJob) finish(status domain.JobStatus, resultURI string, failure *domain.Failure) bool {
	j.mu.Lock()
	if !j.job.Status.CanTransition(status) {
		j.mu.Unlock()
		return false
	}
	j.job.Status = status
	j.job.ResultURI = resultURI
	j.job.Failure = failure
	j.job.CompletedAt = time.Now()
	if status == domain.JobStatusCompleted {
		j.job.ProgressPercent = 100
	}
	op := j.job.Operation
	cancel := j.cancelPoll
	close(j.done)
	j.mu.Unlock()

	cancel()
	if j.tracker != nil && j.tracker.metrics != nil {
		j.tracker.metrics.JobsTerminal.WithLabelValues(string(status)).Inc()
	}

	switch status {
	case domain.JobStatusCompleted:
		meta := op.Display()
		j.emit(domain.CompletedEvent(resultURI, &meta))
	case domain.JobStatusFailed:
		j.emit(domain.FailedEvent(failure))
	case domain.JobStatusCancelled:
		j.emit(domain.CancelledEvent())
	}
	return true
}

func (j *TrackedJob) updateProgress(percent int, message string) {
	j.mu.Lock()
	if j.job.Status != domain.JobStatusProcessing {
		if !j.job.Status.CanTransition(domain.JobStatusProcessing) {
			j.mu.Unlock()
			return
		}
		j.job.Status = domain.JobStatusProcessing
	}
	if percent > j.job.ProgressPercent && percent <= 100 {
		j.job.ProgressPercent = percent
	}
	percent = j.job.ProgressPercent
	j.mu.Unlock()
	j.emit(domain.ProcessingEvent(percent, message))
}

func (j *TrackedJob) emit(event domain.ProgressEvent) {
	j.mu.Lock()
	fn := j.onProgress
	j.mu.Unlock()
	if fn != nil {
		fn(event)
	}
}

func classifyProviderMessage(message string) domain.FailureClass {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return domain.FailureTimeout
	case strings.Contains(msg, "unsupported") || strings.Contains(msg, "invalid input"):
		return domain.FailureUnsupportedInput
	default:
		return domain.FailureProviderRejected
	}
}
