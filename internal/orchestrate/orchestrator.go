package orchestrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/normalize"
	"studio/internal/track"
)

// Options configures an Orchestrator.
type Options struct {
	Normalizer *normalize.Normalizer
	Results    domain.ResultCache
	Tracker    *track.Tracker
	Logger     infra.Logger
	Metrics    *metrics.Metrics
	// HitDelay is the deliberate pause before a cache hit resolves, so the
	// UI shows a processing moment. Purely presentational.
	HitDelay time.Duration
}

// Orchestrator runs editing sessions: normalize, consult the result cache,
// submit to the tracker only on a miss, write back on completion. It owns the
// session registry explicitly; there is no ambient module-level state.
type Orchestrator struct {
	normalizer *normalize.Normalizer
	results    domain.ResultCache
	tracker    *track.Tracker
	logger     infra.Logger
	metrics    *metrics.Metrics
	hitDelay   time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		normalizer: opts.Normalizer,
		results:    opts.Results,
		tracker:    opts.Tracker,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		hitDelay:   opts.HitDelay,
		sessions:   make(map[string]*Session),
	}
}

// Start creates a session for the chosen operation and begins the
// Preparing → Processing pipeline asynchronously.
func (o *Orchestrator) Start(op domain.Operation, source domain.SourceAsset) (*Session, error) {
	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("select feature: %w", err)
	}
	s := &Session{
		id:        uuid.NewString(),
		state:     StateFeatureSelected,
		op:        op,
		source:    source,
		updatedAt: time.Now(),
	}
	o.mu.Lock()
	o.sessions[s.id] = s
	o.mu.Unlock()

	o.launch(s)
	return s, nil
}

// Get looks up a session by id.
func (o *Orchestrator) Get(sessionID string) (*Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	return s, ok
}

// Cancel cooperatively cancels the session's pipeline and active job.
func (o *Orchestrator) Cancel(sessionID string) error {
	s, ok := o.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	cancel := s.cancelRun
	job := s.job
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if job != nil {
		_ = o.tracker.Cancel(job.ID())
	}
	s.toCancelled()
	return nil
}

// Retry returns an errored (or cancelled) session to FeatureSelected with the
// previously chosen operation intact, then runs the pipeline again as a brand
// new job.
func (o *Orchestrator) Retry(sessionID string) error {
	s, ok := o.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	if s.state != StateError && s.state != StateCancelled {
		s.mu.Unlock()
		return domain.ErrInvalidState
	}
	if s.job != nil {
		o.tracker.Forget(s.job.ID())
		s.job = nil
	}
	s.state = StateFeatureSelected
	s.failure = nil
	s.updatedAt = time.Now()
	s.mu.Unlock()

	o.launch(s)
	return nil
}

// Apply acknowledges a successful session; the result has been taken into the
// draft and the session returns home.
func (o *Orchestrator) Apply(sessionID string) error {
	s, ok := o.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSuccess {
		return domain.ErrInvalidState
	}
	if s.job != nil {
		o.tracker.Forget(s.job.ID())
		s.job = nil
	}
	s.state = StateHome
	s.updatedAt = time.Now()
	return nil
}

func (o *Orchestrator) launch(s *Session) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()
	go o.run(ctx, s)
}

func (o *Orchestrator) run(ctx context.Context, s *Session) {
	// A job already in flight for this session makes re-entry a no-op.
	if jobID := s.activeJobID(); jobID != "" {
		o.logger.Debug().Str("session_id", s.id).Str("job_id", jobID).Msg("orchestrate: job already active")
		return
	}

	if !s.setState(StatePreparing) {
		return
	}

	normalizedURL, err := o.normalizer.Normalize(ctx, s.source)
	if err != nil {
		if ctx.Err() != nil {
			s.toCancelled()
			return
		}
		o.logger.Warn().Err(err).Str("session_id", s.id).Msg("orchestrate: preparation failed")
		s.fail(domain.FailureFrom(err))
		return
	}

	onProgress := func(e domain.ProgressEvent) { o.handleProgress(s, e) }

	if s.op.CacheEligible() {
		cachedURL, hit, err := o.results.Lookup(ctx, s.source.Identity, s.op.CacheSignature())
		if err != nil {
			o.logger.Warn().Err(err).Str("session_id", s.id).Msg("orchestrate: result cache lookup failed")
		} else if hit {
			if o.metrics != nil {
				o.metrics.ResultCacheHits.Inc()
			}
			o.logger.Info().Str("session_id", s.id).Str("identity", s.source.Identity).Msg("orchestrate: result cache hit")
			s.setState(StateProcessing)
			s.attachJob(o.tracker.SubmitResolved(ctx, s.op, s.source, cachedURL, o.hitDelay, onProgress))
			return
		}
		if o.metrics != nil && err == nil {
			o.metrics.ResultCacheMisses.Inc()
		}
	}

	s.setState(StateProcessing)
	job, err := o.tracker.Submit(ctx, s.op, s.source, normalizedURL, onProgress)
	if job != nil {
		s.attachJob(job)
	}
	if err != nil {
		if job == nil {
			// Cancelled before submission; no job was created.
			s.toCancelled()
		}
		// A rejected submission already produced the single terminal
		// Failed event through the tracker.
		return
	}
}

func (o *Orchestrator) handleProgress(s *Session, e domain.ProgressEvent) {
	s.recordEvent(e)
	switch e.Status {
	case domain.ProgressCompleted:
		o.storeResult(s, e.OutputURL)
		s.succeed(e.OutputURL, e.Metadata)
	case domain.ProgressFailed:
		s.fail(e.Failure)
	case domain.ProgressCancelled:
		s.toCancelled()
	}
}

// storeResult writes a completed result back into the result cache. Failures
// here are logged and never surfaced: the session still succeeds.
func (o *Orchestrator) storeResult(s *Session, outputURL string) {
	if !s.op.CacheEligible() || outputURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.results.Store(ctx, s.source.Identity, s.op.CacheSignature(), outputURL); err != nil {
		if o.metrics != nil {
			o.metrics.CacheWriteErrors.Inc()
		}
		o.logger.Warn().Err(err).Str("session_id", s.id).Msg("orchestrate: result cache write failed")
	}
}
