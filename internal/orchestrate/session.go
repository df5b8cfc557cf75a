package orchestrate

import (
	"context"
	"sync"
	"time"

	"studio/internal/domain"
	"studio/internal/track"
)

// State enumerates the per-session orchestration states.
type State string

const (
	StateHome            State = "home"
	StateFeatureSelected State = "feature_selected"
	StatePreparing       State = "preparing"
	StateProcessing      State = "processing"
	StateSuccess         State = "success"
	StateError           State = "error"
	StateCancelled       State = "cancelled"
)

// Settled reports whether the session stopped making progress on its own.
func (s State) Settled() bool {
	switch s {
	case StateSuccess, StateError, StateCancelled, StateHome:
		return true
	default:
		return false
	}
}

// Session is one editing session's orchestration state. All mutation happens
// under its lock; the orchestrator goroutines and HTTP handlers share it.
type Session struct {
	mu        sync.Mutex
	id        string
	state     State
	op        domain.Operation
	source    domain.SourceAsset
	job       *track.TrackedJob
	cancelRun context.CancelFunc
	resultURI string
	display   *domain.DisplayMetadata
	failure   *domain.Failure
	lastEvent domain.ProgressEvent
	updatedAt time.Time
}

// Snapshot is an immutable view of a session for handlers and streams.
type Snapshot struct {
	ID              string                  `json:"id"`
	State           State                   `json:"state"`
	Operation       domain.Operation        `json:"operation"`
	JobID           string                  `json:"job_id,omitempty"`
	ProgressPercent int                     `json:"progress_percent"`
	ResultURI       string                  `json:"result_uri,omitempty"`
	Display         *domain.DisplayMetadata `json:"display,omitempty"`
	ErrorCategory   string                  `json:"error_category,omitempty"`
	ErrorMessage    string                  `json:"error_message,omitempty"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Snapshot copies the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.id,
		State:     s.state,
		Operation: s.op,
		ResultURI: s.resultURI,
		Display:   s.display,
		UpdatedAt: s.updatedAt,
	}
	if s.job != nil {
		job := s.job.Snapshot()
		snap.JobID = job.ID
		snap.ProgressPercent = job.ProgressPercent
	}
	if s.failure != nil {
		snap.ErrorCategory = s.failure.UserCategory()
		snap.ErrorMessage = s.failure.Message
	}
	return snap
}

// setState moves the session forward unless it has already settled. Settled
// states are only left through Retry or Apply, which reset explicitly.
func (s *Session) setState(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Settled() {
		return false
	}
	s.state = to
	s.updatedAt = time.Now()
	return true
}

func (s *Session) attachJob(job *track.TrackedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = job
	s.updatedAt = time.Now()
}

// activeJobID returns the id of a not-yet-terminal job, if any. It guards
// against entering Processing twice for the same session.
func (s *Session) activeJobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return ""
	}
	job := s.job.Snapshot()
	if job.Status.Terminal() {
		return ""
	}
	return job.ID
}

func (s *Session) succeed(resultURI string, display *domain.DisplayMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Settled() {
		return
	}
	s.state = StateSuccess
	s.resultURI = resultURI
	s.display = display
	s.failure = nil
	s.updatedAt = time.Now()
}

func (s *Session) fail(failure *domain.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Settled() {
		return
	}
	s.state = StateError
	s.failure = failure
	s.updatedAt = time.Now()
}

func (s *Session) toCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Settled() {
		return
	}
	s.state = StateCancelled
	s.updatedAt = time.Now()
}

func (s *Session) recordEvent(e domain.ProgressEvent) {
	s.mu.Lock()
	s.lastEvent = e
	s.updatedAt = time.Now()
	s.mu.Unlock()
}
