package domain

import "time"

// JobStatus enumerates the tracker's job lifecycle states.
type JobStatus string

const (
	JobStatusPreparing  JobStatus = "preparing"
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

var statusRank = map[JobStatus]int{
	JobStatusPreparing:  0,
	JobStatusSubmitted:  1,
	JobStatusProcessing: 2,
	JobStatusCompleted:  3,
	JobStatusFailed:     3,
	JobStatusCancelled:  3,
}

// CanTransition reports whether moving from s to next is legal. Transitions
// are monotonic and nothing leaves a terminal state; the transition function
// itself is the single guard against double completion.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Job is one submission to the inference provider. The caller discards it
// once a terminal status has been observed.
type Job struct {
	ID              string
	CorrelationID   string
	Operation       Operation
	Source          SourceAsset
	Status          JobStatus
	ProgressPercent int
	ResultURI       string
	Failure         *Failure
	CreatedAt       time.Time
	CompletedAt     time.Time
}
