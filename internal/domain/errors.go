package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureClass classifies terminal job failures.
type FailureClass string

const (
	FailureTimeout          FailureClass = "timeout"
	FailureNetwork          FailureClass = "network"
	FailureUnsupportedInput FailureClass = "unsupported_input"
	FailureProviderRejected FailureClass = "provider_rejected"
	FailureAccessRestricted FailureClass = "access_restricted"
	FailureCancelled        FailureClass = "cancelled"
	FailureUnknown          FailureClass = "unknown"
)

// Failure is the classified error carried by a failed job and shown to the
// user. Cancellation is modelled as its own status, not a Failure.
type Failure struct {
	Class   FailureClass
	Message string
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", f.Class, f.Message)
}

// UserCategory maps a failure class onto the closed set of categories the UI
// is allowed to display.
func (f *Failure) UserCategory() string {
	if f == nil {
		return string(FailureUnknown)
	}
	switch f.Class {
	case FailureTimeout:
		return "timeout"
	case FailureNetwork:
		return "connectivity"
	case FailureCancelled:
		return "cancelled"
	case FailureUnsupportedInput:
		return "unsupported_input"
	case FailureAccessRestricted:
		return "access_restricted"
	default:
		return "unknown"
	}
}

// PreparationError aborts an operation during normalization, before any job
// exists. Stage names the failed step (fetch, decode, upload).
type PreparationError struct {
	Stage string
	Class FailureClass
	Err   error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("prepare %s: %v", e.Stage, e.Err)
}

func (e *PreparationError) Unwrap() error { return e.Err }

// SubmissionError means the provider rejected the request outright; terminal,
// never retried internally.
type SubmissionError struct {
	Class FailureClass
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidState rejects an orchestrator call in the wrong state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrJobNotFound is returned for signals addressed to unknown jobs.
	ErrJobNotFound = errors.New("job not found")
)

// Classify derives a failure class from an arbitrary pipeline error.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureUnknown
	}
	var prep *PreparationError
	if errors.As(err, &prep) {
		return prep.Class
	}
	var sub *SubmissionError
	if errors.As(err, &sub) {
		return sub.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	if errors.Is(err, context.Canceled) {
		return FailureCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return FailureTimeout
		}
		return FailureNetwork
	}
	return FailureUnknown
}

// FailureFrom wraps an arbitrary error into a classified Failure.
func FailureFrom(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{Class: Classify(err), Message: err.Error()}
}
