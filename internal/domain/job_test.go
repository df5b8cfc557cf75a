package domain

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		ok       bool
	}{
		{JobStatusPreparing, JobStatusSubmitted, true},
		{JobStatusSubmitted, JobStatusProcessing, true},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusSubmitted, JobStatusCancelled, true},
		{JobStatusPreparing, JobStatusFailed, true},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusFailed, JobStatusCompleted, false},
		{JobStatusCancelled, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusSubmitted, false},
		{JobStatusProcessing, JobStatusPreparing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusPreparing, JobStatusSubmitted, JobStatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
