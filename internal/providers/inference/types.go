package inference

import (
	"context"

	"studio/internal/domain"
)

// TaskState enumerates provider-side task states.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// SubmitRequest carries a normalized source URL plus operation parameters.
// CorrelationID is echoed back on the push notification so the tracker can
// route the signal; delivery may be duplicated and is never assumed
// idempotent.
type SubmitRequest struct {
	ImageURL      string
	Kind          domain.OperationKind
	Prompt        string
	CorrelationID string
	CallbackURL   string
}

// TaskStatus is one observation of an asynchronous provider task.
type TaskStatus struct {
	TaskID    string
	State     TaskState
	Progress  int
	OutputURL string
	Message   string
}

// Provider is the asynchronous inference collaborator. Submit returns a
// provider task id; Status is the fallback polling channel.
type Provider interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Status(ctx context.Context, taskID string) (TaskStatus, error)
}
