package domain

// ProgressStatus tags a progress event. The set is closed; each status only
// populates its own fields, so consumers never read an absent one.
type ProgressStatus string

const (
	ProgressSubmitting ProgressStatus = "submitting"
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
	ProgressCancelled  ProgressStatus = "cancelled"
)

// ProgressEvent is delivered zero or more times while a job runs, followed by
// exactly one terminal event per job.
type ProgressEvent struct {
	Status  ProgressStatus   `json:"status"`
	Message string           `json:"message,omitempty"`
	Percent int              `json:"progress_percent"`
	// OutputURL is set on Completed only.
	OutputURL string `json:"output_url,omitempty"`
	// Failure is set on Failed only.
	Failure *Failure `json:"-"`
	// Metadata is set on Completed only.
	Metadata *DisplayMetadata `json:"operation_metadata,omitempty"`
}

// Terminal reports whether the event ends the job's progress stream.
func (e ProgressEvent) Terminal() bool {
	switch e.Status {
	case ProgressCompleted, ProgressFailed, ProgressCancelled:
		return true
	default:
		return false
	}
}

// ProgressFunc receives progress events. Implementations must be safe to call
// from the tracker's goroutines.
type ProgressFunc func(ProgressEvent)

func SubmittingEvent() ProgressEvent {
	return ProgressEvent{Status: ProgressSubmitting, Message: "submitting"}
}

func ProcessingEvent(percent int, message string) ProgressEvent {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return ProgressEvent{Status: ProgressProcessing, Percent: percent, Message: message}
}

func CompletedEvent(outputURL string, meta *DisplayMetadata) ProgressEvent {
	return ProgressEvent{Status: ProgressCompleted, Percent: 100, OutputURL: outputURL, Metadata: meta}
}

func FailedEvent(failure *Failure) ProgressEvent {
	msg := ""
	if failure != nil {
		msg = failure.Message
	}
	return ProgressEvent{Status: ProgressFailed, Message: msg, Failure: failure}
}

func CancelledEvent() ProgressEvent {
	return ProgressEvent{Status: ProgressCancelled, Message: "cancelled"}
}
