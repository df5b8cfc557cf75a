package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studio/internal/domain"
)

// Options configures the HTTP provider client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the remote inference service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a Client. A nil HTTPClient gets a default with the
// configured timeout.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.inference.example.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

type submitPayload struct {
	ImageURL      string `json:"image_url"`
	Operation     string `json:"operation"`
	Prompt        string `json:"prompt,omitempty"`
	CorrelationID string `json:"correlation_id"`
	CallbackURL   string `json:"callback_url,omitempty"`
}

type submitResponse struct {
	TaskID  string `json:"task_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type statusResponse struct {
	TaskID    string `json:"task_id"`
	State     string `json:"state"`
	Progress  int    `json:"progress"`
	OutputURL string `json:"output_url"`
	Message   string `json:"message"`
}

// Submit sends the edit request and returns the provider task id.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if c == nil {
		return "", errors.New("inference client not configured")
	}
	if c.token == "" {
		return "", &domain.SubmissionError{
			Class: domain.FailureAccessRestricted,
			Err:   errors.New("inference: API key is missing"),
		}
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return "", &domain.SubmissionError{
			Class: domain.FailureUnsupportedInput,
			Err:   errors.New("inference: image url required"),
		}
	}
	body, err := json.Marshal(submitPayload{
		ImageURL:      req.ImageURL,
		Operation:     string(req.Kind),
		Prompt:        req.Prompt,
		CorrelationID: req.CorrelationID,
		CallbackURL:   req.CallbackURL,
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/edits", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.SubmissionError{Class: domain.Classify(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &domain.SubmissionError{Class: domain.FailureNetwork, Err: err}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", &domain.SubmissionError{
			Class: classifyStatus(resp.StatusCode),
			Err:   fmt.Errorf("inference: submit status %d: %s", resp.StatusCode, truncate(raw)),
		}
	}
	var parsed submitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("inference: decode submit response: %w", err)
	}
	if parsed.TaskID == "" {
		return "", &domain.SubmissionError{
			Class: domain.FailureProviderRejected,
			Err:   fmt.Errorf("inference: %s %s", parsed.Code, parsed.Message),
		}
	}
	return parsed.TaskID, nil
}

// Status polls the provider for the task's current state.
func (c *Client) Status(ctx context.Context, taskID string) (TaskStatus, error) {
	if c == nil {
		return TaskStatus{}, errors.New("inference client not configured")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/edits/"+taskID, nil)
	if err != nil {
		return TaskStatus{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return TaskStatus{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TaskStatus{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return TaskStatus{}, fmt.Errorf("inference: status %d: %s", resp.StatusCode, truncate(raw))
	}
	var parsed statusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return TaskStatus{}, fmt.Errorf("inference: decode status response: %w", err)
	}
	return TaskStatus{
		TaskID:    parsed.TaskID,
		State:     normalizeState(parsed.State),
		Progress:  parsed.Progress,
		OutputURL: parsed.OutputURL,
		Message:   parsed.Message,
	}, nil
}

func normalizeState(state string) TaskState {
	switch TaskState(strings.ToLower(strings.TrimSpace(state))) {
	case TaskRunning:
		return TaskRunning
	case TaskSucceeded:
		return TaskSucceeded
	case TaskFailed:
		return TaskFailed
	default:
		return TaskPending
	}
}

func classifyStatus(code int) domain.FailureClass {
	switch {
	case code == http.StatusUnsupportedMediaType || code == http.StatusUnprocessableEntity:
		return domain.FailureUnsupportedInput
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.FailureAccessRestricted
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return domain.FailureTimeout
	case code >= 400 && code < 500:
		return domain.FailureProviderRejected
	default:
		return domain.FailureNetwork
	}
}

func truncate(raw []byte) string {
	const max = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max]
	}
	return s
}

var _ Provider = (*Client)(nil)
