package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studio/internal/domain"
)

type inferenceCallback struct {
	CorrelationID string `json:"correlation_id"`
	Success       bool   `json:"success"`
	OutputURL     string `json:"output_url"`
	Message       string `json:"message"`
}

// InferenceCallback receives the provider's push notification. A correlation
// id the tracker no longer knows is acknowledged anyway so the provider stops
// retrying; the signal is simply too late to matter.
func (a *App) InferenceCallback(w http.ResponseWriter, r *http.Request) {
	var cb inferenceCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if cb.CorrelationID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "correlation_id required")
		return
	}
	err := a.Tracker.HandlePush(cb.CorrelationID, cb.Success, cb.OutputURL, cb.Message)
	if err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if errors.Is(err, domain.ErrJobNotFound) {
		a.Logger.Debug().Str("correlation_id", cb.CorrelationID).Msg("callback for unknown job ignored")
	}
	a.json(w, http.StatusOK, map[string]string{"status": "accepted"})
}
