package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
)

type enhancementRequest struct {
	Kind     string               `json:"kind"`
	Color    string               `json:"color"`
	Gradient *domain.GradientSpec `json:"gradient"`
	Prompt   string               `json:"prompt"`
	Source   sourceRequest        `json:"source"`
}

type sourceRequest struct {
	Identity string `json:"identity"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Location string `json:"location"` // local | remote
	URI      string `json:"uri"`
}

func (s sourceRequest) toAsset() (domain.SourceAsset, error) {
	if s.Identity == "" || s.URI == "" {
		return domain.SourceAsset{}, errors.New("source identity and uri required")
	}
	loc := domain.SourceLocation(s.Location)
	switch loc {
	case domain.SourceLocal, domain.SourceRemote:
	case "":
		loc = domain.SourceRemote
	default:
		return domain.SourceAsset{}, errors.New("unknown source location")
	}
	return domain.SourceAsset{
		Identity: s.Identity,
		Width:    s.Width,
		Height:   s.Height,
		Location: loc,
		URI:      s.URI,
	}, nil
}

func (a *App) EnhancementStart(w http.ResponseWriter, r *http.Request) {
	var req enhancementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	kind := domain.NormalizeOperationKind(req.Kind)
	if kind == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported operation kind")
		return
	}
	source, err := req.Source.toAsset()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	op := domain.Operation{
		Kind:     kind,
		Color:    req.Color,
		Gradient: req.Gradient,
		Prompt:   req.Prompt,
	}
	session, err := a.Orchestrator.Start(op, source)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	a.json(w, http.StatusAccepted, session.Snapshot())
}

func (a *App) EnhancementStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := a.Orchestrator.Get(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	a.json(w, http.StatusOK, session.Snapshot())
}

func (a *App) EnhancementCancel(w http.ResponseWriter, r *http.Request) {
	a.sessionAction(w, r, a.Orchestrator.Cancel)
}

func (a *App) EnhancementRetry(w http.ResponseWriter, r *http.Request) {
	a.sessionAction(w, r, a.Orchestrator.Retry)
}

func (a *App) EnhancementApply(w http.ResponseWriter, r *http.Request) {
	a.sessionAction(w, r, a.Orchestrator.Apply)
}

func (a *App) sessionAction(w http.ResponseWriter, r *http.Request, action func(string) error) {
	id := chi.URLParam(r, "id")
	if err := action(id); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			a.error(w, http.StatusNotFound, "not_found", "session not found")
		case errors.Is(err, domain.ErrInvalidState):
			a.error(w, http.StatusConflict, "invalid_state", "session does not allow this action")
		default:
			a.error(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	session, ok := a.Orchestrator.Get(id)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	a.json(w, http.StatusOK, session.Snapshot())
}
