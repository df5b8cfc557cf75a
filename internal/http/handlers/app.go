package handlers

import (
	"encoding/json"
	"net/http"

	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/orchestrate"
	"studio/internal/rendercache"
	"studio/internal/track"
)

type App struct {
	Logger       infra.Logger
	Orchestrator *orchestrate.Orchestrator
	Tracker      *track.Tracker
	Renders      *rendercache.Cache
	Metrics      *metrics.Metrics
}

func NewApp(logger infra.Logger, orch *orchestrate.Orchestrator, tracker *track.Tracker, renders *rendercache.Cache, m *metrics.Metrics) *App {
	return &App{
		Logger:       logger,
		Orchestrator: orch,
		Tracker:      tracker,
		Renders:      renders,
		Metrics:      m,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
