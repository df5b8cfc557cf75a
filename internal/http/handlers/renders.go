package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/pkg/zip"
)

type renderSaveRequest struct {
	TemplateID string            `json:"template_id"`
	ThemeID    string            `json:"theme_id"`
	Slots      map[string]string `json:"slots"`
	// Composite carries the rendered PNG, base64-encoded.
	Composite string `json:"composite"`
}

func renderEntryResponse(entry domain.RenderEntry) map[string]any {
	return map[string]any{
		"key":         entry.Key,
		"draft_id":    entry.DraftID,
		"template_id": entry.TemplateID,
		"theme_id":    entry.ThemeID,
		"size_bytes":  entry.SizeBytes,
		"created_at":  entry.CreatedAt,
	}
}

func (a *App) RenderSave(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draft_id")
	var req renderSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.TemplateID == "" || req.ThemeID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "template_id and theme_id required")
		return
	}
	composite, err := base64.StdEncoding.DecodeString(req.Composite)
	if err != nil || len(composite) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "composite must be non-empty base64")
		return
	}
	entry, err := a.Renders.Save(r.Context(), draftID, req.TemplateID, req.ThemeID, req.Slots, composite)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist render")
		return
	}
	a.json(w, http.StatusCreated, renderEntryResponse(entry))
}

func (a *App) RenderList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Renders.List(r.Context(), chi.URLParam(r, "draft_id"))
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list renders")
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, renderEntryResponse(entry))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) RenderGet(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draft_id")
	themeID := chi.URLParam(r, "theme_id")
	compositePath, ok := a.Renders.Lookup(r.Context(), draftID, themeID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no cached render for draft and theme")
		return
	}
	data, err := os.ReadFile(compositePath)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to read composite")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *App) RenderInvalidate(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draft_id")
	if err := a.Renders.Invalidate(r.Context(), draftID); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to invalidate draft")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "invalidated", "draft_id": draftID})
}

// RenderArchive streams every cached composite for the draft as a zip.
func (a *App) RenderArchive(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draft_id")
	entries, err := a.Renders.List(r.Context(), draftID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list renders")
		return
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "draft has no cached renders")
		return
	}
	archive := make([]zip.Entry, 0, len(entries))
	for _, entry := range entries {
		data, err := a.Renders.ReadComposite(r.Context(), entry)
		if err != nil {
			a.Logger.Warn().Err(err).Str("key", entry.Key).Msg("skipping unreadable composite")
			continue
		}
		archive = append(archive, zip.Entry{
			Name:     entry.ThemeID + path.Ext(entry.Path),
			Data:     data,
			Modified: entry.CreatedAt,
		})
	}
	data, err := zip.Archive(archive)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+draftID+`-renders.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
