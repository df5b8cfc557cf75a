package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const streamInterval = 250 * time.Millisecond

// EnhancementStream pushes session snapshots over a websocket until the
// session settles. Clients that only poll GET /v1/enhancements/{id} see the
// same snapshots; the stream is a convenience, not a separate source of truth.
func (a *App) EnhancementStream(w http.ResponseWriter, r *http.Request) {
	session, ok := a.Orchestrator.Get(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var lastSent time.Time
	for {
		snap := session.Snapshot()
		if snap.UpdatedAt.After(lastSent) || lastSent.IsZero() {
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			lastSent = snap.UpdatedAt
		}
		if snap.State.Settled() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(snap.State)))
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
