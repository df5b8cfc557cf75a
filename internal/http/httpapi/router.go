package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	if app.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	}

	r.Route("/v1/enhancements", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/", app.EnhancementStart)
		r.Get("/{id}", app.EnhancementStatus)
		r.Get("/{id}/stream", app.EnhancementStream)
		r.Post("/{id}/cancel", app.EnhancementCancel)
		r.Post("/{id}/retry", app.EnhancementRetry)
		r.Post("/{id}/apply", app.EnhancementApply)
	})

	r.Post("/v1/callbacks/inference", app.InferenceCallback)

	r.Route("/v1/drafts/{draft_id}/renders", func(r chi.Router) {
		r.Post("/", app.RenderSave)
		r.Get("/", app.RenderList)
		r.Delete("/", app.RenderInvalidate)
		r.Get("/archive", app.RenderArchive)
		r.Get("/{theme_id}", app.RenderGet)
	})

	// Normalized uploads and cached composites under the public base URL.
	if cfg.StoragePath != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StoragePath))))
	}

	return r
}
