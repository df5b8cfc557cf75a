package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer wraps http.Server with the service's timeout policy and a
// graceful shutdown hook.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer builds the server from config. Timeouts come from the
// HTTP_*_TIMEOUT_SECONDS settings; the header read timeout is fixed since
// nothing here sends large headers.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{server: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}}
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *HTTPServer) Start() error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
