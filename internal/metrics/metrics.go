package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the prometheus registry and every counter the service emits.
// It is constructed once in main and passed by reference; nothing registers
// into a global registry, which keeps tests isolated.
type Metrics struct {
	registry *prometheus.Registry

	ResultCacheHits   prometheus.Counter
	ResultCacheMisses prometheus.Counter
	RenderCacheHits   prometheus.Counter
	RenderCacheMisses prometheus.Counter
	JobsSubmitted     prometheus.Counter
	JobsTerminal      *prometheus.CounterVec
	DuplicateSignals  prometheus.Counter
	CacheWriteErrors  prometheus.Counter
}

// New constructs a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ResultCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_result_cache_hits_total",
			Help: "Result cache lookups answered without a provider call",
		}),
		ResultCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_result_cache_misses_total",
			Help: "Result cache lookups that required a provider call",
		}),
		RenderCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_render_cache_hits_total",
			Help: "Render cache lookups that found a cached composite",
		}),
		RenderCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_render_cache_misses_total",
			Help: "Render cache lookups that missed",
		}),
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_jobs_submitted_total",
			Help: "Jobs submitted to the inference provider",
		}),
		JobsTerminal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_jobs_terminal_total",
			Help: "Jobs by terminal status",
		}, []string{"status"}),
		DuplicateSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_duplicate_terminal_signals_total",
			Help: "Terminal signals dropped because the job was already terminal",
		}),
		CacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_cache_write_errors_total",
			Help: "Non-fatal cache write failures",
		}),
	}
	reg.MustRegister(
		m.ResultCacheHits, m.ResultCacheMisses,
		m.RenderCacheHits, m.RenderCacheMisses,
		m.JobsSubmitted, m.JobsTerminal,
		m.DuplicateSignals, m.CacheWriteErrors,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
