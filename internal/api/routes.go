package api

import (
	"joblauncher/internal/health"
	"joblauncher/internal/observability"
	"net/http"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	Jobs           JobReader
	Metrics        *observability.Metrics
	MetricsHandler http.Handler // served at /metrics when set
	HealthChecker  *health.Checker
	APIKey         string
}

// NewRouter creates the admin HTTP router. Probes and /metrics are open;
// job status needs the API key when one is configured.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg.Jobs, cfg.HealthChecker)
	auth := RequireBearer(cfg.APIKey)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}
	mux.Handle("GET /v1/jobs", auth(http.HandlerFunc(handler.ListJobs)))
	mux.Handle("GET /v1/jobs/{jobId}", auth(http.HandlerFunc(handler.GetJob)))

	return chain(mux, Recover(), Observe(cfg.Metrics))
}
