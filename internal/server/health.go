package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/proxi-ops/proxi-mcp/internal/httputil"
	"github.com/proxi-ops/proxi-mcp/internal/metrics"
)

func registerHealthRoutes(r chi.Router, version, commit, buildDate string, metricsEnabled bool) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readiness", func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": buildDate,
		})
	})
	if metricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
}
