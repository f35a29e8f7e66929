package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/proxi-ops/proxi-mcp/internal/audit"
	"github.com/proxi-ops/proxi-mcp/internal/config"
	"github.com/proxi-ops/proxi-mcp/internal/httputil"
	"github.com/proxi-ops/proxi-mcp/internal/tools"
)

// HTTPServer wraps gateway HTTP routing state.
type HTTPServer struct {
	cfg      config.Config
	version  string
	commit   string
	build    string
	contract []byte
	registry *ToolRegistry
	gate     PolicyGate
	authn    SessionAuthenticator
	caller   ToolCaller
	infra    *tools.Infrastructure
	logger   zerolog.Logger
	audit    *audit.Logger
}

// NewHTTPServer creates the gateway server with health, tool, and policy routes.
func NewHTTPServer(
	cfg config.Config,
	version, commit, buildDate string,
	contract []byte,
	registry *ToolRegistry,
	gate PolicyGate,
	authn SessionAuthenticator,
	caller ToolCaller,
	infra *tools.Infrastructure,
	logger zerolog.Logger,
) *HTTPServer {
	return &HTTPServer{
		cfg:      cfg,
		version:  version,
		commit:   commit,
		build:    buildDate,
		contract: contract,
		registry: registry,
		gate:     gate,
		authn:    authn,
		caller:   caller,
		infra:    infra,
		logger:   logger,
		audit:    audit.NewLogger(logger),
	}
}

// Router builds the gateway HTTP router.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(httputil.SecureHeaders)
	r.Use(httputil.BodyLimit(1 << 20))

	registerHealthRoutes(r, s.version, s.commit, s.build, s.cfg.MetricsEnabled)

	r.Get("/api/tools.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(s.contract)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tools", s.handleToolCatalog)
		r.Post("/tools/execute", s.handleExecuteTool)

		r.Get("/policy", s.handlePolicyStatus)
		r.Post("/policy/mode", s.handleSetMode)
		r.Post("/policy/reload", s.handleReloadPolicy)

		r.Get("/infrastructure", s.handleInfrastructureStatus)
		r.Post("/infrastructure/simulate-incident", s.handleSimulateIncident)
	})

	return r
}
