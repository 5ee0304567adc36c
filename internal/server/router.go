package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/concilia/internal/server/handlers"
	"github.com/agentstation/concilia/internal/server/middleware"
	"github.com/agentstation/concilia/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(handlers.Config{
		Client:         s.client,
		Previews:       s.previews,
		Broker:         s.broker,
		SSEBroadcaster: s.sseBroadcaster,
		WSHub:          s.wsHub,
		MaxUploadBytes: s.config.MaxUploadBytes,
		Now:            s.now,
		Logger:         s.logger,
	})

	s.registerRoutes(mux, h)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Health
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Ledger
	mux.HandleFunc("GET "+prefix+"/clients", h.HandleListClients)
	mux.HandleFunc("GET "+prefix+"/grid", h.HandleGrid)
	mux.HandleFunc("GET "+prefix+"/cells/{client}/{year}/{month}", h.HandleGetCell)
	mux.HandleFunc("POST "+prefix+"/cells/{client}/{year}/{month}/toggle", h.HandleToggle)

	// Imports
	var create http.Handler = http.HandlerFunc(h.HandleCreateImport)
	if s.rateLimiter != nil {
		create = middleware.RateLimit(s.rateLimiter)(create)
	}
	mux.Handle("POST "+prefix+"/imports", create)
	mux.HandleFunc("GET "+prefix+"/imports/{id}", h.HandleGetImport)
	mux.HandleFunc("POST "+prefix+"/imports/{id}/commit", h.HandleCommitImport)

	// Real-time
	mux.HandleFunc("GET "+prefix+"/events", h.HandleSSE)
	mux.HandleFunc("GET "+prefix+"/events/ws", h.HandleWebSocket)

	if s.config.MetricsEnabled && s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found", r.Method+" "+r.URL.Path)
	})
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	// Innermost: reads the route pattern set by the mux.
	if s.metrics != nil {
		handler = middleware.Metrics(s.metrics)(handler)
	}

	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig()
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		if cfg.AuthHeader != "" {
			authConfig.HeaderName = cfg.AuthHeader
		}
		handler = middleware.Auth(authConfig, s.logger)(handler)
	}

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
		} else {
			corsConfig.AllowAll = true
		}
		handler = middleware.CORS(corsConfig)(handler)
	}

	handler = middleware.Logger(s.logger)(handler)
	return middleware.Recovery(s.logger)(handler)
}
