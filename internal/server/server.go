// Package server provides the HTTP server for the concilia API.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/concilia"
	"github.com/agentstation/concilia/internal/metrics"
	"github.com/agentstation/concilia/internal/server/cache"
	"github.com/agentstation/concilia/internal/server/events"
	"github.com/agentstation/concilia/internal/server/events/adapters"
	"github.com/agentstation/concilia/internal/server/middleware"
	"github.com/agentstation/concilia/internal/server/sse"
	ws "github.com/agentstation/concilia/internal/server/websocket"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/logging"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	client         concilia.Client
	previews       *cache.Previews
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	rateLimiter    *middleware.RateLimiter
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	logger         *zerolog.Logger
	config         Config
	now            func() time.Time
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records HTTP traffic in m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithClock sets the clock used for uptime and the default grid year.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new server instance with the given configuration.
func New(client concilia.Client, cfg Config, opts ...Option) (*Server, error) {
	if client == nil {
		return nil, errors.NewConfigError("server", "client is required", nil)
	}
	if cfg.AuthEnabled && cfg.APIKey == "" {
		return nil, errors.NewConfigError("server", "auth enabled without an API key", errors.ErrAPIKeyRequired)
	}
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = DefaultConfig().PreviewTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		client:   client,
		previews: cache.NewPreviews(cfg.PreviewTTL),
		logger:   logging.Default(),
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startTime = s.now()

	s.broker = events.NewBroker(s.logger)
	s.wsHub = ws.NewHub(s.logger, s.checkOrigin)
	s.sseBroadcaster = sse.NewBroadcaster(s.logger)
	s.broker.Subscribe(adapters.NewWebSocketSubscriber(s.wsHub))
	s.broker.Subscribe(adapters.NewSSESubscriber(s.sseBroadcaster))

	if cfg.ImportRateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.ImportRateLimit, s.logger)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.connectHooks()

	s.logger.Debug().
		Str("prefix", cfg.PathPrefix).
		Bool("auth", cfg.AuthEnabled).
		Dur("preview_ttl", cfg.PreviewTTL).
		Msg("server created")
	return s, nil
}

// connectHooks publishes persisted ledger changes to the broker.
func (s *Server) connectHooks() {
	s.client.OnPaymentAdded(func(p ledger.Payment) {
		s.broker.Publish(events.PaymentAdded, map[string]any{"payment": p})
	})
	s.client.OnPaymentUpdated(func(old, updated ledger.Payment) {
		s.broker.Publish(events.PaymentUpdated, map[string]any{
			"old_payment": old,
			"new_payment": updated,
		})
	})
	s.client.OnPaymentRemoved(func(p ledger.Payment) {
		s.broker.Publish(events.PaymentRemoved, map[string]any{"payment": p})
	})
	s.client.OnClientAdded(func(c ledger.Client) {
		s.broker.Publish(events.ClientAdded, map[string]any{"client": c})
	})
}

// checkOrigin applies the CORS origin list to WebSocket upgrades.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || !s.config.CORSEnabled || len(s.config.CORSOrigins) == 0 {
		return true
	}
	return slices.Contains(s.config.CORSOrigins, origin)
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	go s.broker.Run(s.ctx)
	go s.wsHub.Run(s.ctx)
	go s.sseBroadcaster.Run(s.ctx)
	if s.rateLimiter != nil {
		go s.rateLimiter.Run(s.ctx)
	}
	s.logger.Debug().Msg("background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops the background services. Pending previews are dropped.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Int("pending_previews", s.previews.Count()).Msg("shutting down background services")
	s.cancel()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Previews returns the pending import previews.
func (s *Server) Previews() *cache.Previews {
	return s.previews
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
