// Package handlers provides HTTP request handlers for the concilia API.
package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/concilia"
	"github.com/agentstation/concilia/internal/server/cache"
	"github.com/agentstation/concilia/internal/server/events"
	"github.com/agentstation/concilia/internal/server/sse"
	ws "github.com/agentstation/concilia/internal/server/websocket"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	client         concilia.Client
	previews       *cache.Previews
	broker         *events.Broker
	sseBroadcaster *sse.Broadcaster
	wsHub          *ws.Hub
	maxUpload      int64
	now            func() time.Time
	startTime      time.Time
	logger         *zerolog.Logger
}

// Config carries the handler dependencies.
type Config struct {
	Client         concilia.Client
	Previews       *cache.Previews
	Broker         *events.Broker
	SSEBroadcaster *sse.Broadcaster
	WSHub          *ws.Hub
	MaxUploadBytes int64
	Now            func() time.Time
	Logger         *zerolog.Logger
}

// New creates a new Handlers instance.
func New(cfg Config) *Handlers {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handlers{
		client:         cfg.Client,
		previews:       cfg.Previews,
		broker:         cfg.Broker,
		sseBroadcaster: cfg.SSEBroadcaster,
		wsHub:          cfg.WSHub,
		maxUpload:      cfg.MaxUploadBytes,
		now:            cfg.Now,
		startTime:      cfg.Now(),
		logger:         cfg.Logger,
	}
}
