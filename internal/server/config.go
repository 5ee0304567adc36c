package server

import (
	"time"

	"github.com/agentstation/concilia/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// API settings
	PathPrefix string

	// CORS settings
	CORSEnabled bool
	CORSOrigins []string

	// Authentication settings; applies to mutating endpoints only.
	AuthEnabled bool
	AuthHeader  string
	APIKey      string

	// Import settings
	ImportRateLimit int // import requests per minute per IP (0 to disable)
	MaxUploadBytes  int64
	PreviewTTL      time.Duration

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Features
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8080,
		PathPrefix:      "/api/v1",
		CORSEnabled:     false,
		CORSOrigins:     []string{},
		AuthEnabled:     false,
		AuthHeader:      "X-API-Key",
		ImportRateLimit: 10,
		MaxUploadBytes:  constants.MaxUploadBytes,
		PreviewTTL:      constants.PreviewTTL,
		ReadTimeout:     constants.ReadTimeout,
		WriteTimeout:    constants.WriteTimeout,
		IdleTimeout:     constants.IdleTimeout,
		MetricsEnabled:  true,
	}
}
