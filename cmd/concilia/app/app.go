// Package app wires configuration, logging and the reconciliation client
// together for the concilia CLI.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/agentstation/concilia"
	"github.com/agentstation/concilia/internal/blob"
	"github.com/agentstation/concilia/internal/extract/gemini"
	"github.com/agentstation/concilia/internal/metrics"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/ledger"
)

// App holds the CLI dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	// Overrides used by tests.
	extractor extract.Extractor
	now       func() time.Time

	// Client is created on first use.
	mu     sync.Mutex
	client concilia.Client
}

// New creates a new App with configuration loaded from the environment
// and the default config file locations.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		now:     time.Now,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Client returns the reconciliation client, opening the configured
// backend on first use.
func (a *App) Client(ctx context.Context) (concilia.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.clientOptions(ctx)
	if err != nil {
		return nil, err
	}
	c, err := concilia.New(opts...)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

func (a *App) clientOptions(ctx context.Context) ([]concilia.Option, error) {
	cfg := a.config
	bcfg := cfg.BlobConfig()
	bcfg.Logger = a.logger

	bucket, err := blob.Open(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	opts := []concilia.Option{
		concilia.WithBlob(bucket),
		concilia.WithKey(cfg.Store.Key),
		concilia.WithExtractTimeout(cfg.Extract.Timeout),
		concilia.WithClock(a.now),
		concilia.WithLogger(a.logger),
		concilia.WithMetrics(a.metrics),
	}

	if cfg.Store.SeedFile != "" {
		seed, err := ledger.LoadSeedFile(cfg.Store.SeedFile)
		if err != nil {
			_ = bucket.Close()
			return nil, err
		}
		opts = append(opts, concilia.WithSeed(seed))
	}

	x, err := a.resolveExtractor()
	if err != nil {
		_ = bucket.Close()
		return nil, err
	}
	if x != nil {
		opts = append(opts, concilia.WithExtractor(x))
	}

	a.logger.Debug().
		Str("backend", bcfg.Backend).
		Str("path", bcfg.Path).
		Bool("extractor", x != nil).
		Msg("client configured")
	return opts, nil
}

// resolveExtractor returns nil without an API key; the import commands
// then fail with a configuration error while the rest keeps working.
func (a *App) resolveExtractor() (extract.Extractor, error) {
	if a.extractor != nil {
		return a.extractor, nil
	}
	if a.config.Extract.APIKey == "" {
		return nil, nil
	}
	x, err := gemini.New(gemini.Config{
		APIKey:  a.config.Extract.APIKey,
		Model:   a.config.Extract.Model,
		Timeout: a.config.Extract.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return x, nil
}

// Shutdown releases the client and its backend.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	if err != nil {
		return errors.WrapIO("close", "store", err)
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewValidationError("config", nil, "must not be nil")
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithExtractor replaces the configured extractor.
func WithExtractor(x extract.Extractor) Option {
	return func(a *App) error {
		a.extractor = x
		return nil
	}
}

// WithClock sets the clock used for toggle dates.
func WithClock(now func() time.Time) Option {
	return func(a *App) error {
		if now != nil {
			a.now = now
		}
		return nil
	}
}
