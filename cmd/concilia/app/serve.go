package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/concilia/internal/server"
	"github.com/agentstation/concilia/pkg/constants"
)

// NewServeCommand starts the HTTP API.
func (a *App) NewServeCommand() *cobra.Command {
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "server",
		Short:   "Serve the REST API with SSE and WebSocket events",
		Long: `Serve starts the concilia REST API.

Endpoints:
  GET  /api/v1/clients                              client list
  GET  /api/v1/grid?year=                           status grid
  GET  /api/v1/cells/{client}/{year}/{month}        one cell
  POST /api/v1/cells/{client}/{year}/{month}/toggle manual toggle
  POST /api/v1/imports                              upload and preview
  GET  /api/v1/imports/{id}                         pending preview
  POST /api/v1/imports/{id}/commit                  apply a preview
  GET  /api/v1/events                               Server-Sent Events
  GET  /api/v1/events/ws                            WebSocket events
  GET  /metrics                                     Prometheus metrics`,
		Example: `  concilia serve
  concilia serve --port 3000 --auth --cors-origins https://app.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := defaults
			cfg.Host = a.config.Server.Host
			cfg.Port = a.config.Server.Port
			cfg.CORSOrigins = a.config.Server.CORSOrigins
			cfg.CORSEnabled = len(cfg.CORSOrigins) > 0
			cfg.APIKey = a.config.Server.APIKey
			if err := applyServeFlags(cmd, &cfg); err != nil {
				return err
			}
			return a.runServer(cmd.Context(), cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.IntP("port", "p", 0, "server port (default from server.port, 8080)")
	f.String("host", "", "bind address (default from server.host, localhost)")
	f.Bool("cors", false, "enable CORS for all origins")
	f.StringSlice("cors-origins", nil, "allowed CORS origins (comma-separated)")
	f.Bool("auth", false, "require server.api_key on mutating requests")
	f.String("auth-header", defaults.AuthHeader, "authentication header name")
	f.Int("rate-limit", defaults.ImportRateLimit, "import uploads per minute per IP (0 to disable)")
	f.Duration("preview-ttl", defaults.PreviewTTL, "how long an import preview can be committed")
	f.Int64("max-upload", defaults.MaxUploadBytes, "maximum size of each uploaded document in bytes")
	f.Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	f.Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout")
	f.Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")
	f.Bool("metrics", defaults.MetricsEnabled, "serve Prometheus metrics on /metrics")
	f.String("prefix", defaults.PathPrefix, "API path prefix")
	return cmd
}

func applyServeFlags(cmd *cobra.Command, cfg *server.Config) error {
	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Port, _ = f.GetInt("port")
	}
	if f.Changed("host") {
		cfg.Host, _ = f.GetString("host")
	}
	if f.Changed("cors-origins") {
		cfg.CORSOrigins, _ = f.GetStringSlice("cors-origins")
		cfg.CORSEnabled = true
	}
	if all, _ := f.GetBool("cors"); all {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = nil
	}
	cfg.AuthEnabled, _ = f.GetBool("auth")
	cfg.AuthHeader, _ = f.GetString("auth-header")
	cfg.ImportRateLimit, _ = f.GetInt("rate-limit")
	cfg.PreviewTTL, _ = f.GetDuration("preview-ttl")
	cfg.MaxUploadBytes, _ = f.GetInt64("max-upload")
	cfg.ReadTimeout, _ = f.GetDuration("read-timeout")
	cfg.WriteTimeout, _ = f.GetDuration("write-timeout")
	cfg.IdleTimeout, _ = f.GetDuration("idle-timeout")
	cfg.MetricsEnabled, _ = f.GetBool("metrics")
	cfg.PathPrefix, _ = f.GetString("prefix")

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port out of range: %d", cfg.Port)
	}
	return nil
}

func (a *App) runServer(ctx context.Context, cmd *cobra.Command, cfg server.Config) error {
	c, err := a.Client(ctx)
	if err != nil {
		return err
	}

	srv, err := server.New(c, cfg,
		server.WithLogger(a.logger),
		server.WithMetrics(a.metrics, a.registry),
		server.WithClock(a.now),
	)
	if err != nil {
		return err
	}
	srv.Start()

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	a.logger.Info().
		Str("addr", httpServer.Addr).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.ImportRateLimit).
		Msg("starting API server")

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s%s (Ctrl+C to stop)\n", httpServer.Addr, cfg.PathPrefix)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	// Streams stop first so open SSE connections do not hold Shutdown.
	_ = srv.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info().Dur("uptime", time.Since(srv.StartTime())).Msg("API server stopped")
	return nil
}
