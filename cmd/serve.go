package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
	"github.com/teemow/xtrn-google-mcp/internal/logging"
	"github.com/teemow/xtrn-google-mcp/internal/server"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// serveOptions holds the serve command flags.
type serveOptions struct {
	Service   string
	Transport string
	HTTPAddr  string
	ReadOnly  bool
	Debug     bool

	MetricsEnabled bool
	MetricsAddr    string
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server for one Google backend.

Services:
  - gmail: Gmail tools (default)
  - calendar: Google Calendar tools for the primary calendar

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport at /mcp with health endpoints

Credentials are read from the environment or a .env file (ENV_PATH):
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GMAIL_REFRESH_TOKEN or
  GOOGLE_CALENDAR_REFRESH_TOKEN.

Read-only mode:
  --read-only registers only tools that do not modify data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "false" {
				opts.MetricsEnabled = false
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					opts.MetricsAddr = addr
				}
			}
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Service, "service", config.ServiceGmail, "Backend to serve: gmail or calendar")
	cmd.Flags().StringVar(&opts.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.ReadOnly, "read-only", false, "Register only tools that do not modify data")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (streamable-http only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// newLogger builds the process logger. Logs always go to stderr since stdout
// carries the stdio transport.
func newLogger(cfg *config.Config, debug bool) *slog.Logger {
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	return logging.New(level, cfg.LogFormat, os.Stderr)
}

func runServe(opts serveOptions) error {
	if opts.Transport != transportStdio && opts.Transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.Transport)
	}

	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(opts.Service); err != nil {
		return err
	}

	logger := newLogger(cfg, opts.Debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Backend = opts.Service

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if opts.Transport == transportStreamableHTTP && opts.MetricsEnabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(opts.MetricsAddr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "addr", metricsServer.Addr())
	}

	scOpts := []server.Option{server.WithLogger(logger)}
	if provider.Enabled() {
		scOpts = append(scOpts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
		)
	}
	serverContext, err := server.NewServerContext(shutdownCtx, cfg, opts.Service, scOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := newMCPServer(opts.Service, logger, cfg)
	if err := registerTools(mcpSrv, serverContext, opts.ReadOnly); err != nil {
		return err
	}

	logger.Info("starting MCP server",
		logging.Service(opts.Service),
		"transport", opts.Transport,
		"read_only", opts.ReadOnly,
		"version", version)

	switch opts.Transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts.HTTPAddr)
	}
}

func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, addr string) error {
	httpServer := server.NewHTTPServer(mcpSrv, sc)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		sc.Logger().Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}
