package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/api/option"

	"github.com/teemow/xtrn-google-mcp/internal/calendar"
	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/gmail"
	"github.com/teemow/xtrn-google-mcp/internal/google"
	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
)

// ServerContext holds the per-process state shared by all tool handlers: the
// configuration, the access token cache of the served backend and the
// instrumentation recorders.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     *config.Config
	service string
	logger  *slog.Logger

	tokens      *google.TokenCache
	apiOptions  []option.ClientOption
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithLogger sets the logger used by the context and its token cache.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder for tools and token refreshes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the tool audit logger.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = al }
}

// WithTokenCache replaces the token cache built from the config.
func WithTokenCache(tc *google.TokenCache) Option {
	return func(sc *ServerContext) { sc.tokens = tc }
}

// WithAPIOptions appends client options to every Google API client, e.g.
// option.WithEndpoint for a local test server.
func WithAPIOptions(opts ...option.ClientOption) Option {
	return func(sc *ServerContext) { sc.apiOptions = append(sc.apiOptions, opts...) }
}

// NewServerContext creates the context for serving service ("gmail" or
// "calendar"). No token is fetched until the first tool call.
func NewServerContext(ctx context.Context, cfg *config.Config, service string, opts ...Option) (*ServerContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if service != config.ServiceGmail && service != config.ServiceCalendar {
		return nil, fmt.Errorf("unknown service %q", service)
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		cfg:     cfg,
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}

	if sc.tokens == nil {
		refresher := google.NewOAuth2Refresher(cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken(service), google.ScopesForService(service))
		sc.tokens = google.NewTokenCache(service, refresher,
			google.WithExpirySkew(cfg.TokenExpirySkew),
			google.WithLogger(sc.logger),
			google.WithRefreshRecorder(sc.metrics),
			google.WithBaseTransport(otelhttp.NewTransport(google.NewHTTP1Transport())),
		)
	}

	return sc, nil
}

// Context returns the server context, cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Service returns the served backend name.
func (sc *ServerContext) Service() string {
	return sc.service
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// TokenCache returns the access token cache of the served backend.
func (sc *ServerContext) TokenCache() *google.TokenCache {
	return sc.tokens
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// GmailClient returns a Gmail client authorized with a fresh access token.
// Token refresh failures are returned as *google.AuthError.
func (sc *ServerContext) GmailClient(ctx context.Context) (*gmail.Client, error) {
	if err := sc.checkService(config.ServiceGmail); err != nil {
		return nil, err
	}
	httpClient, err := sc.tokens.Client(ctx)
	if err != nil {
		return nil, err
	}
	return gmail.NewClient(ctx, httpClient, sc.apiOptions...)
}

// CalendarClient returns a Calendar client authorized with a fresh access token.
func (sc *ServerContext) CalendarClient(ctx context.Context) (*calendar.Client, error) {
	if err := sc.checkService(config.ServiceCalendar); err != nil {
		return nil, err
	}
	httpClient, err := sc.tokens.Client(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.NewClient(ctx, httpClient, sc.apiOptions...)
}

func (sc *ServerContext) checkService(want string) error {
	if sc.service != want {
		return fmt.Errorf("server is configured for %s, not %s", sc.service, want)
	}
	if sc.IsShutdown() {
		return fmt.Errorf("server is shutting down")
	}
	return nil
}

// IsShutdown returns whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
