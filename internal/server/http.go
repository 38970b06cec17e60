package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
)

// HTTPServer exposes an MCP server over the streamable HTTP transport at
// /mcp together with the health endpoints.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	httpServer *http.Server
	listenAddr net.Addr
}

// NewHTTPServer creates the transport for mcpServer. sc may be nil in tests.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext) *HTTPServer {
	s := &HTTPServer{
		mcpServer: mcpServer,
		health:    NewHealthChecker(sc),
		logger:    slog.Default(),
	}
	if sc != nil {
		s.metrics = sc.Metrics()
		s.logger = sc.Logger()
	}
	return s
}

// Health returns the health checker, e.g. to flip readiness during shutdown.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler returns the instrumented mux.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(instrumentation.PathMCP, mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(instrumentation.PathMCP),
	))
	s.health.RegisterHealthEndpoints(mux)
	return s.metricsMiddleware(mux)
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listenAddr = ln.Addr()

	// No WriteTimeout: streamable HTTP responses may stay open for the
	// length of a tool call.
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("streamable HTTP server listening",
		"addr", ln.Addr().String(),
		"endpoint", instrumentation.PathMCP)
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and drains open requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address once started.
func (s *HTTPServer) Addr() string {
	if s.listenAddr == nil {
		return ""
	}
	return s.listenAddr.String()
}

func (s *HTTPServer) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, instrumentation.NormalizeHTTPPath(r.URL.Path), rec.status, time.Since(start))
	})
}

// statusRecorder captures the response status. It forwards Flush so the
// streamable transport can still stream server-sent events.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
