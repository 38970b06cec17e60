package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/xtrn-google-mcp/internal/instrumentation"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves liveness and readiness probes for the streamable HTTP
// transport.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker returns a checker that starts out ready.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse adds the served backend and access token state.
type DetailedHealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Service string `json:"service,omitempty"`
	// TokenCached is false until the first tool call refreshes a token.
	TokenCached    bool       `json:"tokenCached"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}

// LivenessHandler serves /healthz. It only reports that the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// state returns the overall status and its HTTP code from the ready flag and
// the shutdown state.
func (h *HealthChecker) state() (string, int) {
	switch {
	case !h.ready.Load():
		return healthStatusNotReady, http.StatusServiceUnavailable
	case h.isServerShuttingDown():
		return healthStatusShuttingDown, http.StatusServiceUnavailable
	default:
		return healthStatusOK, http.StatusOK
	}
}

// ReadinessHandler serves /readyz: ready flag, shutdown state and whether
// the credentials for the served backend are configured.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks := map[string]string{
			"ready":    healthStatusOK,
			"shutdown": healthStatusOK,
		}
		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
		}
		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
		}

		_, code := h.state()
		if sc := h.serverContext; sc != nil {
			checks["config"] = healthStatusOK
			if err := sc.Config().Validate(sc.Service()); err != nil {
				checks["config"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}

		status := healthStatusOK
		if code != http.StatusOK {
			status = healthStatusNotReady
		}
		writeHealth(w, code, HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed with uptime and token state.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, code := h.state()
		response := DetailedHealthResponse{
			Status: status,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}
		if sc := h.serverContext; sc != nil {
			response.Service = sc.Service()
			if tc := sc.TokenCache(); tc != nil && tc.Valid() {
				exp := tc.ExpiresAt()
				response.TokenCached = true
				response.TokenExpiresAt = &exp
			}
		}
		writeHealth(w, code, response)
	})
}

// RegisterHealthEndpoints adds the three health routes to mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET "+instrumentation.PathHealthz, h.LivenessHandler())
	mux.Handle("GET "+instrumentation.PathReadyz, h.ReadinessHandler())
	mux.Handle("GET "+instrumentation.PathHealthzDetailed, h.DetailedHealthHandler())
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
