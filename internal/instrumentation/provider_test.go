package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "test", Enabled: false})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics())
	assert.Nil(t, provider.PrometheusHandler())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Prometheus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test",
		ServiceVersion:  "1.0.0",
		Backend:         ServiceCalendar,
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	assert.True(t, provider.Enabled())
	provider.Metrics().RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)

	handler := provider.PrometheusHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), "oauth_token_refresh_total")
	assert.Contains(t, string(body), `xtrn_backend="calendar"`)
	assert.Contains(t, string(body), "go_goroutines")
}

// Each provider owns its registry, so several can coexist in one process.
func TestNewProvider_PrometheusTwice(t *testing.T) {
	cfg := Config{ServiceName: "test", Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone}

	first, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = first.Shutdown(context.Background()) }()

	second, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = second.Shutdown(context.Background()) }()
}

func TestNewProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unsupported metrics exporter", cfg: Config{Enabled: true, MetricsExporter: "statsd", TracingExporter: ExporterNone}},
		{name: "unsupported tracing exporter", cfg: Config{Enabled: true, MetricsExporter: ExporterStdout, TracingExporter: "zipkin"}},
		{name: "otlp metrics without endpoint", cfg: Config{Enabled: true, MetricsExporter: ExporterOTLP, TracingExporter: ExporterNone}},
		{name: "otlp traces without endpoint", cfg: Config{Enabled: true, MetricsExporter: ExporterStdout, TracingExporter: ExporterOTLP}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}
