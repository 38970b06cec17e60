package cmd

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/server"
)

func TestRegisterTools(t *testing.T) {
	tests := []struct {
		service  string
		readOnly bool
		want     []string
	}{
		{
			service:  config.ServiceGmail,
			readOnly: true,
			want:     []string{"get_email", "greet", "list_emails", "list_labels", "search_emails"},
		},
		{
			service: config.ServiceGmail,
			want: []string{
				"batch_delete_emails", "batch_modify_emails", "create_label", "delete_email",
				"delete_label", "download_attachment", "draft_email", "get_email",
				"get_or_create_label", "greet", "list_emails", "list_labels",
				"modify_email", "search_emails", "send_email", "update_label",
			},
		},
		{
			service:  config.ServiceCalendar,
			readOnly: true,
			want:     []string{"get_event", "greet", "list_events"},
		},
		{
			service: config.ServiceCalendar,
			want:    []string{"create_event", "delete_event", "get_event", "greet", "list_events", "update_event"},
		},
	}

	for _, tt := range tests {
		name := tt.service
		if tt.readOnly {
			name += "/read-only"
		}
		t.Run(name, func(t *testing.T) {
			sc, err := server.NewServerContext(context.Background(), &config.Config{}, tt.service,
				server.WithLogger(slog.New(slog.DiscardHandler)))
			require.NoError(t, err)
			t.Cleanup(func() { _ = sc.Shutdown() })

			mcpSrv := newMCPServer(tt.service, sc.Logger(), nil)
			require.NoError(t, registerTools(mcpSrv, sc, tt.readOnly))

			got := make([]string, 0)
			for name := range mcpSrv.ListTools() {
				got = append(got, name)
			}
			sort.Strings(got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunServe_UnsupportedTransport(t *testing.T) {
	err := runServe(serveOptions{Service: config.ServiceGmail, Transport: "sse"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport type: sse")
}

func TestRunServe_MissingCredentials(t *testing.T) {
	t.Setenv("ENV_PATH", "")
	t.Chdir(t.TempDir())
	for _, key := range []string{"GOOGLE_CLIENT_ID", "CLIENT_ID", "GOOGLE_CLIENT_SECRET", "CLIENT_SECRET"} {
		t.Setenv(key, "")
	}

	err := runServe(serveOptions{Service: config.ServiceCalendar, Transport: transportStdio})
	require.Error(t, err)
	assert.Equal(t, "GOOGLE_CLIENT_ID environment variable is required", err.Error())
}

func TestServerName(t *testing.T) {
	assert.Equal(t, "xtrn-google-mcp-gmail", serverName(config.ServiceGmail))
	assert.Equal(t, "xtrn-google-mcp-calendar", serverName(config.ServiceCalendar))
}

func TestToolTimeouts(t *testing.T) {
	def, perTool := toolTimeouts(nil)
	assert.Zero(t, def)
	assert.Nil(t, perTool)

	def, perTool = toolTimeouts(&config.Config{ToolTimeout: time.Minute, BatchToolTimeout: 10 * time.Minute})
	assert.Equal(t, time.Minute, def)
	assert.Equal(t, map[string]time.Duration{
		"batch_modify_emails": 10 * time.Minute,
		"batch_delete_emails": 10 * time.Minute,
	}, perTool)
}
