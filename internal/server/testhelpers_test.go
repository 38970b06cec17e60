package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/xtrn-google-mcp/internal/config"
	"github.com/teemow/xtrn-google-mcp/internal/google"
)

func testConfig() *config.Config {
	return &config.Config{
		ClientID:             "client",
		ClientSecret:         "secret",
		GmailRefreshToken:    "gmail-rt",
		CalendarRefreshToken: "cal-rt",
		TokenExpirySkew:      time.Minute,
	}
}

func staticTokenCache(service string) *google.TokenCache {
	return google.NewTokenCache(service, google.RefresherFunc(func(context.Context) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "test-access", Expiry: time.Now().Add(time.Hour)}, nil
	}))
}

func newTestServerContext(t *testing.T, service string, opts ...Option) *ServerContext {
	t.Helper()
	opts = append([]Option{WithTokenCache(staticTokenCache(service))}, opts...)
	sc, err := NewServerContext(context.Background(), testConfig(), service, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}
