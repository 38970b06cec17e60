package google

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/xtrn-google-mcp/internal/logging"
)

const (
	// DefaultExpirySkew is how long before its expiry a token counts as stale.
	DefaultExpirySkew = 60 * time.Second

	// DefaultRefreshTimeout bounds a single refresh round-trip.
	DefaultRefreshTimeout = 30 * time.Second

	refreshKey = "refresh"
)

// RefreshRecorder receives the outcome of every refresh attempt.
// *instrumentation.Metrics satisfies this interface.
type RefreshRecorder interface {
	RecordOAuthTokenRefresh(ctx context.Context, result string)
}

// TokenCache memoizes the access token for one backend service.
//
// The cache starts empty. The first call to Client or Token performs a
// refresh; later calls reuse the token until it is within the expiry skew of
// its expiry. A failed refresh leaves the cached state unchanged.
type TokenCache struct {
	service   string
	refresher Refresher

	skew           time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
	recorder       RefreshRecorder
	base           http.RoundTripper

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time

	group singleflight.Group
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithExpirySkew sets how long before expiry a token is considered stale.
func WithExpirySkew(d time.Duration) TokenCacheOption {
	return func(c *TokenCache) {
		if d >= 0 {
			c.skew = d
		}
	}
}

// WithRefreshTimeout bounds each refresh call.
func WithRefreshTimeout(d time.Duration) TokenCacheOption {
	return func(c *TokenCache) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for refresh events.
func WithLogger(logger *slog.Logger) TokenCacheOption {
	return func(c *TokenCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRefreshRecorder reports refresh outcomes to r.
func WithRefreshRecorder(r RefreshRecorder) TokenCacheOption {
	return func(c *TokenCache) {
		c.recorder = r
	}
}

// WithBaseTransport sets the transport wrapped by the authorized client.
func WithBaseTransport(rt http.RoundTripper) TokenCacheOption {
	return func(c *TokenCache) {
		if rt != nil {
			c.base = rt
		}
	}
}

// NewTokenCache creates an empty cache for service backed by refresher.
func NewTokenCache(service string, refresher Refresher, opts ...TokenCacheOption) *TokenCache {
	c := &TokenCache{
		service:        service,
		refresher:      refresher,
		skew:           DefaultExpirySkew,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
		logger:         slog.Default(),
		base:           NewHTTP1Transport(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, service)
	return c
}

// NewHTTP1Transport returns a clone of http.DefaultTransport pinned to
// HTTP/1.1. Some Google endpoints reset HTTP/2 streams on long-lived idle
// connections.
func NewHTTP1Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return t
}

// Service returns the backend service this cache belongs to.
func (c *TokenCache) Service() string {
	return c.service
}

// Valid reports whether a cached token exists and is outside the expiry skew.
func (c *TokenCache) Valid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.staleLocked()
}

// ExpiresAt returns the expiry of the cached token, or the zero time when the
// cache is empty.
func (c *TokenCache) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

func (c *TokenCache) staleLocked() bool {
	if c.accessToken == "" {
		return true
	}
	return !c.now().Add(c.skew).Before(c.expiresAt)
}

// Token implements oauth2.TokenSource. It refreshes when needed.
func (c *TokenCache) Token() (*oauth2.Token, error) {
	return c.token(context.Background())
}

// Client returns an HTTP client whose requests carry the cached access token.
// A refresh happens first when the cache is empty or stale and its error is
// returned as is.
func (c *TokenCache) Client(ctx context.Context) (*http.Client, error) {
	if _, err := c.token(ctx); err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: contextTokenSource{ctx: ctx, cache: c},
			Base:   c.base,
		},
	}, nil
}

// Refresh forces a refresh regardless of the cached state.
func (c *TokenCache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

func (c *TokenCache) token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.RLock()
	if !c.staleLocked() {
		tok := &oauth2.Token{AccessToken: c.accessToken, TokenType: "Bearer", Expiry: c.expiresAt}
		c.mu.RUnlock()
		return tok, nil
	}
	c.mu.RUnlock()

	return c.refresh(ctx)
}

// refresh performs at most one concurrent refresh per cache. Callers that
// arrive while a refresh is in flight wait for its result. A caller whose ctx
// ends stops waiting, but the shared refresh keeps running for the others.
func (c *TokenCache) refresh(ctx context.Context) (*oauth2.Token, error) {
	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return c.doRefresh(rctx)
	})

	select {
	case <-ctx.Done():
		return nil, &AuthError{Kind: KindUnknown, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

func (c *TokenCache) doRefresh(ctx context.Context) (*oauth2.Token, error) {
	start := c.now()
	if c.refresher == nil {
		return nil, c.fail(ctx, &AuthError{Kind: KindUnknown, Err: errors.New("no refresher configured")}, start)
	}

	tok, err := c.refresher.Refresh(ctx)
	if err != nil {
		return nil, c.fail(ctx, ClassifyRefreshError(err), start)
	}
	if tok == nil || tok.AccessToken == "" || tok.Expiry.IsZero() {
		return nil, c.fail(ctx, &AuthError{Kind: KindMissingTokenFields}, start)
	}

	c.mu.Lock()
	c.accessToken = tok.AccessToken
	c.expiresAt = tok.Expiry
	c.mu.Unlock()

	c.record(ctx, "success")
	c.logger.Info("access token refreshed",
		logging.Operation("token_refresh"),
		logging.Status(logging.StatusSuccess),
		slog.String("token", logging.SanitizeToken(tok.AccessToken)),
		slog.Time("expires_at", tok.Expiry),
		slog.Duration(logging.KeyDuration, c.now().Sub(start)),
	)

	return &oauth2.Token{AccessToken: tok.AccessToken, TokenType: "Bearer", Expiry: tok.Expiry}, nil
}

func (c *TokenCache) fail(ctx context.Context, authErr *AuthError, start time.Time) error {
	c.record(ctx, authErr.Kind.String())
	c.logger.Warn("access token refresh failed",
		logging.Operation("token_refresh"),
		logging.Status(logging.StatusError),
		slog.String("kind", authErr.Kind.String()),
		logging.Err(authErr),
		slog.Duration(logging.KeyDuration, c.now().Sub(start)),
	)
	return authErr
}

func (c *TokenCache) record(ctx context.Context, result string) {
	if c.recorder != nil {
		c.recorder.RecordOAuthTokenRefresh(ctx, result)
	}
}

// contextTokenSource lets oauth2.Transport refresh with the ctx the client
// was created for.
type contextTokenSource struct {
	ctx   context.Context
	cache *TokenCache
}

func (s contextTokenSource) Token() (*oauth2.Token, error) {
	return s.cache.token(s.ctx)
}
