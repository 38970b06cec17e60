package google

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// invalidGrantCode is the OAuth2 error code Google returns for a revoked or
// malformed refresh token.
const invalidGrantCode = "invalid_grant"

// Refresher exchanges a refresh token for a fresh access token.
// Implementations return *AuthError for classified failures; any other error
// is treated as KindUnknown by the TokenCache.
type Refresher interface {
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context) (*oauth2.Token, error)

// Refresh calls f(ctx).
func (f RefresherFunc) Refresh(ctx context.Context) (*oauth2.Token, error) {
	return f(ctx)
}

// OAuth2Refresher refreshes tokens against Google's OAuth2 token endpoint.
type OAuth2Refresher struct {
	config       *oauth2.Config
	refreshToken string
}

// NewOAuth2Refresher creates a Refresher for the given client credentials and refresh token.
func NewOAuth2Refresher(clientID, clientSecret, refreshToken string, scopes []string) *OAuth2Refresher {
	return &OAuth2Refresher{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  "http://localhost",
			Scopes:       scopes,
		},
		refreshToken: refreshToken,
	}
}

// Refresh performs a refresh_token grant. A fresh token source is built on
// every call so the oauth2 package never serves its own cached token.
func (r *OAuth2Refresher) Refresh(ctx context.Context) (*oauth2.Token, error) {
	if r.refreshToken == "" {
		return nil, &AuthError{Kind: KindUnknown, Err: errors.New("no refresh token configured")}
	}

	ts := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: r.refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, ClassifyRefreshError(err)
	}
	return tok, nil
}

// ClassifyRefreshError maps an error from the oauth2 package to an *AuthError.
func ClassifyRefreshError(err error) *AuthError {
	if err == nil {
		return nil
	}
	if authErr, ok := AsAuthError(err); ok {
		return authErr
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == invalidGrantCode {
		return &AuthError{Kind: KindInvalidGrant, Err: err}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, invalidGrantCode):
		return &AuthError{Kind: KindInvalidGrant, Err: err}
	case strings.Contains(msg, "missing access_token"):
		return &AuthError{Kind: KindMissingTokenFields, Err: err}
	}
	return &AuthError{Kind: KindUnknown, Err: err}
}
