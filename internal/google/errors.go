package google

import "errors"

// ErrorKind classifies a failed token refresh.
type ErrorKind int

const (
	// KindUnknown covers every refresh failure that is not classified more precisely.
	KindUnknown ErrorKind = iota
	// KindInvalidGrant means the refresh token is invalid or has been revoked.
	KindInvalidGrant
	// KindMissingTokenFields means the provider answered without an access token or expiry.
	KindMissingTokenFields
)

// String returns the label used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidGrant:
		return "invalid_grant"
	case KindMissingTokenFields:
		return "missing_fields"
	default:
		return "unknown"
	}
}

// AuthError is returned by TokenCache when an access token cannot be obtained.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case KindInvalidGrant:
		return "Refresh token is invalid or revoked"
	case KindMissingTokenFields:
		return "Missing access token or expiry date from Google"
	default:
		if e.Err != nil {
			return "Unknown error during token refresh: " + e.Err.Error()
		}
		return "Unknown error during token refresh"
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AsAuthError reports whether err is or wraps an *AuthError.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
