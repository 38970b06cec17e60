// Package google provides OAuth2 token management for the Google APIs used by
// the MCP servers.
//
// A TokenCache owns the credential state of one backend service (Gmail or
// Calendar). It memoizes the access token obtained from a long-lived refresh
// token, tracks its expiry and refreshes lazily when a tool asks for a client.
// Concurrent callers share a single in-flight refresh.
//
// Refresh failures are always reported as *AuthError values carrying an
// explicit ErrorKind, so callers never need to inspect the error shape of the
// underlying OAuth client library.
package google
