// Package server holds the runtime shared by the MCP tools and the HTTP
// surfaces around them.
//
// ServerContext owns the configuration, the access token cache of the served
// backend and the instrumentation recorders. Tool handlers obtain Google API
// clients from it; each client call first makes sure a fresh access token is
// cached, so refresh failures surface as *google.AuthError.
//
// HTTPServer serves the streamable HTTP transport at /mcp plus /healthz,
// /readyz and /healthz/detailed. MetricsServer serves Prometheus metrics on a
// separate address.
package server
