// Package cmd implements the command-line interface for xtrn-google-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server for one backend (--service gmail|calendar)
//   - check-auth: Refresh the access token once and print the outcome
//   - generate-docs: Generate markdown documentation for the MCP tools
//   - version: Display version information
package cmd
