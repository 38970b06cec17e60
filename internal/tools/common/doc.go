// Package common holds the pieces shared by the Gmail and Calendar tool
// packages: tool handler middleware, per-tool instrumentation and argument
// parsing helpers that turn bad input into LLM_ERROR_RESPONSE results.
package common
