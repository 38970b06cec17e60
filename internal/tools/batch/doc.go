// Package batch runs a per-item operation over many identifiers.
//
// Run partitions the identifiers into chunks. Items inside a chunk run
// concurrently; chunks run one after another, so at most chunkSize upstream
// calls are in flight at any time. A failing item never aborts its siblings:
// every input identifier ends up exactly once in either Report.Successes or
// Report.Failures.
//
// The package also holds the argument helpers shared by the batch tools, such
// as ParseStringOrArray for ID parameters.
package batch
