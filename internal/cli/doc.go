// Package cli implements the pivotview command-line interface.
//
// Commands:
//   - render: compute a view and write text, JSON, XLSX, DOT or SVG
//   - inspect: hierarchy statistics, diagnostics and distinct values
//   - view: browse a pivot interactively
//   - serve: run the HTTP API
//   - cache: clear the artifact cache, prune saved viewer state
//
// --verbose switches the shared logger to debug level and routes engine
// stage, cache and backend events to it.
package cli
