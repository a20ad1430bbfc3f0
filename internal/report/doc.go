// Package report turns a decode result into its external representations:
// the JSON envelope printed by the CLI and served by the HTTP API, and the
// human-readable statistics summary.
package report
