// Package cli defines the binspect command tree: decode and stats for batch
// use, grammars for discovery, serve for the HTTP API, and version.
package cli
