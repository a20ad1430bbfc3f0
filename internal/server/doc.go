// Package server implements the optional HTTP API: a decode endpoint per
// registered grammar plus health, statistics and Prometheus metrics
// endpoints. The decoder stays a pure transform; this package is the
// external caller wrapping it per request.
package server
