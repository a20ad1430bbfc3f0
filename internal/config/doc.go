// Package config provides configuration loading and validation for the
// binspect tool. It handles YAML-based configuration covering decoder
// limits, the optional HTTP API server, and logging.
package config
