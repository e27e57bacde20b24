// Package config loads the client configuration from environment variables,
// command-line flags and an optional JSON file, merging the sources with
// first-non-zero-wins precedence and exposing a validated client view with
// defaults applied.
package config
