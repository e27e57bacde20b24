// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// fieldledger client. It aggregates all sub-configurations and is populated
// by merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as the version string.
	App App `envPrefix:"APP_"`

	// Adapter holds the remote mutation service address and timeouts.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Storage holds configuration for the local persistence backend.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds the tunables of the offline mutation queue and the sync
	// manager. All values have working defaults; see ClientSync.
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Adapter holds network settings for the outbound transport layer.
type Adapter struct {
	// HTTPAddress is the base URL of the remote mutation service
	// (e.g. "https://api.fieldledger.example").
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration allowed for a single outbound
	// request before the client cancels it (e.g. "15s").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Storage groups the configuration for the local persistence backend.
type Storage struct {
	// DB holds the local database connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite file path (or ":memory:" for an ephemeral store).
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Sync holds the tunables of the offline queue, drain and retry machinery.
type Sync struct {
	// DebounceWindow is the quiet period the batcher waits for before
	// flushing held create/update intents to the durable log.
	// Env: SYNC_DEBOUNCE_WINDOW
	DebounceWindow time.Duration `env:"DEBOUNCE_WINDOW"`

	// RetryCeiling is the total number of delivery attempts for one queued
	// operation before it is dropped with a terminal error.
	// Env: SYNC_RETRY_CEILING
	RetryCeiling int `env:"RETRY_CEILING"`

	// BackoffBase is the first retry delay; it doubles per attempt.
	// Env: SYNC_BACKOFF_BASE
	BackoffBase time.Duration `env:"BACKOFF_BASE"`

	// BackoffCap bounds the growth of the retry delay.
	// Env: SYNC_BACKOFF_CAP
	BackoffCap time.Duration `env:"BACKOFF_CAP"`

	// BatchSize bounds concurrent outbound calls within one record type.
	// Env: SYNC_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// OnlineInterval is the periodic drain interval while connectivity is up.
	// Env: SYNC_ONLINE_INTERVAL
	OnlineInterval time.Duration `env:"ONLINE_INTERVAL"`

	// OfflineInterval is the (shorter) re-check interval while offline.
	// Env: SYNC_OFFLINE_INTERVAL
	OfflineInterval time.Duration `env:"OFFLINE_INTERVAL"`

	// ProbeInterval is how often the connectivity prober pings the remote
	// health endpoint.
	// Env: SYNC_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// CacheTTL is the lifetime of memoized read responses.
	// Env: SYNC_CACHE_TTL
	CacheTTL time.Duration `env:"CACHE_TTL"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (first non-zero value wins):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
