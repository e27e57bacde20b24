package config

import (
	"fmt"
	"time"
)

// Reference defaults for the sync tunables. They are configuration, not
// load-bearing constants: the correctness properties hold for any positive
// values, these just balance batching latency against responsiveness.
const (
	DefaultRequestTimeout  = 15 * time.Second
	DefaultDebounceWindow  = 2 * time.Second
	DefaultRetryCeiling    = 3
	DefaultBackoffBase     = 1 * time.Second
	DefaultBackoffCap      = 30 * time.Second
	DefaultBatchSize       = 5
	DefaultOnlineInterval  = 5 * time.Minute
	DefaultOfflineInterval = 30 * time.Second
	DefaultProbeInterval   = 15 * time.Second
	DefaultCacheTTL        = 1 * time.Minute
	DefaultDSN             = "fieldledger.db"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// Version is the application version string.
	Version string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the remote mutation service base URL.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite connection string used by the client.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientSync contains the tunables of the offline queue and sync manager.
type ClientSync struct {
	DebounceWindow  time.Duration
	RetryCeiling    int
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	BatchSize       int
	OnlineInterval  time.Duration
	OfflineInterval time.Duration
	ProbeInterval   time.Duration
	CacheTTL        time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains client transport addresses and timeouts.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Sync contains offline queue and drain settings.
	Sync ClientSync
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, fills defaults for unset tunables, and
// validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			Version: cfg.App.Version,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Sync: ClientSync{
			DebounceWindow:  cfg.Sync.DebounceWindow,
			RetryCeiling:    cfg.Sync.RetryCeiling,
			BackoffBase:     cfg.Sync.BackoffBase,
			BackoffCap:      cfg.Sync.BackoffCap,
			BatchSize:       cfg.Sync.BatchSize,
			OnlineInterval:  cfg.Sync.OnlineInterval,
			OfflineInterval: cfg.Sync.OfflineInterval,
			ProbeInterval:   cfg.Sync.ProbeInterval,
			CacheTTL:        cfg.Sync.CacheTTL,
		},
	}

	clientCfg.fillDefaults()
	return clientCfg, clientCfg.validate()
}

func (c *ClientConfig) fillDefaults() {
	if c.Adapter.RequestTimeout <= 0 {
		c.Adapter.RequestTimeout = DefaultRequestTimeout
	}
	if c.Storage.DB.DSN == "" {
		c.Storage.DB.DSN = DefaultDSN
	}

	s := &c.Sync
	if s.DebounceWindow <= 0 {
		s.DebounceWindow = DefaultDebounceWindow
	}
	if s.RetryCeiling <= 0 {
		s.RetryCeiling = DefaultRetryCeiling
	}
	if s.BackoffBase <= 0 {
		s.BackoffBase = DefaultBackoffBase
	}
	if s.BackoffCap <= 0 {
		s.BackoffCap = DefaultBackoffCap
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.OnlineInterval <= 0 {
		s.OnlineInterval = DefaultOnlineInterval
	}
	if s.OfflineInterval <= 0 {
		s.OfflineInterval = DefaultOfflineInterval
	}
	if s.ProbeInterval <= 0 {
		s.ProbeInterval = DefaultProbeInterval
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = DefaultCacheTTL
	}
}

func (c *ClientConfig) validate() error {
	if c.Adapter.HTTPAddress == "" {
		return ErrNoRemoteAddress
	}
	if c.Sync.BackoffCap < c.Sync.BackoffBase {
		return ErrBackoffCapTooSmall
	}
	return nil
}
