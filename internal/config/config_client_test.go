package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfig_FillDefaults(t *testing.T) {
	cfg := &ClientConfig{
		Adapter: ClientAdapter{HTTPAddress: "https://api.example.com"},
	}

	cfg.fillDefaults()
	require.NoError(t, cfg.validate())

	assert.Equal(t, DefaultRequestTimeout, cfg.Adapter.RequestTimeout)
	assert.Equal(t, DefaultDSN, cfg.Storage.DB.DSN)
	assert.Equal(t, DefaultDebounceWindow, cfg.Sync.DebounceWindow)
	assert.Equal(t, DefaultRetryCeiling, cfg.Sync.RetryCeiling)
	assert.Equal(t, DefaultBackoffBase, cfg.Sync.BackoffBase)
	assert.Equal(t, DefaultBackoffCap, cfg.Sync.BackoffCap)
	assert.Equal(t, DefaultBatchSize, cfg.Sync.BatchSize)
	assert.Equal(t, DefaultOnlineInterval, cfg.Sync.OnlineInterval)
	assert.Equal(t, DefaultOfflineInterval, cfg.Sync.OfflineInterval)
	assert.Equal(t, DefaultProbeInterval, cfg.Sync.ProbeInterval)
	assert.Equal(t, DefaultCacheTTL, cfg.Sync.CacheTTL)
}

func TestClientConfig_FillDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &ClientConfig{
		Adapter: ClientAdapter{HTTPAddress: "https://api.example.com"},
		Sync: ClientSync{
			DebounceWindow: 5 * time.Second,
			RetryCeiling:   7,
		},
	}

	cfg.fillDefaults()

	assert.Equal(t, 5*time.Second, cfg.Sync.DebounceWindow)
	assert.Equal(t, 7, cfg.Sync.RetryCeiling)
}

func TestClientConfig_Validate_MissingAddress(t *testing.T) {
	cfg := &ClientConfig{}
	cfg.fillDefaults()

	require.ErrorIs(t, cfg.validate(), ErrNoRemoteAddress)
}

func TestClientConfig_Validate_BackoffCapBelowBase(t *testing.T) {
	cfg := &ClientConfig{
		Adapter: ClientAdapter{HTTPAddress: "https://api.example.com"},
		Sync: ClientSync{
			BackoffBase: 30 * time.Second,
			BackoffCap:  time.Second,
		},
	}
	cfg.fillDefaults()

	require.ErrorIs(t, cfg.validate(), ErrBackoffCapTooSmall)
}
