package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigBuilder_FirstNonZeroValueWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{
			Adapter: Adapter{HTTPAddress: "https://from-env.example.com"},
		},
		&StructuredConfig{
			Adapter: Adapter{HTTPAddress: "https://from-flags.example.com", RequestTimeout: 20 * time.Second},
			Storage: Storage{DB: DB{DSN: "flags.db"}},
		},
		&StructuredConfig{
			Storage: Storage{DB: DB{DSN: "json.db"}},
			Sync:    Sync{RetryCeiling: 5},
		},
	)

	cfg, err := b.build()
	require.NoError(t, err)

	// Earlier sources take precedence field by field.
	assert.Equal(t, "https://from-env.example.com", cfg.Adapter.HTTPAddress)
	assert.Equal(t, 20*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, "flags.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 5, cfg.Sync.RetryCeiling)
}

func TestConfigBuilder_PropagatesSourceError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	_, err := b.build()
	require.Error(t, err)
}

func TestConfigBuilder_WithJSONResolvesPathFromEarlierSources(t *testing.T) {
	path := writeTempConfig(t, `{"storage": {"db": {"dsn": "resolved.db"}}}`)

	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: path})

	cfg, err := b.withJSON().build()
	require.NoError(t, err)
	assert.Equal(t, "resolved.db", cfg.Storage.DB.DSN)
}

func TestConfigBuilder_WithJSONMissingFileFails(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: "/nonexistent/cfg.json"})

	_, err := b.withJSON().build()
	require.Error(t, err)
}
