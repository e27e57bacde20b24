package store

import (
	"context"
	"fmt"

	"github.com/fieldledger/fieldledger/internal/config"
	"github.com/fieldledger/fieldledger/internal/logger"
)

// Storages groups all durable-local-store repositories into a single value
// that can be passed around the service layer: the per-type record
// collections, the pending-operation log, the response cache and the scalar
// settings.
type Storages struct {
	// Records is the key-addressed repository over the per-type collections.
	Records RecordRepository
	// Operations is the durable pending-operation log.
	Operations OperationRepository
	// Cache is the short-TTL response cache.
	Cache CacheRepository
	// Settings holds scalar engine state across restarts.
	Settings SettingsRepository
}

// NewStorages initialises the local storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to fresh repositories.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.ClientStorage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Records:    NewRecordRepository(db, logger),
		Operations: NewOperationRepository(db, logger),
		Cache:      NewCacheRepository(db, logger),
		Settings:   NewSettingsRepository(db, logger),
	}, nil
}
