package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/fieldledger/fieldledger/internal/logger"
)

type settingsRepository struct {
	*DB
	logger *logger.Logger
}

func NewSettingsRepository(db *DB, logger *logger.Logger) SettingsRepository {
	return &settingsRepository{
		DB:     db,
		logger: logger,
	}
}

func (s *settingsRepository) Set(ctx context.Context, key, value string) error {
	log := logger.FromContext(ctx)

	if _, err := s.DB.ExecContext(ctx, upsertSetting, key, value); err != nil {
		log.Err(err).
			Str("func", "settingsRepository.Set").
			Str("key", key).
			Msg("failed to upsert setting")
		return fmt.Errorf("failed to set setting %s: %w", key, storageError(err))
	}

	return nil
}

func (s *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	log := logger.FromContext(ctx)

	var value string
	if err := s.DB.QueryRowContext(ctx, getSetting, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("setting %s: %w", key, ErrSettingNotFound)
		}
		log.Err(err).
			Str("func", "settingsRepository.Get").
			Str("key", key).
			Msg("failed to scan setting")
		return "", fmt.Errorf("failed to get setting %s: %w", key, storageError(err))
	}

	return value, nil
}

func (s *settingsRepository) Clear(ctx context.Context) error {
	query, _, err := sq.Delete("settings").ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = s.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear settings: %w", storageError(err))
	}

	return nil
}
