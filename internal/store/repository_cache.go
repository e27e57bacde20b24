package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/models"
)

type cacheRepository struct {
	*DB
	logger *logger.Logger
}

func NewCacheRepository(db *DB, logger *logger.Logger) CacheRepository {
	return &cacheRepository{
		DB:     db,
		logger: logger,
	}
}

func (c *cacheRepository) Put(ctx context.Context, entry models.CachedResponse) error {
	log := logger.FromContext(ctx)

	_, err := c.DB.ExecContext(ctx, upsertCacheEntry,
		entry.Key,
		string(entry.Payload),
		entry.FetchedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "cacheRepository.Put").
			Str("cache_key", entry.Key).
			Msg("failed to upsert cache entry")
		return fmt.Errorf("failed to put cache entry %s: %w", entry.Key, storageError(err))
	}

	return nil
}

func (c *cacheRepository) Get(ctx context.Context, key string) (models.CachedResponse, error) {
	log := logger.FromContext(ctx)

	var (
		entry   models.CachedResponse
		payload []byte
	)
	err := c.DB.QueryRowContext(ctx, getCacheEntry, key).Scan(
		&entry.Key,
		&payload,
		&entry.FetchedAt,
		&entry.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CachedResponse{}, fmt.Errorf("cache key %s: %w", key, ErrCacheMiss)
		}
		log.Err(err).
			Str("func", "cacheRepository.Get").
			Str("cache_key", key).
			Msg("failed to scan cache entry")
		return models.CachedResponse{}, fmt.Errorf("failed to get cache entry %s: %w", key, storageError(err))
	}
	entry.Payload = payload

	return entry, nil
}

func (c *cacheRepository) Prune(ctx context.Context, now time.Time) error {
	log := logger.FromContext(ctx)

	query, args, err := sq.Delete("response_cache").
		Where(sq.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = c.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "cacheRepository.Prune").
			Msg("failed to prune expired cache entries")
		return fmt.Errorf("failed to prune response cache: %w", storageError(err))
	}

	return nil
}

func (c *cacheRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := sq.Select("COUNT(*)").From("response_cache").ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var count int64
	if err = c.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count response cache: %w", storageError(err))
	}

	return count, nil
}

func (c *cacheRepository) Clear(ctx context.Context) error {
	query, _, err := sq.Delete("response_cache").ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = c.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear response cache: %w", storageError(err))
	}

	return nil
}
