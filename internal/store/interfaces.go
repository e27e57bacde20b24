package store

import (
	"context"
	"time"

	"github.com/fieldledger/fieldledger/models"
)

// RecordRepository is the key-addressed CRUD surface over the per-type record
// collections. It is pure storage: no consolidation, no sync policy.
type RecordRepository interface {
	// Put inserts or overwrites the record addressed by its identity. The
	// payload shape is not validated (the store is schema-free).
	Put(ctx context.Context, record models.Record) error
	// Get returns the record for the identity or ErrRecordNotFound.
	Get(ctx context.Context, id models.Identity) (models.Record, error)
	// List returns all records of a type; synced optionally filters by the
	// synced flag. Logically deleted records are included — listing policy
	// belongs to callers.
	List(ctx context.Context, t models.RecordType, synced *bool) ([]models.Record, error)
	// Remove physically deletes the record.
	Remove(ctx context.Context, id models.Identity) error
	// RemoveSynced bulk-wipes the synced subset of one type (reconciliation).
	RemoveSynced(ctx context.Context, t models.RecordType) error
	// Clear wipes a whole collection.
	Clear(ctx context.Context, t models.RecordType) error
	// Count reports the physical occupancy of a collection.
	Count(ctx context.Context, t models.RecordType) (int64, error)
}

// OperationRepository is the durable pending-operation log, ordered by
// enqueue sequence.
type OperationRepository interface {
	Insert(ctx context.Context, op models.Operation) error
	// ListAll returns the whole log in enqueue order.
	ListAll(ctx context.Context) ([]models.Operation, error)
	// ListByIdentity returns the queued operations for one identity in
	// enqueue order (at most one once the log is consolidated).
	ListByIdentity(ctx context.Context, id models.Identity) ([]models.Operation, error)
	Remove(ctx context.Context, operationID string) error
	// RemoveByIdentity deletes every queued operation for the identity and
	// reports how many were removed.
	RemoveByIdentity(ctx context.Context, id models.Identity) (int64, error)
	// SetRetryCount persists the attempt counter of one operation.
	SetRetryCount(ctx context.Context, operationID string, retryCount int) error
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// CacheRepository is the short-TTL response cache.
type CacheRepository interface {
	Put(ctx context.Context, entry models.CachedResponse) error
	// Get returns the entry for key or ErrCacheMiss. Expiry is the caller's
	// decision; Get returns stale entries as stored.
	Get(ctx context.Context, key string) (models.CachedResponse, error)
	// Prune removes entries expired at the given instant.
	Prune(ctx context.Context, now time.Time) error
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// SettingsRepository holds scalar engine state surviving restarts.
type SettingsRepository interface {
	Set(ctx context.Context, key, value string) error
	// Get returns the value for key or ErrSettingNotFound.
	Get(ctx context.Context, key string) (string, error)
	Clear(ctx context.Context) error
}
