package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fieldledger/fieldledger/internal/adapter"
	"github.com/fieldledger/fieldledger/internal/config"
	"github.com/fieldledger/fieldledger/internal/ids"
	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/internal/store"
	"github.com/fieldledger/fieldledger/models"
)

// Settings keys for session state surviving restarts.
const (
	settingAuthToken  = "auth_token"
	settingAccountID  = "account_id"
	settingLastSyncAt = "last_sync_at"
)

// Engine is the public facade of the offline mutation engine. It wires the
// operation batcher, the sync manager, the reconciler and the periodic job
// over one local store and one remote service.
//
// Reads are local-first: Records answers from the store immediately and
// refreshes the authoritative snapshot in the background, memoized through
// the response cache. Writes are optimistic: Enqueue returns as soon as the
// local mirror is updated and the intent is queued.
type Engine struct {
	queue  QueueService
	syncer SyncService
	recon  Reconciler
	job    SyncJob

	storages *store.Storages
	remote   adapter.RemoteService
	cfg      config.ClientSync
	log      *logger.Logger

	refreshMu  sync.Mutex
	refreshing map[models.RecordType]bool

	recordSync func()
}

func NewEngine(storages *store.Storages, remote adapter.RemoteService, conn Connectivity, cfg config.ClientSync, log *logger.Logger) *Engine {
	syncer := NewSyncManager(storages, remote, conn, cfg, log)
	queue := NewQueueService(
		storages.Operations,
		storages.Records,
		ids.NewGenerator(),
		cfg.DebounceWindow,
		syncer.RequestDrain,
		syncer.CancelRetry,
		log,
	)

	return &Engine{
		queue:      queue,
		syncer:     syncer,
		recon:      NewReconciler(storages.Records, log),
		job:        NewSyncJob(syncer, conn, cfg.OnlineInterval, cfg.OfflineInterval),
		storages:   storages,
		remote:     remote,
		cfg:        cfg,
		log:        log,
		refreshing: make(map[models.RecordType]bool),
	}
}

// Start restores a persisted session token, then launches the sync event loop
// and the periodic drain job.
func (e *Engine) Start(ctx context.Context) {
	if token, err := e.storages.Settings.Get(ctx, settingAuthToken); err == nil {
		e.remote.SetToken(token)
	} else if !errors.Is(err, store.ErrSettingNotFound) {
		e.log.Error().Err(err).Msg("restore session token")
	}

	if e.recordSync == nil {
		e.recordSync = e.syncer.OnComplete(func(report models.SyncReport) {
			err := e.storages.Settings.Set(context.Background(), settingLastSyncAt, report.FinishedAt.Format(time.RFC3339))
			if err != nil {
				e.log.Error().Err(err).Msg("persist last sync time")
			}
		})
	}

	e.syncer.Start(ctx)
	e.job.Start(ctx)
}

// Stop flushes held intents into the durable log so nothing is lost across
// restarts, then stops the background workers.
func (e *Engine) Stop(ctx context.Context) {
	if err := e.queue.Flush(ctx); err != nil {
		e.log.Error().Err(err).Msg("flush held intents on shutdown")
	}
	e.job.Stop()
	e.syncer.Stop()

	if e.recordSync != nil {
		e.recordSync()
		e.recordSync = nil
	}
}

// Login authenticates against the remote service and persists the session so
// a restarted client keeps draining without re-entering credentials.
func (e *Engine) Login(ctx context.Context, login, password string) (models.Token, error) {
	token, err := e.remote.Login(ctx, login, password)
	if err != nil {
		return models.Token{}, err
	}

	if err = e.storages.Settings.Set(ctx, settingAuthToken, token.SignedString); err != nil {
		return models.Token{}, fmt.Errorf("persist session token: %w", err)
	}
	if err = e.storages.Settings.Set(ctx, settingAccountID, strconv.FormatInt(token.AccountID, 10)); err != nil {
		return models.Token{}, fmt.Errorf("persist account id: %w", err)
	}

	e.syncer.RequestDrain()
	return token, nil
}

// Enqueue records one mutation intent and returns the optimistic local state.
func (e *Engine) Enqueue(ctx context.Context, t models.RecordType, kind models.OpKind, payload json.RawMessage, id string) (models.Record, error) {
	return e.queue.Enqueue(ctx, t, kind, payload, id)
}

// Create queues a creation with a locally minted temporary identifier.
func (e *Engine) Create(ctx context.Context, t models.RecordType, payload json.RawMessage) (models.Record, error) {
	return e.queue.Enqueue(ctx, t, models.OpCreate, payload, "")
}

// Update queues an update of an existing record.
func (e *Engine) Update(ctx context.Context, t models.RecordType, id string, payload json.RawMessage) (models.Record, error) {
	return e.queue.Enqueue(ctx, t, models.OpUpdate, payload, id)
}

// Delete queues a deletion. It takes effect locally at once and is sent
// promptly, without waiting for the batching window.
func (e *Engine) Delete(ctx context.Context, t models.RecordType, id string) (models.Record, error) {
	return e.queue.Enqueue(ctx, t, models.OpDelete, nil, id)
}

// Records lists one collection from the local store, hiding records with a
// pending delete, and kicks off a background authoritative refresh.
func (e *Engine) Records(ctx context.Context, t models.RecordType) ([]models.Record, error) {
	models.MustRecordType(t)

	all, err := e.storages.Records.List(ctx, t, nil)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Record, 0, len(all))
	for _, rec := range all {
		if rec.Deleted {
			continue
		}
		visible = append(visible, rec)
	}

	e.refreshAsync(t)
	return visible, nil
}

// Sync triggers a synchronous drain pass. ErrOffline while disconnected.
func (e *Engine) Sync(ctx context.Context) error {
	if err := e.queue.Flush(ctx); err != nil {
		return err
	}
	return e.syncer.Sync(ctx)
}

// PendingCount reports mutations not yet confirmed by the remote service:
// the durable log plus intents still held in the batching window.
func (e *Engine) PendingCount(ctx context.Context) (int64, error) {
	queued, err := e.storages.Operations.Count(ctx)
	if err != nil {
		return 0, err
	}
	return queued + int64(e.queue.HeldCount()), nil
}

// Counts reports per-collection record counts plus the pending-operation and
// cache-entry totals.
func (e *Engine) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, t := range models.RecordTypes() {
		n, err := e.storages.Records.Count(ctx, t)
		if err != nil {
			return nil, err
		}
		counts[string(t)] = n
	}

	pending, err := e.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	counts["pending_operations"] = pending

	cached, err := e.storages.Cache.Count(ctx)
	if err != nil {
		return nil, err
	}
	counts["cached_responses"] = cached

	return counts, nil
}

// OnSyncComplete registers a completion listener for drain passes and returns
// its unsubscribe function.
func (e *Engine) OnSyncComplete(fn func(models.SyncReport)) func() {
	return e.syncer.OnComplete(fn)
}

// Reset wipes all local state: every record collection, the pending log, the
// response cache, persisted settings and the in-memory batching window.
func (e *Engine) Reset(ctx context.Context) error {
	e.queue.Reset()

	var resetErr error
	for _, t := range models.RecordTypes() {
		if err := e.storages.Records.Clear(ctx, t); err != nil {
			resetErr = errors.Join(resetErr, err)
		}
	}
	if err := e.storages.Operations.Clear(ctx); err != nil {
		resetErr = errors.Join(resetErr, err)
	}
	if err := e.storages.Cache.Clear(ctx); err != nil {
		resetErr = errors.Join(resetErr, err)
	}
	if err := e.storages.Settings.Clear(ctx); err != nil {
		resetErr = errors.Join(resetErr, err)
	}

	e.remote.SetToken("")
	return resetErr
}

// refreshAsync fetches the authoritative snapshot for one type in the
// background and reconciles it into the store. The response cache suppresses
// refetching while a recent snapshot is still fresh; a per-type guard
// suppresses concurrent refreshes of the same collection.
func (e *Engine) refreshAsync(t models.RecordType) {
	e.refreshMu.Lock()
	if e.refreshing[t] {
		e.refreshMu.Unlock()
		return
	}
	e.refreshing[t] = true
	e.refreshMu.Unlock()

	go func() {
		defer func() {
			e.refreshMu.Lock()
			delete(e.refreshing, t)
			e.refreshMu.Unlock()
		}()

		if err := e.refresh(context.Background(), t); err != nil {
			e.log.Debug().Err(err).Str("type", string(t)).Msg("background refresh skipped")
		}
	}()
}

func (e *Engine) refresh(ctx context.Context, t models.RecordType) error {
	key := "list:" + string(t)
	now := time.Now()

	if entry, err := e.storages.Cache.Get(ctx, key); err == nil && !entry.Expired(now) {
		return nil
	} else if err != nil && !errors.Is(err, store.ErrCacheMiss) {
		e.log.Error().Err(err).Str("key", key).Msg("read response cache")
	}

	items, err := e.remote.List(ctx, t)
	if err != nil {
		return err
	}

	body, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cached snapshot: %w", err)
	}
	entry := models.CachedResponse{
		Key:       key,
		Payload:   body,
		FetchedAt: now,
		ExpiresAt: now.Add(e.cfg.CacheTTL),
	}
	if err = e.storages.Cache.Put(ctx, entry); err != nil {
		e.log.Error().Err(err).Str("key", key).Msg("store response cache entry")
	}
	if err = e.storages.Cache.Prune(ctx, now); err != nil {
		e.log.Error().Err(err).Msg("prune response cache")
	}

	return e.recon.Merge(ctx, t, items)
}
