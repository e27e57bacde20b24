package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fieldledger/fieldledger/internal/adapter"
	"github.com/fieldledger/fieldledger/internal/config"
	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/internal/schedule"
	"github.com/fieldledger/fieldledger/internal/store"
	"github.com/fieldledger/fieldledger/models"
)

// syncManager drains the durable pending-operation log against the remote
// service. It owns the connectivity state, the retry timers and the
// completion-listener registry.
//
// Exactly one drain pass runs at a time: the in-flight guard turns concurrent
// triggers (debounce flush, delete write-through, periodic job, manual sync,
// reconnect) into no-ops instead of duplicate sends.
type syncManager struct {
	storages *store.Storages
	remote   adapter.RemoteService
	conn     Connectivity
	cfg      config.ClientSync
	log      *logger.Logger

	inFlight atomic.Bool
	drainReq chan struct{}

	mu           sync.Mutex
	listeners    map[int]func(models.SyncReport)
	nextListener int
	retryTimers  map[models.Identity]*schedule.Handle

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSyncManager(storages *store.Storages, remote adapter.RemoteService, conn Connectivity, cfg config.ClientSync, log *logger.Logger) SyncService {
	s := &syncManager{
		storages:    storages,
		remote:      remote,
		conn:        conn,
		cfg:         cfg,
		log:         log,
		drainReq:    make(chan struct{}, 1),
		listeners:   make(map[int]func(models.SyncReport)),
		retryTimers: make(map[models.Identity]*schedule.Handle),
	}
	return s
}

// Start launches the event loop. A previously running loop is stopped first.
func (s *syncManager) Start(ctx context.Context) {
	s.Stop()

	s.runMu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.runMu.Unlock()

	go func() {
		defer s.wg.Done()
		wasOnline := s.conn.Online()
		for {
			select {
			case <-runCtx.Done():
				return
			case online := <-s.conn.Changes():
				if online && !wasOnline {
					s.log.Info().Msg("connectivity restored, draining queue")
					s.runDrain(runCtx)
				}
				wasOnline = online
			case <-s.drainReq:
				if s.conn.Online() {
					s.runDrain(runCtx)
				}
			}
		}
	}()
}

// Stop cancels the event loop and blocks until it has exited. Pending retry
// timers stay armed; their drain requests are absorbed by the buffered
// channel until the loop restarts.
func (s *syncManager) Stop() {
	s.runMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.runMu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *syncManager) RequestDrain() {
	select {
	case s.drainReq <- struct{}{}:
	default:
	}
}

// Sync performs a synchronous drain pass on the caller's goroutine.
func (s *syncManager) Sync(ctx context.Context) error {
	if !s.conn.Online() {
		return ErrOffline
	}
	return s.drain(ctx)
}

func (s *syncManager) OnComplete(fn func(models.SyncReport)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// CancelRetry disarms the retry timer for the identity, if one is pending.
// Consolidation calls this when it supersedes a queued operation.
func (s *syncManager) CancelRetry(id models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.retryTimers[id]; ok {
		h.Cancel()
		delete(s.retryTimers, id)
	}
}

func (s *syncManager) runDrain(ctx context.Context) {
	if err := s.drain(ctx); err != nil {
		s.log.Error().Err(err).Msg("drain pass failed")
	}
}

// drainPass accumulates the outcome of one drain. The unauthorized flag makes
// the rest of the pass a no-op: there is no point hammering the service with
// requests that will all come back 401, and the queued operations must
// survive until the session is renewed.
type drainPass struct {
	mu           sync.Mutex
	report       models.SyncReport
	unauthorized bool
}

func (p *drainPass) sent() {
	p.mu.Lock()
	p.report.Sent++
	p.mu.Unlock()
}

func (p *drainPass) failed(op models.Operation, err error) {
	p.mu.Lock()
	p.report.Errors = append(p.report.Errors, models.OperationError{
		Identity: op.Identity,
		Kind:     op.Kind,
		Err:      err.Error(),
	})
	p.mu.Unlock()
}

func (p *drainPass) abortUnauthorized(op models.Operation, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unauthorized {
		return
	}
	p.unauthorized = true
	p.report.Errors = append(p.report.Errors, models.OperationError{
		Identity: op.Identity,
		Kind:     op.Kind,
		Err:      err.Error(),
	})
}

func (p *drainPass) aborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unauthorized
}

// drain sends every queued operation: deletes first as their own batch, then
// the remaining operations grouped by record type, each group on its own
// goroutine in chunks of the configured batch size.
func (s *syncManager) drain(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer s.inFlight.Store(false)

	pass := &drainPass{report: models.SyncReport{StartedAt: time.Now()}}

	ops, err := s.storages.Operations.ListAll(ctx)
	if err != nil {
		return err
	}

	var deletes []models.Operation
	groups := make(map[models.RecordType][]models.Operation)
	for _, op := range ops {
		if op.Kind == models.OpDelete {
			deletes = append(deletes, op)
			continue
		}
		groups[op.Type] = append(groups[op.Type], op)
	}

	s.processBatch(ctx, deletes, pass)

	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(group []models.Operation) {
			defer wg.Done()
			s.processBatch(ctx, group, pass)
		}(group)
	}
	wg.Wait()

	pass.report.FinishedAt = time.Now()
	if pending, countErr := s.storages.Operations.Count(ctx); countErr == nil {
		pass.report.Pending = pending
	} else {
		s.log.Error().Err(countErr).Msg("count pending operations")
	}

	s.notify(pass.report)
	return nil
}

// processBatch sends the operations in chunks of cfg.BatchSize, each chunk's
// operations concurrently, chunks sequentially.
func (s *syncManager) processBatch(ctx context.Context, group []models.Operation, pass *drainPass) {
	size := s.cfg.BatchSize
	if size <= 0 {
		size = config.DefaultBatchSize
	}

	for start := 0; start < len(group); start += size {
		end := min(start+size, len(group))

		var wg sync.WaitGroup
		for _, op := range group[start:end] {
			wg.Add(1)
			go func(op models.Operation) {
				defer wg.Done()
				s.processOperation(ctx, op, pass)
			}(op)
		}
		wg.Wait()
	}
}

func (s *syncManager) processOperation(ctx context.Context, op models.Operation, pass *drainPass) {
	if pass.aborted() {
		return
	}

	err := s.send(ctx, op)
	if err == nil {
		pass.sent()
		return
	}

	switch {
	case errors.Is(err, adapter.ErrUnauthorized):
		s.log.Warn().Str("identity", op.Identity.String()).Msg("drain aborted: session expired")
		pass.abortUnauthorized(op, err)

	case errors.Is(err, adapter.ErrClientRejected):
		// Terminal: the service will never accept this payload. Drop it and
		// surface the rejection through the completion report.
		s.log.Warn().Err(err).Str("identity", op.Identity.String()).Msg("operation rejected by remote")
		if removeErr := s.storages.Operations.Remove(ctx, op.OperationID); removeErr != nil {
			s.log.Error().Err(removeErr).Str("operation_id", op.OperationID).Msg("remove rejected operation")
		}
		pass.failed(op, err)

	default:
		s.retryOrDrop(ctx, op, err, pass)
	}
}

// retryOrDrop handles a transient failure: bump the attempt counter and arm a
// backoff timer, or drop the operation once the retry ceiling is reached.
func (s *syncManager) retryOrDrop(ctx context.Context, op models.Operation, cause error, pass *drainPass) {
	attempts := op.RetryCount + 1
	if attempts >= s.cfg.RetryCeiling {
		s.log.Warn().Err(cause).
			Str("identity", op.Identity.String()).
			Int("attempts", attempts).
			Msg("retry ceiling reached, dropping operation")
		if err := s.storages.Operations.Remove(ctx, op.OperationID); err != nil {
			s.log.Error().Err(err).Str("operation_id", op.OperationID).Msg("remove exhausted operation")
		}
		pass.failed(op, cause)
		return
	}

	if err := s.storages.Operations.SetRetryCount(ctx, op.OperationID, attempts); err != nil {
		s.log.Error().Err(err).Str("operation_id", op.OperationID).Msg("persist retry count")
	}
	s.scheduleRetry(op.Identity, attempts)
}

func (s *syncManager) scheduleRetry(id models.Identity, attempts int) {
	delay := s.backoffDelay(attempts)

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.retryTimers[id]; ok {
		h.Cancel()
	}
	s.retryTimers[id] = schedule.After(delay, func() {
		s.mu.Lock()
		delete(s.retryTimers, id)
		s.mu.Unlock()
		s.RequestDrain()
	})
}

// backoffDelay returns the capped exponential delay for the given attempt
// number (1-based).
func (s *syncManager) backoffDelay(attempts int) time.Duration {
	b := retry.WithCappedDuration(s.cfg.BackoffCap, retry.NewExponential(s.cfg.BackoffBase))

	var d time.Duration
	for i := 0; i < attempts; i++ {
		d, _ = b.Next()
	}
	return d
}

// send performs the remote call for one operation and, on success, removes it
// from the log and settles the mirroring local record. Local bookkeeping
// failures after a confirmed remote write are logged but not returned:
// returning them would classify as transient and replay a call the service
// already applied.
func (s *syncManager) send(ctx context.Context, op models.Operation) error {
	switch op.Kind {
	case models.OpDelete:
		return s.sendDelete(ctx, op)
	case models.OpCreate, models.OpUpdate:
		return s.sendWrite(ctx, op)
	default:
		return ErrUnknownOperationKind
	}
}

func (s *syncManager) sendDelete(ctx context.Context, op models.Operation) error {
	if !op.Identity.Temporary() {
		if err := s.remote.Delete(ctx, op.Type, op.ID); err != nil {
			return err
		}
	}
	// A temporary identity never reached the server; deleting it is a purely
	// local settlement.
	s.settle(ctx, op, func() error {
		return s.storages.Records.Remove(ctx, op.Identity)
	})
	return nil
}

func (s *syncManager) sendWrite(ctx context.Context, op models.Operation) error {
	payload := stripLocalFields(op.Payload)

	// An update against a temporary identity targets a record the server has
	// never seen, so it goes out as a create.
	if op.Kind == models.OpUpdate && !op.Identity.Temporary() {
		remoteRec, err := s.remote.Update(ctx, op.Type, op.ID, payload)
		if err != nil {
			return err
		}
		s.settle(ctx, op, func() error {
			return s.storages.Records.Put(ctx, syncedRecord(op.Identity, remoteRec))
		})
		return nil
	}

	remoteRec, err := s.remote.Create(ctx, op.Type, payload)
	if err != nil {
		return err
	}
	s.settle(ctx, op, func() error {
		permanent := models.Identity{Type: op.Type, ID: remoteRec.ID}
		if op.Identity.Temporary() && op.Identity != permanent {
			if removeErr := s.storages.Records.Remove(ctx, op.Identity); removeErr != nil {
				return removeErr
			}
		}
		return s.storages.Records.Put(ctx, syncedRecord(permanent, remoteRec))
	})
	return nil
}

// settle removes the confirmed operation and applies the local record update.
func (s *syncManager) settle(ctx context.Context, op models.Operation, apply func() error) {
	if err := s.storages.Operations.Remove(ctx, op.OperationID); err != nil {
		s.log.Error().Err(err).Str("operation_id", op.OperationID).Msg("remove confirmed operation")
	}
	if err := apply(); err != nil {
		s.log.Error().Err(err).Str("identity", op.Identity.String()).Msg("settle local record")
	}
}

func (s *syncManager) notify(report models.SyncReport) {
	s.mu.Lock()
	fns := make([]func(models.SyncReport), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(report)
	}
}

func syncedRecord(id models.Identity, remote models.RemoteRecord) models.Record {
	rec := models.Record{
		Identity:    id,
		Payload:     remote.Payload,
		LastWriteAt: remote.UpdatedAt,
		Synced:      true,
		SourceOp:    models.OpUpdate,
	}
	if rec.LastWriteAt.IsZero() {
		rec.LastWriteAt = time.Now()
	}
	if len(rec.Payload) == 0 {
		rec.Payload = json.RawMessage("{}")
	}
	return rec
}

// localFieldNames are bookkeeping keys that must never leak onto the wire if
// a caller handed over a payload built from a stored record.
var localFieldNames = []string{"id", "type", "synced", "source_op", "local_op_id", "deleted", "last_write_at"}

func stripLocalFields(payload json.RawMessage) json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return payload
	}

	changed := false
	for _, key := range localFieldNames {
		if _, ok := m[key]; ok {
			delete(m, key)
			changed = true
		}
	}
	if !changed {
		return payload
	}

	clean, err := json.Marshal(m)
	if err != nil {
		return payload
	}
	return clean
}
