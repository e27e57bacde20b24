package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fieldledger/fieldledger/internal/ids"
	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/internal/schedule"
	"github.com/fieldledger/fieldledger/internal/store"
	"github.com/fieldledger/fieldledger/models"
)

// queueService holds incoming mutation intents in memory for one debounce
// window, consolidating bursts against the same identity into a single
// operation before it reaches the durable log. Deletes skip the window and are
// written through immediately.
//
// All queue state transitions run under one mutex: held map, debounce timer
// and the durable-log handoff. That keeps the per-identity "at most one queued
// operation" invariant trivially true without per-identity locking.
type queueService struct {
	ops     store.OperationRepository
	records store.RecordRepository
	gen     *ids.Generator
	log     *logger.Logger
	window  time.Duration

	requestDrain func()
	onSupersede  func(models.Identity)

	mu       sync.Mutex
	held     map[models.Identity]models.Operation
	debounce *schedule.Handle
}

// NewQueueService builds the operation batcher. requestDrain is invoked after
// every flush and after every write-through delete; onSupersede is invoked
// when consolidation replaces an operation already in the durable log, so the
// sync manager can cancel a stale retry timer.
func NewQueueService(
	ops store.OperationRepository,
	records store.RecordRepository,
	gen *ids.Generator,
	window time.Duration,
	requestDrain func(),
	onSupersede func(models.Identity),
	log *logger.Logger,
) QueueService {
	return &queueService{
		ops:          ops,
		records:      records,
		gen:          gen,
		log:          log,
		window:       window,
		requestDrain: requestDrain,
		onSupersede:  onSupersede,
		held:         make(map[models.Identity]models.Operation),
	}
}

func (q *queueService) Enqueue(ctx context.Context, t models.RecordType, kind models.OpKind, payload json.RawMessage, id string) (models.Record, error) {
	models.MustRecordType(t)
	if !kind.Valid() {
		return models.Record{}, ErrUnknownOperationKind
	}
	if id == "" {
		if kind != models.OpCreate {
			return models.Record{}, ErrMissingIdentity
		}
		id = q.gen.TempRecordID()
	}

	identity := models.Identity{Type: t, ID: id}
	now := time.Now()
	opID := q.gen.OperationID()

	q.mu.Lock()
	defer q.mu.Unlock()

	existing, durable, err := q.queuedOperation(ctx, identity)
	if err != nil {
		return models.Record{}, err
	}

	op, err := consolidate(existing, identity, kind, payload, opID, now)
	if err != nil {
		return models.Record{}, err
	}

	if durable {
		// Pull the superseded operation out of the log so a concurrent drain
		// or retry timer cannot send the stale payload.
		if _, err = q.ops.RemoveByIdentity(ctx, identity); err != nil {
			return models.Record{}, err
		}
		q.onSupersede(identity)
	}

	record, err := q.writeOptimisticRecord(ctx, op, kind, now)
	if err != nil {
		return models.Record{}, err
	}

	if op.Kind == models.OpDelete {
		delete(q.held, identity)
		if err = q.ops.Insert(ctx, op); err != nil {
			return models.Record{}, err
		}
		q.requestDrain()
		return record, nil
	}

	q.held[identity] = op
	q.armDebounce()
	return record, nil
}

// Flush moves every held intent into the durable log and requests a drain.
// An intent whose insert fails stays held for the next flush.
func (q *queueService) Flush(ctx context.Context) error {
	q.mu.Lock()
	batch := q.held
	q.held = make(map[models.Identity]models.Operation)
	if q.debounce != nil {
		q.debounce.Cancel()
		q.debounce = nil
	}

	var flushErr error
	for identity, op := range batch {
		if err := q.ops.Insert(ctx, op); err != nil {
			q.log.Error().Err(err).Str("identity", identity.String()).Msg("flush: insert queued operation")
			flushErr = errors.Join(flushErr, err)
			if _, reheld := q.held[identity]; !reheld {
				q.held[identity] = op
			}
		}
	}
	if len(q.held) > 0 {
		q.armDebounce()
	}
	flushed := len(batch) > 0
	q.mu.Unlock()

	if flushed {
		q.requestDrain()
	}
	return flushErr
}

func (q *queueService) HeldCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.held)
}

// Reset discards held intents and disarms the debounce timer. Used when the
// whole local state is wiped.
func (q *queueService) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.held = make(map[models.Identity]models.Operation)
	if q.debounce != nil {
		q.debounce.Cancel()
		q.debounce = nil
	}
}

// queuedOperation returns the operation currently queued for the identity:
// the held one if present, otherwise the durable one. Callers hold q.mu.
func (q *queueService) queuedOperation(ctx context.Context, identity models.Identity) (op *models.Operation, durable bool, err error) {
	if held, ok := q.held[identity]; ok {
		return &held, false, nil
	}

	queued, err := q.ops.ListByIdentity(ctx, identity)
	if err != nil {
		return nil, false, err
	}
	if len(queued) == 0 {
		return nil, false, nil
	}

	last := queued[len(queued)-1]
	return &last, true, nil
}

// writeOptimisticRecord upserts the local record mirroring the consolidated
// operation, so reads observe the mutation before any network activity. A
// deleted record keeps its last known payload for error reporting.
func (q *queueService) writeOptimisticRecord(ctx context.Context, op models.Operation, intentKind models.OpKind, now time.Time) (models.Record, error) {
	record := models.Record{
		Identity:    op.Identity,
		Payload:     op.Payload,
		LastWriteAt: now,
		SourceOp:    op.Kind,
		LocalOpID:   op.OperationID,
		Deleted:     op.Kind == models.OpDelete,
	}

	if intentKind == models.OpDelete {
		if existing, err := q.records.Get(ctx, op.Identity); err == nil && len(existing.Payload) > 0 {
			record.Payload = existing.Payload
		}
	}
	if len(record.Payload) == 0 {
		record.Payload = json.RawMessage("{}")
	}

	if err := q.records.Put(ctx, record); err != nil {
		return models.Record{}, err
	}
	return record, nil
}

// armDebounce (re)starts the batching window. Callers hold q.mu.
func (q *queueService) armDebounce() {
	if q.debounce != nil {
		q.debounce.Reset(q.window)
		return
	}

	q.debounce = schedule.After(q.window, func() {
		if err := q.Flush(context.Background()); err != nil {
			q.log.Error().Err(err).Msg("debounced flush failed")
		}
	})
}
