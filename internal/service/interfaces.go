package service

import (
	"context"
	"encoding/json"

	"github.com/fieldledger/fieldledger/models"
)

// Connectivity is the boolean "online" observable the sync manager owns.
// Changes carries transitions; Online reports the latest state.
type Connectivity interface {
	Online() bool
	Changes() <-chan bool
}

// QueueService turns single mutation intents into durably queued,
// consolidated operations while giving callers an immediate optimistic view
// of the mutated record.
type QueueService interface {
	// Enqueue records one mutation intent. The returned record is the
	// optimistic local state visible to reads before any network activity.
	// For creates with an empty id a temporary identifier is minted.
	// Deletes bypass the batching window and are written to the durable log
	// synchronously with a prompt drain request.
	Enqueue(ctx context.Context, t models.RecordType, kind models.OpKind, payload json.RawMessage, id string) (models.Record, error)

	// Flush moves every held intent into the durable pending-operation log
	// immediately, without waiting for the debounce window.
	Flush(ctx context.Context) error

	// HeldCount reports intents held in memory, not yet flushed to the log.
	HeldCount() int

	// Reset discards all held intents and stops the debounce timer.
	Reset()
}

// SyncService owns the connectivity state and drains the pending-operation
// log against the remote service.
type SyncService interface {
	// Start launches the event loop reacting to connectivity transitions,
	// drain requests and retry timers. Stop cancels it and blocks until it
	// has exited.
	Start(ctx context.Context)
	Stop()

	// Sync performs a manual, synchronous drain. Returns ErrOffline when the
	// connectivity signal is down; a drain already in progress is not an
	// error (the request is simply ignored).
	Sync(ctx context.Context) error

	// RequestDrain asks the event loop for a drain attempt. Non-blocking;
	// coalesces with an already pending request.
	RequestDrain()

	// OnComplete registers a completion listener called after every drain
	// pass. The returned function unsubscribes it.
	OnComplete(fn func(models.SyncReport)) func()

	// CancelRetry cancels a scheduled retry timer for the identity, if any.
	// Called when consolidation supersedes the queued operation.
	CancelRetry(id models.Identity)
}

// Reconciler merges authoritative snapshots into the local store without
// clobbering unsynced local state.
type Reconciler interface {
	// Merge replaces the synced subset of one record type with the fresh
	// authoritative set, suppressing records with a pending local delete and
	// leaving unsynced records untouched.
	Merge(ctx context.Context, t models.RecordType, authoritative []models.RemoteRecord) error
}

// SyncJob is the background worker that periodically requests a drain, on a
// longer interval while online and a shorter one while offline.
type SyncJob interface {
	// Start launches the background goroutine. Any previously running job is
	// stopped before the new one begins.
	Start(ctx context.Context)

	// Stop signals the background goroutine to exit and blocks until it has
	// fully terminated.
	Stop()
}
