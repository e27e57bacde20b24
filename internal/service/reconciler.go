package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/internal/store"
	"github.com/fieldledger/fieldledger/models"
)

// reconciler folds authoritative snapshots into the local record store.
// Synced records are disposable mirrors and get wholesale replaced; unsynced
// records embody local intent and are never touched here.
type reconciler struct {
	records store.RecordRepository
	log     *logger.Logger
}

func NewReconciler(records store.RecordRepository, log *logger.Logger) Reconciler {
	return &reconciler{records: records, log: log}
}

func (r *reconciler) Merge(ctx context.Context, t models.RecordType, authoritative []models.RemoteRecord) error {
	models.MustRecordType(t)

	unsyncedOnly := false
	unsynced, err := r.records.List(ctx, t, &unsyncedOnly)
	if err != nil {
		return fmt.Errorf("list unsynced %s records: %w", t, err)
	}

	// An authoritative snapshot taken before a pending local delete drains
	// still contains the doomed record. Inserting it would resurrect what the
	// user already deleted, so those ids are suppressed outright; every other
	// unsynced id is skipped to keep local edits visible until they drain.
	local := make(map[string]struct{}, len(unsynced))
	for _, rec := range unsynced {
		local[rec.ID] = struct{}{}
	}

	if err = r.records.RemoveSynced(ctx, t); err != nil {
		return fmt.Errorf("remove synced %s records: %w", t, err)
	}

	now := time.Now()
	for _, item := range authoritative {
		if item.ID == "" {
			r.log.Warn().Str("type", string(t)).Msg("authoritative record without id skipped")
			continue
		}
		if _, pending := local[item.ID]; pending {
			continue
		}

		rec := models.Record{
			Identity:    models.Identity{Type: t, ID: item.ID},
			Payload:     item.Payload,
			LastWriteAt: item.UpdatedAt,
			Synced:      true,
			SourceOp:    models.OpUpdate,
		}
		if rec.LastWriteAt.IsZero() {
			rec.LastWriteAt = now
		}

		if err = r.records.Put(ctx, rec); err != nil {
			return fmt.Errorf("store authoritative %s record %s: %w", t, item.ID, err)
		}
	}

	return nil
}
