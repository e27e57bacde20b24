package service

import (
	"encoding/json"
	"fmt"
	"time"

	"dario.cat/mergo"

	"github.com/fieldledger/fieldledger/models"
)

// consolidate folds a new mutation intent into the operation already queued
// for the same identity and returns the single replacement operation. The
// replacement always carries the fresh operation id and enqueue time.
//
// Rules, in precedence order:
//   - no existing operation: the intent becomes the operation as-is;
//   - existing delete: any non-delete intent is discarded (ErrDeletePending),
//     a delete intent refreshes the queued delete;
//   - delete intent: replaces whatever was queued;
//   - existing create: the identity has never existed remotely, so the
//     replacement stays a create; an update intent deep-merges its payload
//     over the queued one;
//   - otherwise (update over update): last write wins.
func consolidate(existing *models.Operation, id models.Identity, kind models.OpKind, payload json.RawMessage, opID string, now time.Time) (models.Operation, error) {
	replacement := models.Operation{
		OperationID: opID,
		Identity:    id,
		Kind:        kind,
		Payload:     payload,
		EnqueuedAt:  now,
	}

	switch {
	case existing == nil:
	case existing.Kind == models.OpDelete && kind != models.OpDelete:
		return models.Operation{}, ErrDeletePending
	case kind == models.OpDelete:
	case existing.Kind == models.OpCreate:
		replacement.Kind = models.OpCreate
		if kind == models.OpUpdate {
			merged, err := mergePayloads(existing.Payload, payload)
			if err != nil {
				return models.Operation{}, err
			}
			replacement.Payload = merged
		}
	default:
		// update over update: keep only the newest payload
	}

	return replacement, nil
}

// mergePayloads overlays patch onto base field by field, patch winning on
// conflicts. Both sides must be JSON objects.
func mergePayloads(base, patch json.RawMessage) (json.RawMessage, error) {
	dst := map[string]any{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &dst); err != nil {
			return nil, fmt.Errorf("decode queued payload: %w", err)
		}
	}

	src := map[string]any{}
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &src); err != nil {
			return nil, fmt.Errorf("decode incoming payload: %w", err)
		}
	}

	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge payloads: %w", err)
	}

	merged, err := json.Marshal(dst)
	if err != nil {
		return nil, fmt.Errorf("encode merged payload: %w", err)
	}

	return merged, nil
}
