package models

import (
	"encoding/json"
	"time"
)

// OpKind is the kind of mutation carried by a queued operation and recorded
// on the optimistic local record that mirrors it.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Valid reports whether k is one of the known operation kinds.
func (k OpKind) Valid() bool {
	switch k {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Operation is one entry of the durable pending-operation log. The log is an
// ordered sequence consumed by the sync manager; once flushed, at most one
// Operation exists per identity (earlier entries are consolidated away).
//
// Operations are mutated in place only by consolidation. The sync manager
// removes them on confirmed success or terminal failure and bumps RetryCount
// on transient failure.
type Operation struct {
	OperationID string `json:"operation_id"`
	Identity
	Kind       OpKind          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
}
