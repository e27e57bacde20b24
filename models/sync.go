package models

import "time"

// OperationError reports the terminal failure of one queued operation: the
// remote service rejected it, or its retry budget ran out.
type OperationError struct {
	Identity
	Kind OpKind `json:"kind"`
	Err  string `json:"error"`
}

// SyncReport summarises one completed drain pass. It is delivered to every
// registered completion listener whether the pass succeeded fully or deferred
// some operations to a later retry.
type SyncReport struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Sent       int              `json:"sent"`
	Pending    int64            `json:"pending"`
	Errors     []OperationError `json:"errors,omitempty"`
}

// Token is the session credential returned by the remote service on login.
type Token struct {
	SignedString string `json:"token"`
	AccountID    int64  `json:"account_id"`
}
