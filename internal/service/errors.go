package service

import "errors"

var (
	// ErrMissingIdentity is returned when an update or delete intent arrives
	// without a record identifier.
	ErrMissingIdentity = errors.New("record identity is required for this operation")

	// ErrDeletePending is returned when a create/update intent targets an
	// identity whose queued delete has not drained yet. The delete supersedes
	// everything for that identity.
	ErrDeletePending = errors.New("a delete is already queued for this record")

	// ErrUnknownOperationKind is returned when an intent carries a kind
	// outside create/update/delete.
	ErrUnknownOperationKind = errors.New("unknown operation kind")

	// ErrOffline is returned by a manual sync trigger while the connectivity
	// signal is down. Mutations still enqueue locally.
	ErrOffline = errors.New("client is offline")
)
