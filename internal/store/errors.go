package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrStorageUnavailable wraps any SQL-level failure of the durable local
	// store. It is fatal for the attempted operation: this layer never
	// retries, callers surface it immediately.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrRecordNotFound is returned when a query targets a record identity
	// that does not exist in the local store.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrOperationNotFound is returned when an update targets a queued
	// operation that no longer exists in the pending-operation log (it was
	// consolidated away or already confirmed).
	ErrOperationNotFound = errors.New("queued operation was not found")

	// ErrCacheMiss is returned when the response cache has no entry for the
	// requested key. Not a failure: the caller performs the network fetch.
	ErrCacheMiss = errors.New("response cache miss")

	// ErrSettingNotFound is returned when a scalar setting key is absent.
	ErrSettingNotFound = errors.New("setting was not found")

	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")
)
