package adapter

import "errors"

var (
	// ErrUnauthorized means the bearer token was missing, expired or revoked.
	// Queued operations are kept; the drain pass aborts until a new login.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrClientRejected means the remote service judged the payload or
	// identity invalid (4xx). Terminal: the operation is dropped and the
	// error surfaced, never retried.
	ErrClientRejected = errors.New("request rejected by remote service")

	// ErrTransient marks a network, timeout or server-side (5xx) failure.
	// The sync manager retries with backoff up to the retry ceiling.
	ErrTransient = errors.New("transient remote failure")
)
