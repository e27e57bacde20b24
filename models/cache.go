package models

import (
	"encoding/json"
	"time"
)

// CachedResponse is a short-TTL memoization of a read endpoint. Losing one
// only costs a network round trip; it carries no correctness obligation.
type CachedResponse struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is stale at the given instant.
func (c CachedResponse) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
