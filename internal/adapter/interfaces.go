package adapter

import (
	"context"
	"encoding/json"

	"github.com/fieldledger/fieldledger/models"
)

// RemoteService is the boundary to the authoritative backend: per-record-type
// CRUD plus the authoritative listing used by reconciliation.
//
// Every returned error is classified: errors.Is against ErrClientRejected,
// ErrUnauthorized or ErrTransient decides the sync manager's retry-vs-drop
// behaviour. Create must return a stable permanent identifier.
type RemoteService interface {
	// Login exchanges credentials for a bearer token. The adapter keeps the
	// token for subsequent requests and returns it with the account id
	// parsed from the token subject.
	Login(ctx context.Context, login, password string) (models.Token, error)

	// Create sends a creation call and returns the authoritative record with
	// its server-issued permanent identifier.
	Create(ctx context.Context, t models.RecordType, payload json.RawMessage) (models.RemoteRecord, error)

	// Update sends an update call against a permanent identifier.
	Update(ctx context.Context, t models.RecordType, id string, payload json.RawMessage) (models.RemoteRecord, error)

	// Delete sends a deletion call against a permanent identifier.
	Delete(ctx context.Context, t models.RecordType, id string) error

	// List fetches the authoritative record set for one type.
	List(ctx context.Context, t models.RecordType) ([]models.RemoteRecord, error)

	// Ping probes the service health endpoint. A nil error means reachable.
	Ping(ctx context.Context) error

	// SetToken installs a bearer token restored from local settings.
	SetToken(token string)
	// Token returns the currently installed bearer token, empty if none.
	Token() string
}
