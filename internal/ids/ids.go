package ids

import (
	"github.com/google/uuid"

	"github.com/fieldledger/fieldledger/models"
)

// Generator mints identifiers for queued operations and for records created
// while offline. UUIDv7 keeps ids roughly time-ordered; the random fallback
// only fires if the monotonic clock source fails.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// OperationID returns a fresh identifier for a queued operation.
func (g *Generator) OperationID() string {
	return newUUID()
}

// TempRecordID returns a locally minted record identifier carrying the
// reserved temporary prefix. It must never be sent to the remote service.
func (g *Generator) TempRecordID() string {
	return models.TempIDPrefix + newUUID()
}

func newUUID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
