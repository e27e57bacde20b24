package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RecordType names one of the domain record collections the client manages.
// The set is closed: every payload, queued operation and stored record is
// tagged with exactly one of these values.
type RecordType string

const (
	TypeOrder           RecordType = "order"
	TypeExpense         RecordType = "expense"
	TypeCustomerAccount RecordType = "customer_account"
	TypeCatalogItem     RecordType = "catalog_item"
	TypeUser            RecordType = "user"
)

// TempIDPrefix marks identifiers minted locally while offline. A prefixed
// identifier must never reach the remote service as-is.
const TempIDPrefix = "local:"

// RecordTypes returns all known record types in a stable order.
func RecordTypes() []RecordType {
	return []RecordType{TypeOrder, TypeExpense, TypeCustomerAccount, TypeCatalogItem, TypeUser}
}

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	switch t {
	case TypeOrder, TypeExpense, TypeCustomerAccount, TypeCatalogItem, TypeUser:
		return true
	}
	return false
}

// MustRecordType panics when t is not a known record type. An unknown type is
// a caller contract violation, not a runtime condition to recover from.
func MustRecordType(t RecordType) RecordType {
	if !t.Valid() {
		panic(fmt.Sprintf("models: unknown record type %q", string(t)))
	}
	return t
}

// Identity uniquely names a mutable domain entity as a (type, id) pair.
type Identity struct {
	Type RecordType `json:"type"`
	ID   string     `json:"id"`
}

// Temporary reports whether the identifier was minted locally and has not yet
// been replaced by a server-issued permanent one.
func (id Identity) Temporary() bool {
	return strings.HasPrefix(id.ID, TempIDPrefix)
}

func (id Identity) String() string {
	return string(id.Type) + "/" + id.ID
}

// Record is the locally stored state of one domain entity. Exactly one Record
// per Identity is authoritative in the store at any instant; writing a new
// Record for the same identity supersedes the previous one.
//
// A Record with Deleted set is logically absent from any listing but is
// physically retained until the sync engine confirms the remote removal.
type Record struct {
	Identity
	Payload     json.RawMessage `json:"payload"`
	LastWriteAt time.Time       `json:"last_write_at"`
	Synced      bool            `json:"synced"`
	SourceOp    OpKind          `json:"source_op"`
	LocalOpID   string          `json:"local_op_id"`
	Deleted     bool            `json:"deleted"`
}

// RemoteRecord is an authoritative record as returned by the remote mutation
// service: a permanent identifier plus the server-side payload.
type RemoteRecord struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}
