package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Typed payload schemas for the closed set of record kinds. Storage and the
// operation queue carry payloads opaquely as json.RawMessage; these types are
// the contract at the edges (forms producing mutations, remote endpoints).

type OrderPayload struct {
	Number     string      `json:"number"`
	CustomerID string      `json:"customer_id"`
	Items      []OrderItem `json:"items,omitempty"`
	Total      float64     `json:"total"`
	Currency   string      `json:"currency,omitempty"`
	PlacedAt   *time.Time  `json:"placed_at,omitempty"`
	Notes      string      `json:"notes,omitempty"`
}

type OrderItem struct {
	CatalogItemID string  `json:"catalog_item_id"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
}

type ExpensePayload struct {
	Category   string     `json:"category"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency,omitempty"`
	SpentAt    *time.Time `json:"spent_at,omitempty"`
	Receipt    string     `json:"receipt,omitempty"`
	Reimbursed bool       `json:"reimbursed,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

type CustomerAccountPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Tier    string `json:"tier,omitempty"`
}

type CatalogItemPayload struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock,omitempty"`
	Active      bool    `json:"active,omitempty"`
}

type UserPayload struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// EncodePayload marshals a typed payload into the opaque form carried by
// records and queued operations.
func EncodePayload(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}

// DecodePayload unmarshals an opaque payload into the typed schema for its
// record kind.
func DecodePayload(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
