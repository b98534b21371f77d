// Package ledger records one transaction row per payment attempt against an
// order. The provider-assigned payment id is the natural key: lookups are
// exact-match and the column is UNIQUE at the storage layer.
package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`

	// PaymentID is the provider's identifier for this attempt, unique
	// across all transactions.
	PaymentID string `json:"payment_id"`

	// Amount is a snapshot of the order total at the moment the attempt
	// was opened. Later order edits must not touch it.
	Amount decimal.Decimal `json:"amount"`

	// Status mirrors the provider's state string (created, approved,
	// failed) rather than a local enum.
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound         = errors.New("transaction not found")
	ErrDuplicatePayment = errors.New("payment id already recorded")
)
