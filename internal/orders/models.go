package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Order struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	UserID     string          `json:"user_id,omitempty"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     Status          `json:"status"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

const DefaultCurrency = "USD"

// ComputeTotal is the only place an order total comes from. Create and
// update both go through here; client-supplied totals are ignored.
func ComputeTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
