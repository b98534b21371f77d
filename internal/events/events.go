package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventPaymentInitiated = "PaymentInitiated"
	EventPaymentCaptured  = "PaymentCaptured"
	EventPaymentFailed    = "PaymentFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	UserID     string `json:"user_id,omitempty"`
	Quantity   int    `json:"quantity"`
	TotalPrice string `json:"total_price"`
	Currency   string `json:"currency"`
}

type PaymentInitiatedPayload struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	State     string `json:"state"`
}

type PaymentCapturedPayload struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	PayerID   string `json:"payer_id"`
	Amount    string `json:"amount"`
	State     string `json:"state"`
}

type PaymentFailedPayload struct {
	OrderID   string `json:"order_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Reason    string `json:"reason"`
}
