package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/adiwijaya/go-checkout-payments/internal/events"
	"github.com/adiwijaya/go-checkout-payments/internal/kafkax"
	"github.com/adiwijaya/go-checkout-payments/internal/ledger"
	"github.com/adiwijaya/go-checkout-payments/internal/orders"
)

type OrderStore interface {
	GetOrder(ctx context.Context, id, userID string) (orders.Order, error)
}

type LedgerStore interface {
	Open(ctx context.Context, orderID, paymentID string, amount decimal.Decimal, status string) (ledger.Transaction, error)
	FindByPaymentID(ctx context.Context, paymentID string) (ledger.Transaction, error)
	Capture(ctx context.Context, paymentID, status string) (ledger.Transaction, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service orchestrates one payment attempt per call: create against the
// provider then record in the ledger, or execute against the provider then
// capture ledger and order together.
type Service struct {
	Orders   OrderStore
	Ledger   LedgerStore
	Provider Provider

	PubInitiated Publisher
	PubCaptured  Publisher
	PubFailed    Publisher

	ServiceName string
	ReturnURL   string
	CancelURL   string
}

type InitiateResult struct {
	PaymentID   string `json:"paymentID"`
	ApprovalURL string `json:"approval_url"`
}

// Initiate creates the provider payment and opens the ledger entry. On
// provider rejection nothing is recorded. A missing approval link is not an
// error: the transaction already exists, the caller just gets no redirect.
func (s *Service) Initiate(ctx context.Context, orderID, userID, traceID string) (InitiateResult, error) {
	o, err := s.Orders.GetOrder(ctx, orderID, userID)
	if err != nil {
		return InitiateResult{}, err
	}

	p, err := s.Provider.Create(ctx, PaymentRequest{
		Total:       o.TotalPrice.StringFixed(2),
		Currency:    o.Currency,
		Description: fmt.Sprintf("Payment for order %s", o.ID),
		ReturnURL:   s.ReturnURL,
		CancelURL:   s.CancelURL,
	})
	if err != nil {
		s.publish(s.PubFailed, events.EventPaymentFailed, o.ID, traceID, events.PaymentFailedPayload{
			OrderID: o.ID,
			Reason:  err.Error(),
		})
		return InitiateResult{}, err
	}

	if _, err := s.Ledger.Open(ctx, o.ID, p.ID, o.TotalPrice, p.State); err != nil {
		return InitiateResult{}, err
	}

	s.publish(s.PubInitiated, events.EventPaymentInitiated, o.ID, traceID, events.PaymentInitiatedPayload{
		OrderID:   o.ID,
		PaymentID: p.ID,
		Amount:    o.TotalPrice.StringFixed(2),
		Currency:  o.Currency,
		State:     p.State,
	})

	return InitiateResult{PaymentID: p.ID, ApprovalURL: p.ApprovalURL()}, nil
}

// Capture executes the payment at the provider and, only on provider
// success, flips transaction and order in one storage transaction. A capture
// for a payment this system never initiated fails with ledger.ErrNotFound
// after the provider call, leaving local state untouched.
func (s *Service) Capture(ctx context.Context, paymentID, payerID, traceID string) (ledger.Transaction, error) {
	if paymentID == "" || payerID == "" {
		return ledger.Transaction{}, ErrMissingParams
	}

	p, err := s.Provider.Find(ctx, paymentID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	exec, err := s.Provider.Execute(ctx, p.ID, payerID)
	if err != nil {
		s.publish(s.PubFailed, events.EventPaymentFailed, "", traceID, events.PaymentFailedPayload{
			PaymentID: paymentID,
			Reason:    err.Error(),
		})
		return ledger.Transaction{}, err
	}

	t, err := s.Ledger.Capture(ctx, paymentID, exec.State)
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.publish(s.PubCaptured, events.EventPaymentCaptured, t.OrderID, traceID, events.PaymentCapturedPayload{
		OrderID:   t.OrderID,
		PaymentID: t.PaymentID,
		PayerID:   payerID,
		Amount:    t.Amount.StringFixed(2),
		State:     t.Status,
	})

	return t, nil
}

// Transaction returns the local ledger record for a provider payment id.
// Exact match only; the provider id is the ledger's natural key.
func (s *Service) Transaction(ctx context.Context, paymentID string) (ledger.Transaction, error) {
	if paymentID == "" {
		return ledger.Transaction{}, ErrMissingParams
	}
	return s.Ledger.FindByPaymentID(ctx, paymentID)
}

// Cancel acknowledges an abandoned checkout. No local state changes: the
// pending ledger entry, if one was opened, keeps its created status.
func (s *Service) Cancel() string {
	return "Payment cancelled"
}

func (s *Service) publish(pub Publisher, eventType, orderID, traceID string, payload any) {
	if pub == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	pub.Publish(events.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
