// Package payments drives the three-step protocol against the external
// payment provider: create a payment, send the payer off to approve it,
// then execute (capture) or cancel.
package payments

import (
	"context"
	"errors"
	"fmt"
)

// Payment is the provider's view of one payment attempt.
type Payment struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Links []Link `json:"links"`
}

type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// ApprovalURL scans the link collection for the provider's redirect target.
// A payment without one is degraded but not an error; the caller gets "".
func (p Payment) ApprovalURL() string {
	for _, l := range p.Links {
		if l.Rel == "approval_url" {
			return l.Href
		}
	}
	return ""
}

// PaymentRequest is the creation request sent to the provider. Total is already
// formatted to the currency's two minor-unit decimals.
type PaymentRequest struct {
	Total       string
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
}

type Provider interface {
	Create(ctx context.Context, req PaymentRequest) (Payment, error)
	Find(ctx context.Context, paymentID string) (Payment, error)
	Execute(ctx context.Context, paymentID, payerID string) (Payment, error)
}

// ErrMissingParams covers a capture call without a payment or payer id.
var ErrMissingParams = errors.New("missing paymentId or PayerID")

// RejectedError: the provider declined to create or execute the payment.
// Detail carries the provider's own message.
type RejectedError struct {
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment rejected: %s", e.Detail)
}

// ProviderError: the provider could not be reached or answered garbage.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
