package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adiwijaya/go-checkout-payments/internal/payments"
)

type PaymentsHandler struct {
	Svc          *payments.Service
	AuthRequired bool
}

type CreatePaymentReq struct {
	OrderID string `json:"order_id"`
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Route("/payments", func(r chi.Router) {
		r.Use(RequireUser(h.AuthRequired))
		r.Post("/create", h.create)
		r.Get("/execute", h.execute)
		r.Get("/cancel", h.cancel)
		r.Get("/transaction", h.transaction)
	})
}

func (h *PaymentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing order_id"})
		return
	}

	// provider round-trip plus two writes; give it more room than a read
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Svc.Initiate(ctx, req.OrderID, UserFrom(r.Context()), r.Header.Get("X-Request-Id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// execute lands the payer back from the provider: paymentId and PayerID
// arrive as query params on the redirect.
func (h *PaymentsHandler) execute(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("paymentId")
	payerID := r.URL.Query().Get("PayerID")

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if _, err := h.Svc.Capture(ctx, paymentID, payerID, r.Header.Get("X-Request-Id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Payment Successful"})
}

// transaction exposes the local ledger record behind a provider payment id,
// so a capture is observable on this side as well as on the order.
func (h *PaymentsHandler) transaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	t, err := h.Svc.Transaction(ctx, r.URL.Query().Get("paymentId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *PaymentsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": h.Svc.Cancel()})
}
