package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/adiwijaya/go-checkout-payments/internal/events"
	"github.com/adiwijaya/go-checkout-payments/internal/kafkax"
	"github.com/adiwijaya/go-checkout-payments/internal/ledger"
	"github.com/adiwijaya/go-checkout-payments/internal/orders"
)

// OrderStore is the slice of the orders repo the handler needs. Every read
// and write takes the caller's user id so rows stay scoped to their owner.
type OrderStore interface {
	CreateOrder(ctx context.Context, productID string, quantity int, userID, currency string) (orders.Order, error)
	GetOrder(ctx context.Context, id, userID string) (orders.Order, error)
	ListOrders(ctx context.Context, userID string) ([]orders.Order, error)
	UpdateOrder(ctx context.Context, id, userID string, in orders.UpdateOrderInput) (orders.Order, error)
	DeleteOrder(ctx context.Context, id, userID string) error
}

type LedgerReader interface {
	ListByOrder(ctx context.Context, orderID string) ([]ledger.Transaction, error)
}

// StatusCache mirrors redisx.StatusCache. GetStatus returns the cached JSON
// body and whether the key was present.
type StatusCache interface {
	GetStatus(ctx context.Context, orderID string) (string, bool)
	SetStatus(ctx context.Context, orderID, status string)
	DelStatus(ctx context.Context, orderID string)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Repo         OrderStore
	Ledger       LedgerReader
	Cache        StatusCache
	Producer     Publisher
	Service      string
	AuthRequired bool
}

// Quantity is a pointer so an absent field (defaults to 1) is distinguishable
// from an explicit zero, which is rejected.
type CreateOrderReq struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
	Currency  string `json:"currency"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/order", func(r chi.Router) {
		r.Use(RequireUser(h.AuthRequired))
		r.Get("/", h.listOrders)
		r.Post("/create", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Get("/{id}/status", h.getOrderStatus)
		r.Get("/{id}/transactions", h.listTransactions)
		r.Put("/{id}", h.updateOrder)
		r.Patch("/{id}", h.patchOrder)
		r.Delete("/{id}", h.deleteOrder)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.CreateOrder(ctx, req.ProductID, qty, UserFrom(r.Context()), req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}

	h.Cache.SetStatus(ctx, o.ID, string(o.Status))
	h.publishCreated(r, o)

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Repo.ListOrders(ctx, UserFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetOrder(ctx, chi.URLParam(r, "id"), UserFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus reads through the Redis status cache. The cache key carries
// no owner, so a scoped caller must pass the ownership check against the DB
// before anything cached is served; only anonymous reads (auth disabled, no
// identity attached) may take the fast path, since those are unscoped in the
// DB as well.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	userID := UserFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if userID == "" {
		if s, ok := h.Cache.GetStatus(ctx, orderID); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Repo.GetOrder(ctx, orderID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Cache.SetStatus(ctx, o.ID, string(o.Status))
	writeJSON(w, http.StatusOK, map[string]orders.Status{"status": o.Status})
}

// listTransactions returns the payment attempts recorded against an order,
// scoped like every other order read.
func (h *OrdersHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetOrder(ctx, chi.URLParam(r, "id"), UserFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	txs, err := h.Ledger.ListByOrder(ctx, o.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.UpdateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	// PUT is a full replace of the editable fields
	if in.ProductID == nil || in.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id and quantity are required"})
		return
	}
	h.applyUpdate(w, r, in)
}

func (h *OrdersHandler) patchOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.UpdateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	h.applyUpdate(w, r, in)
}

func (h *OrdersHandler) applyUpdate(w http.ResponseWriter, r *http.Request, in orders.UpdateOrderInput) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.UpdateOrder(ctx, chi.URLParam(r, "id"), UserFrom(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Cache.SetStatus(ctx, o.ID, string(o.Status))
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.DeleteOrder(ctx, orderID, UserFrom(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	h.Cache.DelStatus(ctx, orderID)
	// 204 carries no body
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) publishCreated(r *http.Request, o orders.Order) {
	if h.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(events.OrderCreatedPayload{
			OrderID:    o.ID,
			ProductID:  o.ProductID,
			UserID:     o.UserID,
			Quantity:   o.Quantity,
			TotalPrice: o.TotalPrice.StringFixed(2),
			Currency:   o.Currency,
		}),
	}
	h.Producer.Publish(events.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
