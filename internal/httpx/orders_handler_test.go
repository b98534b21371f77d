package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwijaya/go-checkout-payments/internal/ledger"
	"github.com/adiwijaya/go-checkout-payments/internal/orders"
)

type fakeOrderRepo struct {
	byID   map[string]orders.Order
	prices map[string]decimal.Decimal
	nextID int
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, productID string, quantity int, userID, currency string) (orders.Order, error) {
	if quantity <= 0 {
		return orders.Order{}, orders.ErrInvalidQuantity
	}
	price, ok := f.prices[productID]
	if !ok {
		return orders.Order{}, orders.ErrProductNotFound
	}
	if currency == "" {
		currency = orders.DefaultCurrency
	}
	f.nextID++
	o := orders.Order{
		ID:         fmt.Sprintf("ord-%d", f.nextID),
		ProductID:  productID,
		UserID:     userID,
		Quantity:   quantity,
		TotalPrice: orders.ComputeTotal(price, quantity),
		Status:     orders.StatusPending,
		Currency:   currency,
	}
	f.byID[o.ID] = o
	return o, nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, id, userID string) (orders.Order, error) {
	o, ok := f.byID[id]
	if !ok || (userID != "" && o.UserID != "" && o.UserID != userID) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) ListOrders(_ context.Context, userID string) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range f.byID {
		if userID == "" || o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateOrder(ctx context.Context, id, userID string, in orders.UpdateOrderInput) (orders.Order, error) {
	o, err := f.GetOrder(ctx, id, userID)
	if err != nil {
		return orders.Order{}, err
	}
	if in.ProductID != nil {
		o.ProductID = *in.ProductID
	}
	if in.Quantity != nil {
		if *in.Quantity <= 0 {
			return orders.Order{}, orders.ErrInvalidQuantity
		}
		o.Quantity = *in.Quantity
	}
	if in.Currency != nil {
		o.Currency = *in.Currency
	}
	price, ok := f.prices[o.ProductID]
	if !ok {
		return orders.Order{}, orders.ErrProductNotFound
	}
	o.TotalPrice = orders.ComputeTotal(price, o.Quantity)
	f.byID[o.ID] = o
	return o, nil
}

func (f *fakeOrderRepo) DeleteOrder(ctx context.Context, id, userID string) error {
	if _, err := f.GetOrder(ctx, id, userID); err != nil {
		return err
	}
	delete(f.byID, id)
	return nil
}

type fakeLedgerReader struct{ byOrder map[string][]ledger.Transaction }

func (f *fakeLedgerReader) ListByOrder(_ context.Context, orderID string) ([]ledger.Transaction, error) {
	return f.byOrder[orderID], nil
}

type fakeStatusCache struct{ m map[string]string }

func (c *fakeStatusCache) GetStatus(_ context.Context, orderID string) (string, bool) {
	s, ok := c.m[orderID]
	return s, ok && s != ""
}

func (c *fakeStatusCache) SetStatus(_ context.Context, orderID, status string) {
	c.m[orderID] = fmt.Sprintf(`{"status":%q}`, status)
}

func (c *fakeStatusCache) DelStatus(_ context.Context, orderID string) {
	delete(c.m, orderID)
}

// newOrdersRouter seeds one order (ord-1, owned by user-a) and one product
// (prod-1 at 19.99).
func newOrdersRouter(authRequired bool) (*fakeOrderRepo, *fakeStatusCache, http.Handler) {
	repo := &fakeOrderRepo{
		byID: map[string]orders.Order{
			"ord-1": {
				ID:         "ord-1",
				ProductID:  "prod-1",
				UserID:     "user-a",
				Quantity:   3,
				TotalPrice: decimal.RequireFromString("59.97"),
				Status:     orders.StatusPending,
				Currency:   "USD",
			},
		},
		prices: map[string]decimal.Decimal{"prod-1": decimal.RequireFromString("19.99")},
		nextID: 1,
	}
	cache := &fakeStatusCache{m: map[string]string{}}

	r := NewRouter()
	(&OrdersHandler{
		Repo:         repo,
		Ledger:       &fakeLedgerReader{byOrder: map[string][]ledger.Transaction{}},
		Cache:        cache,
		Service:      "test",
		AuthRequired: authRequired,
	}).Register(r)
	return repo, cache, r
}

func TestGetOrderScopedToOwner(t *testing.T) {
	_, _, r := newOrdersRouter(true)

	rec, _ := doJSON(t, r, http.MethodGet, "/order/ord-1", "", "user-a")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out := doJSON(t, r, http.MethodGet, "/order/ord-1", "", "user-b")
	assert.Equal(t, http.StatusNotFound, rec.Code, "foreign orders read as missing, never 403")
	assert.Equal(t, "order not found", out["error"])
}

func TestUpdateOrderCrossUserIs404(t *testing.T) {
	repo, _, r := newOrdersRouter(true)

	body := `{"product_id":"prod-1","quantity":9}`
	rec, out := doJSON(t, r, http.MethodPut, "/order/ord-1", body, "user-b")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", out["error"])
	assert.Equal(t, 3, repo.byID["ord-1"].Quantity, "foreign write must not land")
}

func TestPatchOrderCrossUserIs404(t *testing.T) {
	repo, _, r := newOrdersRouter(true)

	rec, out := doJSON(t, r, http.MethodPatch, "/order/ord-1", `{"quantity":9}`, "user-b")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", out["error"])
	assert.Equal(t, 3, repo.byID["ord-1"].Quantity)
}

func TestDeleteOrderCrossUserIs404(t *testing.T) {
	repo, _, r := newOrdersRouter(true)

	rec, out := doJSON(t, r, http.MethodDelete, "/order/ord-1", "", "user-b")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", out["error"])
	assert.Contains(t, repo.byID, "ord-1")
}

func TestDeleteOrderReturnsBareNoContent(t *testing.T) {
	repo, cache, r := newOrdersRouter(true)
	cache.SetStatus(context.Background(), "ord-1", string(orders.StatusPending))

	rec, _ := doJSON(t, r, http.MethodDelete, "/order/ord-1", "", "user-a")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String(), "204 must not carry a body")
	assert.NotContains(t, repo.byID, "ord-1")
	_, ok := cache.GetStatus(context.Background(), "ord-1")
	assert.False(t, ok, "cached status must be dropped with the order")
}

func TestTransactionsRouteCrossUserIs404(t *testing.T) {
	_, _, r := newOrdersRouter(true)

	rec, out := doJSON(t, r, http.MethodGet, "/order/ord-1/transactions", "", "user-b")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", out["error"])
}

// A warm cache entry must never shortcut the ownership check: the key is per
// order, not per user, so serving it blind would hand any caller the status
// of somebody else's order.
func TestOrderStatusCacheDoesNotLeakAcrossUsers(t *testing.T) {
	_, cache, r := newOrdersRouter(true)
	cache.SetStatus(context.Background(), "ord-1", string(orders.StatusPending))

	rec, out := doJSON(t, r, http.MethodGet, "/order/ord-1/status", "", "user-b")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", out["error"])

	rec, out = doJSON(t, r, http.MethodGet, "/order/ord-1/status", "", "user-a")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(orders.StatusPending), out["status"])
}

func TestOrderStatusAnonymousServesCache(t *testing.T) {
	_, cache, r := newOrdersRouter(false)
	// cache deliberately ahead of the row to prove which one answered
	cache.SetStatus(context.Background(), "ord-1", string(orders.StatusPaid))

	rec, out := doJSON(t, r, http.MethodGet, "/order/ord-1/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(orders.StatusPaid), out["status"])

	rec, out = doJSON(t, r, http.MethodGet, "/order/ord-1/status", "", "user-a")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(orders.StatusPending), out["status"], "scoped reads answer from the row")
}

func TestCreateOrderDefaultsMissingQuantity(t *testing.T) {
	repo, _, r := newOrdersRouter(true)

	rec, _ := doJSON(t, r, http.MethodPost, "/order/create", `{"product_id":"prod-1"}`, "user-a")
	require.Equal(t, http.StatusCreated, rec.Code)

	var o orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, 1, o.Quantity)
	assert.Equal(t, "19.99", o.TotalPrice.StringFixed(2))
	assert.Equal(t, o.Quantity, repo.byID[o.ID].Quantity)
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	repo, _, r := newOrdersRouter(true)

	for _, body := range []string{
		`{"product_id":"prod-1","quantity":0}`,
		`{"product_id":"prod-1","quantity":-2}`,
	} {
		rec, out := doJSON(t, r, http.MethodPost, "/order/create", body, "user-a")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "quantity must be positive", out["error"], body)
	}
	assert.Len(t, repo.byID, 1, "rejected creates must not persist")
}
