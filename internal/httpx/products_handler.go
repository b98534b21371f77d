package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/adiwijaya/go-checkout-payments/internal/orders"
)

type ProductStore interface {
	CreateProduct(ctx context.Context, name, description string, price decimal.Decimal, stock int) (orders.Product, error)
	GetProduct(ctx context.Context, id string) (orders.Product, error)
	ListProducts(ctx context.Context) ([]orders.Product, error)
	UpdateProduct(ctx context.Context, id string, in orders.ProductInput) (orders.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type ProductsHandler struct {
	Repo ProductStore
}

type CreateProductReq struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/create", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Patch("/{id}", h.patch)
		r.Delete("/{id}", h.delete)
	})
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing name"})
		return
	}
	if req.Price.IsNegative() || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price and stock must be non-negative"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.CreateProduct(ctx, req.Name, req.Description, req.Price, req.Stock)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Repo.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var in orders.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.Name == nil || in.Price == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and price are required"})
		return
	}
	h.applyUpdate(w, r, in)
}

func (h *ProductsHandler) patch(w http.ResponseWriter, r *http.Request) {
	var in orders.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	h.applyUpdate(w, r, in)
}

func (h *ProductsHandler) applyUpdate(w http.ResponseWriter, r *http.Request, in orders.ProductInput) {
	if in.Price != nil && in.Price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be non-negative"})
		return
	}
	if in.Stock != nil && *in.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock must be non-negative"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.UpdateProduct(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	// 204 carries no body
	w.WriteHeader(http.StatusNoContent)
}
