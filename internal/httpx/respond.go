package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adiwijaya/go-checkout-payments/internal/ledger"
	"github.com/adiwijaya/go-checkout-payments/internal/orders"
	"github.com/adiwijaya/go-checkout-payments/internal/payments"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto the wire contract:
// not-found (including scope masking) -> 404, bad input and provider
// declines -> 400, everything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	var rejected *payments.RejectedError
	var provider *payments.ProviderError

	switch {
	case errors.Is(err, orders.ErrProductNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, payments.ErrMissingParams):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": rejected.Detail})
	case errors.As(err, &provider):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": provider.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
