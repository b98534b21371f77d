package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paypalTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPayPalCreate(t *testing.T) {
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments/payment", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var body paypalCreateReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sale", body.Intent)
		assert.Equal(t, "paypal", body.Payer.PaymentMethod)
		require.Len(t, body.Transactions, 1)
		assert.Equal(t, "59.97", body.Transactions[0].Amount.Total)
		assert.Equal(t, "USD", body.Transactions[0].Amount.Currency)
		assert.Equal(t, "Payment for order ord-1", body.Transactions[0].Description)
		assert.Equal(t, "http://localhost/ret", body.RedirectURLs.ReturnURL)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "PAY-1",
			"state": "created",
			"links": []map[string]string{
				{"rel": "self", "href": "https://provider/payment/1"},
				{"rel": "approval_url", "href": "https://provider/approve/1"},
			},
		})
	})

	c := NewPayPalClient(srv.URL, "client-id", "client-secret")
	p, err := c.Create(context.Background(), PaymentRequest{
		Total:       "59.97",
		Currency:    "USD",
		Description: "Payment for order ord-1",
		ReturnURL:   "http://localhost/ret",
		CancelURL:   "http://localhost/can",
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", p.ID)
	assert.Equal(t, "created", p.State)
	assert.Equal(t, "https://provider/approve/1", p.ApprovalURL())
}

func TestPayPalCreateRejected(t *testing.T) {
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name":    "VALIDATION_ERROR",
			"message": "Invalid request",
		})
	})

	c := NewPayPalClient(srv.URL, "client-id", "client-secret")
	_, err := c.Create(context.Background(), PaymentRequest{Total: "1.00", Currency: "USD"})
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Invalid request", rej.Detail)
}

func TestPayPalExecute(t *testing.T) {
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/payment/PAY-1/execute", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PAYER-9", body["payer_id"])

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "PAY-1", "state": "approved"})
	})

	c := NewPayPalClient(srv.URL, "client-id", "client-secret")
	p, err := c.Execute(context.Background(), "PAY-1", "PAYER-9")
	require.NoError(t, err)
	assert.Equal(t, "approved", p.State)
}

func TestPayPalExecuteDeclined(t *testing.T) {
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "INSTRUMENT_DECLINED"})
	})

	c := NewPayPalClient(srv.URL, "client-id", "client-secret")
	_, err := c.Execute(context.Background(), "PAY-1", "PAYER-9")
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "INSTRUMENT_DECLINED", rej.Detail)
}

func TestPayPalFindFailureIsProviderError(t *testing.T) {
	srv := paypalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "internal error"})
	})

	c := NewPayPalClient(srv.URL, "client-id", "client-secret")
	_, err := c.Find(context.Background(), "PAY-1")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "find", pe.Op)
}

func TestPayPalTokenReused(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "PAY-1", "state": "created"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewPayPalClient(srv.URL, "client-id", "client-secret")
	_, err := c.Find(context.Background(), "PAY-1")
	require.NoError(t, err)
	_, err = c.Find(context.Background(), "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, 1, tokenCalls)
}
