package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PayPalClient talks to the PayPal REST payments API (v1). It implements
// Provider.
type PayPalClient struct {
	BaseURL  string
	ClientID string
	Secret   string
	HTTP     *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewPayPalClient(baseURL, clientID, secret string) *PayPalClient {
	return &PayPalClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		Secret:   secret,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

type paypalAmount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type paypalTransaction struct {
	Amount      paypalAmount `json:"amount"`
	Description string       `json:"description"`
}

type paypalCreateReq struct {
	Intent       string              `json:"intent"`
	Payer        paypalPayer         `json:"payer"`
	Transactions []paypalTransaction `json:"transactions"`
	RedirectURLs paypalRedirects     `json:"redirect_urls"`
}

type paypalPayer struct {
	PaymentMethod string `json:"payment_method"`
}

type paypalRedirects struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type paypalError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (c *PayPalClient) Create(ctx context.Context, req PaymentRequest) (Payment, error) {
	body := paypalCreateReq{
		Intent: "sale",
		Payer:  paypalPayer{PaymentMethod: "paypal"},
		Transactions: []paypalTransaction{{
			Amount:      paypalAmount{Total: req.Total, Currency: req.Currency},
			Description: req.Description,
		}},
		RedirectURLs: paypalRedirects{ReturnURL: req.ReturnURL, CancelURL: req.CancelURL},
	}
	return c.do(ctx, http.MethodPost, "/v1/payments/payment", body, "create")
}

func (c *PayPalClient) Find(ctx context.Context, paymentID string) (Payment, error) {
	p, err := c.do(ctx, http.MethodGet, "/v1/payments/payment/"+url.PathEscape(paymentID), nil, "find")
	if err != nil {
		// A lookup failure is a communication problem, not a decline.
		var rej *RejectedError
		if errors.As(err, &rej) {
			return Payment{}, &ProviderError{Op: "find", Err: errors.New(rej.Detail)}
		}
		return Payment{}, err
	}
	return p, nil
}

func (c *PayPalClient) Execute(ctx context.Context, paymentID, payerID string) (Payment, error) {
	body := map[string]string{"payer_id": payerID}
	path := "/v1/payments/payment/" + url.PathEscape(paymentID) + "/execute"
	return c.do(ctx, http.MethodPost, path, body, "execute")
}

func (c *PayPalClient) do(ctx context.Context, method, path string, body any, op string) (Payment, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return Payment{}, &ProviderError{Op: op, Err: err}
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Payment{}, &ProviderError{Op: op, Err: err}
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return Payment{}, &ProviderError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Payment{}, &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Payment{}, &ProviderError{Op: op, Err: err}
	}

	if resp.StatusCode >= 400 {
		var pe paypalError
		_ = json.Unmarshal(raw, &pe)
		detail := pe.Message
		if detail == "" {
			detail = fmt.Sprintf("%s status %d", op, resp.StatusCode)
		}
		return Payment{}, &RejectedError{Detail: detail}
	}

	var p Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payment{}, &ProviderError{Op: op, Err: err}
	}
	return p, nil
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token status %d", resp.StatusCode)
	}

	var tr tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	c.token = tr.AccessToken
	// refresh a minute early
	c.tokenExp = time.Now().Add(time.Duration(tr.ExpiresIn-60) * time.Second)
	return c.token, nil
}
