// Package payment is the client for the hosted payment-order gateway:
// order creation against the Razorpay REST API and HMAC verification of
// payment callbacks.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.razorpay.com"
	defaultTimeout = 10 * time.Second

	// Currency is the only currency the gateway account is configured for.
	Currency = "INR"
)

// ErrInvalidAmount rejects orders for zero or negative amounts before any
// upstream call is made.
var ErrInvalidAmount = errors.New("invalid amount")

// UpstreamError wraps a non-2xx response from the gateway.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}

// Order is a created payment order. Amount is in minor currency units
// (paise).
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// Client talks to the payment gateway. The HTTP client carries a timeout so
// a dead upstream can't leave a request pending indefinitely.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(keyID, keySecret, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// KeyID returns the publishable key the browser checkout needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// VerifyPayment checks a callback signature against this client's secret.
func (c *Client) VerifyPayment(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, c.keySecret)
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrder creates a payment order for an amount in major units. Amounts
// that are zero or negative fail with ErrInvalidAmount; upstream failures
// surface as *UpstreamError.
func (c *Client) CreateOrder(ctx context.Context, amount float64) (Order, error) {
	if amount <= 0 {
		return Order{}, ErrInvalidAmount
	}

	reqBody := createOrderRequest{
		Amount:         int64(math.Round(amount * 100)), // paise
		Currency:       Currency,
		Receipt:        fmt.Sprintf("rcpt_%d", time.Now().UnixMilli()),
		PaymentCapture: 1,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Order{}, fmt.Errorf("encode order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Order{}, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.ErrorContext(ctx, "Order creation failed upstream",
			"status_code", resp.StatusCode,
			"amount_minor", reqBody.Amount)
		return Order{}, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out createOrderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Order{}, fmt.Errorf("decode gateway response: %w", err)
	}

	slog.InfoContext(ctx, "Payment order created",
		"order_id", out.ID,
		"amount_minor", out.Amount,
		"currency", out.Currency)

	return Order{ID: out.ID, Amount: out.Amount, Currency: out.Currency}, nil
}
