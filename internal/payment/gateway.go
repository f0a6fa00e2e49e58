package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway creates payment orders with the external provider. Order
// mechanics beyond this call are the provider's concern; only the
// opaque order identifier comes back.
type Gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, receipt string) (orderID string, err error)
}

// HTTPGateway talks to a Razorpay-style orders API over HTTPS with
// basic auth (key ID / key secret).
type HTTPGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

// NewHTTPGateway creates a gateway client with a bounded request timeout.
func NewHTTPGateway(baseURL, keyID, keySecret string) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID string `json:"id"`
}

// CreateOrder registers an order for the given amount and returns the
// provider's order identifier.
func (g *HTTPGateway) CreateOrder(ctx context.Context, amountPaise int64, receipt string) (string, error) {
	body, err := json.Marshal(orderRequest{
		Amount:   amountPaise,
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, respBody)
	}

	var order orderResponse
	if err := json.Unmarshal(respBody, &order); err != nil {
		return "", fmt.Errorf("unmarshal gateway response: %w", err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("gateway response missing order id")
	}
	return order.ID, nil
}
