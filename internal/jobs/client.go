package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client calls the CRM API on behalf of the maintenance jobs. Every call is
// bounded by a timeout; on timeout the caller treats the run as a
// recoverable failure and returns control to its scheduler.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	probeTimeout time.Duration
	callTimeout  time.Duration
}

// NewClient creates a CRM API client. probeTimeout bounds the liveness
// probe; callTimeout bounds mutation-style calls.
func NewClient(baseURL string, probeTimeout, callTimeout time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{},
		probeTimeout: probeTimeout,
		callTimeout:  callTimeout,
	}
}

// RestockOutcome is the wire shape of the restock mutation result.
type RestockOutcome struct {
	Success         bool               `json:"success"`
	Message         string             `json:"message"`
	UpdatedProducts []RestockedProduct `json:"updated_products"`
}

// RestockedProduct reports one product touched by a restock run.
type RestockedProduct struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock int32  `json:"stock"`
}

// OrderReminder is the wire shape of one order in the reminder scan.
type OrderReminder struct {
	ID            string `json:"id"`
	OrderDate     string `json:"order_date"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// Hello probes the API liveness endpoint. A nil return means the endpoint
// answered with a well-formed hello payload.
func (c *Client) Hello(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/hello", nil)
	if err != nil {
		return fmt.Errorf("failed to build hello request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hello request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hello returned HTTP %d", resp.StatusCode)
	}
	var payload struct {
		Hello string `json:"hello"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Hello == "" {
		return fmt.Errorf("hello returned an unexpected payload")
	}
	return nil
}

// RestockLowStock triggers the store-side low-stock replenishment.
func (c *Client) RestockLowStock(ctx context.Context) (*RestockOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/products/restock", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build restock request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("restock request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("restock returned HTTP %d", resp.StatusCode)
	}
	var outcome RestockOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("failed to decode restock response: %w", err)
	}
	return &outcome, nil
}

// OrdersSince fetches all orders with order_date >= since (inclusive).
func (c *Client) OrdersSince(ctx context.Context, since time.Time) ([]OrderReminder, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	endpoint := c.baseURL + "/api/v1/orders?since=" + url.QueryEscape(since.Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build orders request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("orders request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("orders returned HTTP %d", resp.StatusCode)
	}
	var orders []OrderReminder
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders response: %w", err)
	}
	return orders, nil
}
