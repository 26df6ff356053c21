package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TerminalClient talks to the card terminal service over its JSON API.
type TerminalClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewTerminalClient(baseURL, apiKey string) *TerminalClient {
	return &TerminalClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Capture is one card charge within a checkout.
type Capture struct {
	Amount    decimal.Decimal `json:"amount"`
	CardLast4 string          `json:"card_last4"`
}

// Checkout is the terminal's view of a payment or refund request.
type Checkout struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Captured  decimal.Decimal `json:"amount_captured"`
	Fee       decimal.Decimal `json:"fee"`
	CardLast4 string          `json:"card_last4,omitempty"`
	Captures  []Capture       `json:"captures,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func (c *TerminalClient) CreateCheckout(ctx context.Context, ref uuid.UUID, amount decimal.Decimal, description string) (*Checkout, error) {
	body := map[string]interface{}{"reference": ref.String(), "amount": amount, "description": description}
	var out Checkout
	return &out, c.do(ctx, http.MethodPost, "/checkouts", body, &out)
}

func (c *TerminalClient) GetCheckout(ctx context.Context, id string) (*Checkout, error) {
	var out Checkout
	return &out, c.do(ctx, http.MethodGet, "/checkouts/"+id, nil, &out)
}

func (c *TerminalClient) CancelCheckout(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/checkouts/"+id+"/cancel", nil, nil)
}

func (c *TerminalClient) CreateRefund(ctx context.Context, ref uuid.UUID, checkoutID string, amount decimal.Decimal) (*Checkout, error) {
	body := map[string]interface{}{"reference": ref.String(), "checkout_id": checkoutID, "amount": amount}
	var out Checkout
	return &out, c.do(ctx, http.MethodPost, "/refunds", body, &out)
}

func (c *TerminalClient) GetRefund(ctx context.Context, id string) (*Checkout, error) {
	var out Checkout
	return &out, c.do(ctx, http.MethodGet, "/refunds/"+id, nil, &out)
}

func (c *TerminalClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: terminal returned %d %s", method, path, resp.StatusCode, e.Message)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ── Status Normaliser ─────────────────────────────────────────────────────────
// Maps terminal status strings to our payment Status.

func NormaliseStatus(terminalStatus string) Status {
	switch strings.ToUpper(terminalStatus) {
	case "SUCCESSFUL", "PAID", "COMPLETED":
		return StatusCompleted
	case "FAILED", "CANCELLED", "CANCELED", "EXPIRED", "DECLINED":
		return StatusCancelled
	default:
		return StatusPending
	}
}
