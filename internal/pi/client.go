package pi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.minepi.com/v2"

// APIError is a non-2xx answer from the Pi Platform API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pi platform api returned %d: %s", e.StatusCode, e.Body)
}

type PaymentStatus struct {
	DeveloperApproved   bool `json:"developer_approved"`
	TransactionVerified bool `json:"transaction_verified"`
	DeveloperCompleted  bool `json:"developer_completed"`
	Cancelled           bool `json:"cancelled"`
	UserCancelled       bool `json:"user_cancelled"`
}

type Transaction struct {
	TxID     string `json:"txid"`
	Verified bool   `json:"verified"`
	Link     string `json:"_link"`
}

// Payment mirrors the PaymentDTO returned by the Pi Platform API
type Payment struct {
	Identifier  string          `json:"identifier"`
	UserUID     string          `json:"user_uid"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo"`
	Metadata    map[string]any  `json:"metadata"`
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	Direction   string          `json:"direction"`
	Network     string          `json:"network"`
	CreatedAt   string          `json:"created_at"`
	Status      PaymentStatus   `json:"status"`
	Transaction *Transaction    `json:"transaction"`
}

// MetadataString returns a string metadata value, or "" when absent
func (p *Payment) MetadataString(key string) string {
	if p.Metadata == nil {
		return ""
	}
	s, _ := p.Metadata[key].(string)
	return s
}

// Client talks to the Pi Platform API with a server API key
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Approve tells the Pi servers the app is ready to receive the payment
func (c *Client) Approve(ctx context.Context, paymentID string) (*Payment, error) {
	return c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/approve", nil)
}

// Complete confirms the payment once the blockchain transaction is known
func (c *Client) Complete(ctx context.Context, paymentID, txID string) (*Payment, error) {
	body := map[string]string{"txid": txID}
	return c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/complete", body)
}

func (c *Client) Get(ctx context.Context, paymentID string) (*Payment, error) {
	return c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*Payment, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pi platform request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Pi platform call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var payment Payment
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment: %w", err)
	}

	return &payment, nil
}
