// Package jobclient is the HTTP client the swipe terminal uses to reach the API service.
package jobclient

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

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/api/dto"
)

// APIError is a non-2xx answer from the API service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ListJobs returns every open job in category, following page cursors.
// The wildcard category lists all jobs.
func (c *Client) ListJobs(ctx context.Context, category string) ([]domain.Job, error) {
	var jobs []domain.Job
	cursor := ""

	for {
		query := url.Values{}
		if !domain.IsWildcardCategory(category) {
			query.Set("category", category)
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		path := "/api/v1/jobs"
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		var page dto.ListJobsResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}

		for _, j := range page.Jobs {
			job, err := j.ToDomain()
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		}

		if page.NextCursor == "" {
			return jobs, nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var resp dto.CategoriesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// RecordDecision stores a swipe and returns the server's message
func (c *Client) RecordDecision(ctx context.Context, jobID, userID string, action domain.Action) (string, error) {
	req := dto.SwipeRequest{JobID: jobID, UserID: userID, Action: string(action)}

	var resp dto.SwipeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/swipes", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// NotifyApproval asks the server to approve a wallet payment
func (c *Client) NotifyApproval(ctx context.Context, paymentID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/payments/"+url.PathEscape(paymentID)+"/approve", nil, nil)
}

// NotifyCompletion asks the server to complete a wallet payment with its transaction id
func (c *Client) NotifyCompletion(ctx context.Context, paymentID, txID string) error {
	req := dto.CompletePaymentRequest{TxID: txID}
	return c.do(ctx, http.MethodPost, "/api/v1/payments/"+url.PathEscape(paymentID)+"/complete", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("API call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the gin.H{"error": ...} body, falling back to the raw text
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
