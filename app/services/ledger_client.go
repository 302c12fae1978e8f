package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// LedgerError is a failed ledger call after retries were exhausted (or a
// permanent status was seen). StatusCode lets callers tell transient server
// faults from permanent client faults in logs; 0 means a transport error.
type LedgerError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *LedgerError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("ledger: %s %s failed: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("ledger: %s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Retryable reports whether the final failure was a server-side fault.
func (e *LedgerError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 0
}

// CreateRunInput describes one billable unit of work to register in the ledger
type CreateRunInput struct {
	OrganizationID string  `json:"organization_id"`
	AppID          string  `json:"app_id"`
	ServiceName    string  `json:"service_name"`
	TaskName       string  `json:"task_name"`
	ParentRunID    *string `json:"parent_run_id,omitempty"`
}

// RunRecord mirrors the ledger's run resource; the id is an opaque token
type RunRecord struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organization_id"`
	AppID          string  `json:"app_id"`
	ServiceName    string  `json:"service_name"`
	TaskName       string  `json:"task_name"`
	Status         string  `json:"status"`
	ParentRunID    *string `json:"parent_run_id,omitempty"`
}

// CostItem is one cost line attached to a run. Quantity is the raw token
// count; the ledger owns price computation, never this service.
type CostItem struct {
	CostName string `json:"cost_name"`
	Quantity int    `json:"quantity"`
}

// LedgerClient talks to the external run/cost ledger. Every call goes through
// doRequest, the single place retry logic lives.
type LedgerClient struct {
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
	MaxAttempts  int
	RetryBackoff time.Duration
}

// NewLedgerClient creates a ledger client with the given retry policy.
// maxAttempts counts the first try; 4 means one call plus three retries.
func NewLedgerClient(baseURL, apiKey string, timeout time.Duration, maxAttempts int, retryBackoff time.Duration) *LedgerClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxAttempts < 1 {
		maxAttempts = 4
	}
	if retryBackoff <= 0 {
		retryBackoff = 500 * time.Millisecond
	}
	return &LedgerClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		HTTPClient:   &http.Client{Timeout: timeout},
		MaxAttempts:  maxAttempts,
		RetryBackoff: retryBackoff,
	}
}

// CreateRun registers a new run and returns the ledger's record for it
func (c *LedgerClient) CreateRun(ctx context.Context, in CreateRunInput) (*RunRecord, error) {
	var run RunRecord
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/runs", in, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateRun moves a run to the given status
func (c *LedgerClient) UpdateRun(ctx context.Context, runID, status string) error {
	body := map[string]string{"status": status}
	return c.doRequest(ctx, http.MethodPatch, "/api/v1/runs/"+runID, body, nil)
}

// AddCosts attaches cost line items to a run
func (c *LedgerClient) AddCosts(ctx context.Context, runID string, items []CostItem) error {
	body := map[string]any{"items": items}
	return c.doRequest(ctx, http.MethodPost, "/api/v1/runs/"+runID+"/costs", body, nil)
}

// GetRun fetches a run by id
func (c *LedgerClient) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var run RunRecord
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/runs/"+runID, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// doRequest performs one ledger call with the shared retry policy: 5xx (and
// transport errors) are retryable up to MaxAttempts total attempts with
// exponential backoff; any other non-2xx status fails immediately. A warning
// naming the attempt number and limit is logged before each retry.
func (c *LedgerClient) doRequest(ctx context.Context, method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("ledger: failed to encode %s %s payload: %w", method, path, err)
		}
	}

	backoff := c.RetryBackoff
	var lastStatus int
	var lastMessage string

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		status, respBody, err := c.attempt(ctx, method, path, body)
		if err == nil && status >= 200 && status < 300 {
			if out != nil {
				if err := json.Unmarshal(respBody, out); err != nil {
					return &LedgerError{Method: method, Path: path, StatusCode: status,
						Message: fmt.Sprintf("failed to decode response: %v", err)}
				}
			}
			return nil
		}

		lastStatus = status
		lastMessage = strings.TrimSpace(string(respBody))
		if err != nil {
			lastMessage = err.Error()
		}

		retryable := err != nil || status >= 500
		if !retryable {
			return &LedgerError{Method: method, Path: path, StatusCode: status, Message: lastMessage}
		}

		if attempt == c.MaxAttempts {
			break
		}

		log.Printf("WARN: ledger %s %s attempt %d/%d failed (status=%d), retrying in %s",
			method, path, attempt, c.MaxAttempts, status, backoff)

		select {
		case <-ctx.Done():
			return &LedgerError{Method: method, Path: path, StatusCode: lastStatus, Message: ctx.Err().Error()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return &LedgerError{Method: method, Path: path, StatusCode: lastStatus, Message: lastMessage}
}

// attempt performs a single HTTP exchange and returns the status and body.
// A transport-level failure returns a non-nil error with status 0.
func (c *LedgerClient) attempt(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, respBody, nil
}
