package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedgerClient(baseURL string) *LedgerClient {
	return NewLedgerClient(baseURL, "test-key", 5*time.Second, 4, time.Millisecond)
}

func TestLedgerClientCreateRunSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/runs", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var in CreateRunInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "org-1", in.OrganizationID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(RunRecord{
			ID:             "run-123",
			OrganizationID: in.OrganizationID,
			AppID:          in.AppID,
			ServiceName:    in.ServiceName,
			TaskName:       in.TaskName,
			Status:         "running",
		})
	}))
	defer server.Close()

	client := newTestLedgerClient(server.URL)
	run, err := client.CreateRun(context.Background(), CreateRunInput{
		OrganizationID: "org-1",
		AppID:          "app-1",
		ServiceName:    "copyforge",
		TaskName:       "generate_email",
	})

	require.NoError(t, err)
	assert.Equal(t, "run-123", run.ID)
	assert.Equal(t, "running", run.Status)
}

func TestLedgerClientRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(RunRecord{ID: "run-456", Status: "running"})
	}))
	defer server.Close()

	client := newTestLedgerClient(server.URL)
	run, err := client.CreateRun(context.Background(), CreateRunInput{OrganizationID: "org-1"})

	require.NoError(t, err)
	assert.Equal(t, "run-456", run.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLedgerClientDoesNotRetryClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid payload"))
	}))
	defer server.Close()

	client := newTestLedgerClient(server.URL)
	err := client.AddCosts(context.Background(), "run-1", []CostItem{{CostName: "openai:gpt-4o:input", Quantity: 100}})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var ledgerErr *LedgerError
	require.ErrorAs(t, err, &ledgerErr)
	assert.Equal(t, http.StatusBadRequest, ledgerErr.StatusCode)
	assert.Equal(t, http.MethodPost, ledgerErr.Method)
	assert.Equal(t, "/api/v1/runs/run-1/costs", ledgerErr.Path)
	assert.False(t, ledgerErr.Retryable())
}

func TestLedgerClientExhaustsAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestLedgerClient(server.URL)
	err := client.UpdateRun(context.Background(), "run-1", "completed")

	require.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))

	var ledgerErr *LedgerError
	require.ErrorAs(t, err, &ledgerErr)
	assert.Equal(t, http.StatusInternalServerError, ledgerErr.StatusCode)
	assert.True(t, ledgerErr.Retryable())
}

func TestLedgerClientTransportErrorIsRetryable(t *testing.T) {
	// Point at a server that is already closed to force transport errors.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewLedgerClient(server.URL, "", time.Second, 2, time.Millisecond)
	_, err := client.GetRun(context.Background(), "run-1")

	require.Error(t, err)
	var ledgerErr *LedgerError
	require.ErrorAs(t, err, &ledgerErr)
	assert.Equal(t, 0, ledgerErr.StatusCode)
	assert.True(t, ledgerErr.Retryable())
}

func TestLedgerClientDecodeFailureIsTerminal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestLedgerClient(server.URL)
	_, err := client.GetRun(context.Background(), "run-1")

	require.Error(t, err)
	// A malformed success body must not trigger retries; the call already
	// happened on the ledger side.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLedgerClientContextCancellationStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewLedgerClient(server.URL, "", time.Second, 4, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.UpdateRun(ctx, "run-1", "completed")
	require.Error(t, err)
}
