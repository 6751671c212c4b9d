package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/importlens/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oficialBody = `{"moneda":"USD","casa":"oficial","nombre":"Oficial","compra":1015.5,"venta":1055.5,"fechaActualizacion":"2026-03-01T15:00:00.000Z"}`

func newTestClient(baseURL string) *Client {
	client := NewClient(baseURL, time.Second)
	client.backoff = func(int) time.Duration { return 0 }
	return client
}

func TestNewClient(t *testing.T) {
	client := NewClient("https://dolarapi.example.com/", 0)

	assert.NotNil(t, client)
	assert.Equal(t, "https://dolarapi.example.com", client.baseURL)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)

	client.SetDebug(true)
	assert.True(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestFetchRate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/dolares/oficial", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(oficialBody))
	}))
	defer server.Close()

	quote, err := newTestClient(server.URL).FetchRate(context.Background())

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1055.5").Equal(quote.Rate))
	assert.Equal(t, "USD", quote.BaseCurrency)
	assert.Equal(t, "ARS", quote.QuoteCurrency)
	assert.Equal(t, "dolarapi:oficial", quote.Source)
}

func TestFetchRate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(oficialBody))
	}))
	defer server.Close()

	quote, err := newTestClient(server.URL).FetchRate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "dolarapi:oficial", quote.Source)
}

func TestFetchRate_AllRetriesFail(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	quote, err := newTestClient(server.URL).FetchRate(context.Background())

	assert.Nil(t, quote)
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestFetchRate_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchRate(context.Background())

	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRate_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"venta":`},
		{name: "zero selling rate", body: `{"casa":"oficial","venta":0}`},
		{name: "missing selling rate", body: `{"casa":"oficial"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).FetchRate(context.Background())

			assert.ErrorIs(t, err, domain.ErrRateUnavailable)
		})
	}
}

func TestFetchRate_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(oficialBody))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).FetchRate(ctx)

	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestFetchRate_BackoffStopsAtDeadline(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	client.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.FetchRate(ctx)

	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}
