package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/importlens/backend/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	maxAttempts    = 3
	maxBodyBytes   = 1 << 20
)

// Client fetches the official USD selling rate from a DolarApi-compatible service
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
	backoff     func(attempt int) time.Duration
}

// NewClient creates a new FX rate client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// The rate is cached upstream of this client, so a refresh happens at
	// most a few times per hour. 1 request/sec with a small burst is plenty.
	limiter := rate.NewLimiter(rate.Limit(1), 3)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		backoff:     exponentialBackoff,
	}
}

// SetDebug enables or disables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the delay before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// waitBackoff pauses before the next attempt, returning early with the
// context error when ctx ends first.
func (c *Client) waitBackoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "ImportLens/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	return resp, nil
}

// FetchRate returns the current official USD rate. All failures wrap
// domain.ErrRateUnavailable.
func (c *Client) FetchRate(ctx context.Context) (*domain.FxQuote, error) {
	reqURL := fmt.Sprintf("%s/v1/dolares/oficial", c.baseURL)
	if c.debug {
		log.Printf("[FX] Fetching rate from %s", reqURL)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrRateUnavailable, err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			log.Printf("[FX] Request error (attempt %d): %v", attempt, err)
			lastErr = err
			if c.waitBackoff(ctx, attempt) != nil {
				break
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: read body: %v", domain.ErrRateUnavailable, readErr)
			if c.waitBackoff(ctx, attempt) != nil {
				break
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			log.Printf("[FX] API error (attempt %d) - Status: %d", attempt, resp.StatusCode)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrRateUnavailable, resp.StatusCode)
			// Client errors other than throttling will not improve on retry
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, lastErr
			}
			if c.waitBackoff(ctx, attempt) != nil {
				break
			}
			continue
		}

		var payload dolarResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Printf("[FX] JSON decode error: %v", err)
			return nil, fmt.Errorf("%w: decode response: %v", domain.ErrRateUnavailable, err)
		}

		quote, err := MapToQuote(&payload)
		if err != nil {
			return nil, err
		}

		if c.debug {
			log.Printf("[FX] %s %s venta=%s (updated %s)", quote.Source, quote.BaseCurrency, quote.Rate, payload.UpdatedAt)
		}
		return quote, nil
	}

	log.Printf("[FX] All retries failed: %v", lastErr)
	return nil, lastErr
}
