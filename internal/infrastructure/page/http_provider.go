package page

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/importlens/backend/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// MaxBodyBytes caps how much of a product page is read
	MaxBodyBytes = 8 << 20

	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultAcceptLanguage = "es-AR,es;q=0.9,en;q=0.8,pt;q=0.7"
	defaultFetchTimeout   = 20 * time.Second
)

// HTTPProviderConfig configures the plain HTTP page fetcher
type HTTPProviderConfig struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	// RatePerSecond and Burst bound requests per marketplace host.
	RatePerSecond float64
	Burst         int
}

// HTTPProvider fetches product pages over HTTP and harvests their signals
type HTTPProvider struct {
	httpClient     *http.Client
	userAgent      string
	acceptLanguage string
	limit          rate.Limit
	burst          int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	now func() time.Time
}

// NewHTTPProvider creates a new HTTP page provider
func NewHTTPProvider(config HTTPProviderConfig) *HTTPProvider {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	acceptLanguage := config.AcceptLanguage
	if acceptLanguage == "" {
		acceptLanguage = defaultAcceptLanguage
	}
	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPProvider{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent:      userAgent,
		acceptLanguage: acceptLanguage,
		limit:          limit,
		burst:          burst,
		limiters:       make(map[string]*rate.Limiter),
		now:            time.Now,
	}
}

func (p *HTTPProvider) limiterFor(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, ok := p.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(p.limit, p.burst)
		p.limiters[host] = limiter
	}
	return limiter
}

// Fetch retrieves the page and harvests its signals. Every failure wraps
// domain.ErrFetchFailure.
func (p *HTTPProvider) Fetch(ctx context.Context, pageURL string) (*domain.PageSignals, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}

	if err := p.limiterFor(strings.ToLower(u.Hostname())).Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrFetchFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrFetchFailure, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", p.acceptLanguage)

	start := p.now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("[FETCH] Request error for %s: %v", pageURL, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[FETCH] %s returned status %d", pageURL, resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrFetchFailure, err)
	}
	if len(body) > MaxBodyBytes {
		log.Printf("[FETCH] %s exceeds %d bytes, truncating", pageURL, MaxBodyBytes)
		body = body[:MaxBodyBytes]
	}

	log.Printf("[FETCH] %s: %d bytes in %v", pageURL, len(body), p.now().Sub(start))

	// Report the final URL after redirects so relative links resolve correctly
	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return Harvest(finalURL, string(body), p.now())
}
