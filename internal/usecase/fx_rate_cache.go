package usecase

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/importlens/backend/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	defaultFxRefreshTimeout = 10 * time.Second
	fxRefreshKey            = "fx-rate"
)

// FxRateCacheConfig holds configuration for the exchange rate cache
type FxRateCacheConfig struct {
	// RefreshTimeout bounds a single upstream fetch.
	RefreshTimeout time.Duration
	// QuoteCurrency labels snapshots whose source does not report one.
	QuoteCurrency string
}

// FxRateCache holds the process-wide exchange rate. Refreshes are
// single-flight: concurrent callers that find the snapshot expired share one
// upstream fetch. The fetch runs detached from any caller's context, so a
// cancelled caller abandons its wait without aborting the refresh.
type FxRateCache struct {
	source         domain.RateSource
	refreshTimeout time.Duration
	quoteCurrency  string
	now            func() time.Time

	snapshot atomic.Pointer[domain.FxSnapshot]
	group    singleflight.Group
}

// NewFxRateCache creates an empty cache backed by source.
func NewFxRateCache(source domain.RateSource, config FxRateCacheConfig) *FxRateCache {
	timeout := config.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultFxRefreshTimeout
	}

	return &FxRateCache{
		source:         source,
		refreshTimeout: timeout,
		quoteCurrency:  config.QuoteCurrency,
		now:            time.Now,
	}
}

// GetRate returns the cached snapshot while it is fresh, otherwise refreshes
// it with expiry now+maxAge. When the refresh fails and a stale snapshot
// exists, the stale snapshot is returned unchanged. Without any snapshot the
// failure wraps domain.ErrRateUnavailable.
func (c *FxRateCache) GetRate(ctx context.Context, maxAge time.Duration) (domain.FxSnapshot, error) {
	if current := c.snapshot.Load(); current != nil && current.FreshAt(c.now()) {
		return *current, nil
	}

	ch := c.group.DoChan(fxRefreshKey, func() (interface{}, error) {
		return c.refresh(maxAge)
	})

	select {
	case <-ctx.Done():
		return domain.FxSnapshot{}, fmt.Errorf("waiting for exchange rate: %w", ctx.Err())
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(domain.FxSnapshot), nil
		}
		if stale := c.snapshot.Load(); stale != nil {
			log.Printf("[FX] Refresh failed, serving stale rate from %s (updated %s): %v",
				stale.Source, stale.LastUpdatedAt.Format(time.RFC3339), res.Err)
			return *stale, nil
		}
		return domain.FxSnapshot{}, res.Err
	}
}

// refresh performs the upstream fetch. It re-checks freshness first so a
// caller that lost the race against a just-finished refresh does not fetch
// again.
func (c *FxRateCache) refresh(maxAge time.Duration) (domain.FxSnapshot, error) {
	if current := c.snapshot.Load(); current != nil && current.FreshAt(c.now()) {
		return *current, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	quote, err := c.source.FetchRate(ctx)
	if err != nil {
		return domain.FxSnapshot{}, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	if quote == nil || !quote.Rate.IsPositive() {
		return domain.FxSnapshot{}, fmt.Errorf("%w: upstream returned no usable rate", domain.ErrRateUnavailable)
	}

	now := c.now()
	quoteCurrency := quote.QuoteCurrency
	if quoteCurrency == "" {
		quoteCurrency = c.quoteCurrency
	}
	snapshot := domain.FxSnapshot{
		Rate:          quote.Rate,
		BaseCurrency:  quote.BaseCurrency,
		QuoteCurrency: quoteCurrency,
		Source:        quote.Source,
		LastUpdatedAt: now,
		ExpiresAt:     now.Add(maxAge),
	}
	c.snapshot.Store(&snapshot)

	log.Printf("[FX] Rate refreshed: 1 %s = %s %s (source: %s, expires %s)",
		snapshot.BaseCurrency, snapshot.Rate.String(), snapshot.QuoteCurrency,
		snapshot.Source, snapshot.ExpiresAt.Format(time.RFC3339))
	return snapshot, nil
}

// GetSnapshot returns the last known snapshot without blocking. The snapshot
// may be stale; ok is false when no refresh has succeeded yet.
func (c *FxRateCache) GetSnapshot() (domain.FxSnapshot, bool) {
	current := c.snapshot.Load()
	if current == nil {
		return domain.FxSnapshot{}, false
	}
	return *current, true
}
