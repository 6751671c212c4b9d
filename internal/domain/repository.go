package domain

import (
	"context"
	"time"
)

// CacheRepository is a byte-oriented cache with TTL
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PageSignalProvider fetches or renders a page and returns its raw signals.
// Failures must wrap ErrFetchFailure.
type PageSignalProvider interface {
	Fetch(ctx context.Context, url string) (*PageSignals, error)
}

// RateSource returns the current upstream exchange rate.
type RateSource interface {
	FetchRate(ctx context.Context) (*FxQuote, error)
}

// CatalogSource loads the nomenclator catalog at process start.
type CatalogSource interface {
	Load(ctx context.Context) ([]NCMEntry, error)
}
