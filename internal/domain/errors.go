package domain

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedSource is returned when a URL does not belong to a known marketplace
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrFetchFailure is returned when page signals cannot be retrieved
	ErrFetchFailure = errors.New("page fetch failed")
	// ErrRateUnavailable is returned when no usable exchange rate exists
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
	// ErrNotFound is returned when a catalog lookup has no result
	ErrNotFound = errors.New("not found")
	// ErrNomenclatorUnavailable is returned when the catalog cannot be loaded
	ErrNomenclatorUnavailable = errors.New("nomenclator unavailable")
	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// Failure kinds reported to callers.
const (
	KindUnsupportedSource = "unsupported_source"
	KindFetchFailure      = "fetch_failure"
	KindRateUnavailable   = "rate_unavailable"
	KindInvalidRequest    = "invalid_request"
	KindNotFound          = "not_found"
	KindTimeout           = "timeout"
	KindInternal          = "internal"
)

// KindOf classifies an error into a stable failure kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrUnsupportedSource):
		return KindUnsupportedSource
	case errors.Is(err, ErrFetchFailure):
		return KindFetchFailure
	case errors.Is(err, ErrRateUnavailable):
		return KindRateUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

// IsRetryable reports whether the caller may retry the operation with backoff.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindFetchFailure, KindRateUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}
