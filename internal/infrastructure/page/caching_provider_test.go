package page

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/importlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider counts fetches and returns canned signals
type MockProvider struct {
	calls   int
	signals *domain.PageSignals
	err     error
}

func (m *MockProvider) Fetch(ctx context.Context, pageURL string) (*domain.PageSignals, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	copied := *m.signals
	copied.URL = pageURL
	return &copied, nil
}

// MockCache is a map-backed CacheRepository with switchable failures
type MockCache struct {
	data     map[string][]byte
	getErr   error
	setErr   error
	setCalls int
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func sampleSignals() *domain.PageSignals {
	return &domain.PageSignals{
		HTML:           "<html></html>",
		StructuredData: []string{`{"@type":"Product"}`},
		Meta:           []domain.MetaTag{{Name: "og:title", Content: "Forklift"}},
		FetchedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCachingProvider_HitAfterMiss(t *testing.T) {
	next := &MockProvider{signals: sampleSignals()}
	cache := NewMockCache()
	provider := NewCachingProvider(next, cache, time.Hour)
	ctx := context.Background()

	first, err := provider.Fetch(ctx, "https://www.amazon.com/dp/B0")
	require.NoError(t, err)

	second, err := provider.Fetch(ctx, "https://www.amazon.com/dp/B0")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, first.Meta, second.Meta)
	assert.True(t, first.FetchedAt.Equal(second.FetchedAt))
}

func TestCachingProvider_DistinctURLs(t *testing.T) {
	next := &MockProvider{signals: sampleSignals()}
	provider := NewCachingProvider(next, NewMockCache(), time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := provider.Fetch(ctx, fmt.Sprintf("https://www.amazon.com/dp/B%d", i))
		require.NoError(t, err)
	}

	assert.Equal(t, 3, next.calls)
}

func TestCachingProvider_CacheErrorsDoNotFailFetch(t *testing.T) {
	next := &MockProvider{signals: sampleSignals()}
	cache := NewMockCache()
	cache.getErr = domain.ErrCacheUnavailable
	cache.setErr = domain.ErrCacheUnavailable
	provider := NewCachingProvider(next, cache, time.Hour)

	signals, err := provider.Fetch(context.Background(), "https://www.alibaba.com/p.html")

	require.NoError(t, err)
	assert.Equal(t, "https://www.alibaba.com/p.html", signals.URL)
	assert.Equal(t, 1, cache.setCalls)
}

func TestCachingProvider_CorruptEntryRefetches(t *testing.T) {
	next := &MockProvider{signals: sampleSignals()}
	cache := NewMockCache()
	cache.data[cacheKey("https://www.alibaba.com/p.html")] = []byte("{not json")
	provider := NewCachingProvider(next, cache, time.Hour)

	_, err := provider.Fetch(context.Background(), "https://www.alibaba.com/p.html")

	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestCachingProvider_FetchErrorNotCached(t *testing.T) {
	next := &MockProvider{err: fmt.Errorf("%w: status 503", domain.ErrFetchFailure)}
	cache := NewMockCache()
	provider := NewCachingProvider(next, cache, time.Hour)

	_, err := provider.Fetch(context.Background(), "https://www.amazon.com/dp/B0")

	assert.True(t, errors.Is(err, domain.ErrFetchFailure))
	assert.Equal(t, 0, cache.setCalls)
}

func TestCachingProvider_ZeroTTLBypassesCache(t *testing.T) {
	next := &MockProvider{signals: sampleSignals()}
	cache := NewMockCache()
	provider := NewCachingProvider(next, cache, 0)
	ctx := context.Background()

	_, _ = provider.Fetch(ctx, "https://www.amazon.com/dp/B0")
	_, _ = provider.Fetch(ctx, "https://www.amazon.com/dp/B0")

	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 0, cache.setCalls)
}
