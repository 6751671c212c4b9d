package page

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/importlens/backend/internal/domain"
)

// CachingProvider serves page signals from a cache, falling through to the
// wrapped provider on a miss. Cache failures never fail a fetch.
type CachingProvider struct {
	next  domain.PageSignalProvider
	cache domain.CacheRepository
	ttl   time.Duration
}

// NewCachingProvider wraps next with a signals cache
func NewCachingProvider(next domain.PageSignalProvider, cache domain.CacheRepository, ttl time.Duration) *CachingProvider {
	return &CachingProvider{next: next, cache: cache, ttl: ttl}
}

func cacheKey(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return "signals:" + hex.EncodeToString(sum[:])
}

// Fetch returns cached signals when present, otherwise fetches and stores them
func (p *CachingProvider) Fetch(ctx context.Context, pageURL string) (*domain.PageSignals, error) {
	if p.cache == nil || p.ttl <= 0 {
		return p.next.Fetch(ctx, pageURL)
	}

	key := cacheKey(pageURL)
	if cached, err := p.cache.Get(ctx, key); err == nil {
		var signals domain.PageSignals
		if err := json.Unmarshal(cached, &signals); err == nil {
			log.Printf("[FETCH] Cache hit for %s", pageURL)
			return &signals, nil
		}
		log.Printf("[FETCH] Discarding undecodable cache entry for %s", pageURL)
	} else if !errors.Is(err, domain.ErrCacheMiss) {
		log.Printf("[FETCH] Cache read error: %v", err)
	}

	signals, err := p.next.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(signals); err != nil {
		log.Printf("[FETCH] Failed to encode signals for cache: %v", err)
	} else if err := p.cache.Set(ctx, key, encoded, p.ttl); err != nil {
		log.Printf("[FETCH] Cache write error: %v", err)
	}
	return signals, nil
}
