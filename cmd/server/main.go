package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/importlens/backend/config"
	httpDelivery "github.com/importlens/backend/internal/delivery/http"
	"github.com/importlens/backend/internal/domain"
	"github.com/importlens/backend/internal/infrastructure/cache"
	"github.com/importlens/backend/internal/infrastructure/fx"
	"github.com/importlens/backend/internal/infrastructure/nomenclator"
	"github.com/importlens/backend/internal/infrastructure/page"
	"github.com/importlens/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting ImportLens Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s", cfg.Cache.Type)

	ctx := context.Background()
	var closers []io.Closer

	// Initialize infrastructure dependencies
	pageCache, err := newCache(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	closers = append(closers, pageCache)

	fetcher, err := newFetcher(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize page fetcher: %v", err)
	}
	if c, ok := fetcher.(io.Closer); ok {
		closers = append(closers, c)
	}
	provider := page.NewCachingProvider(fetcher, pageCache, cfg.Fetcher.CacheTTL)
	log.Printf("Fetcher: %s (timeout %s, page cache TTL %s)", cfg.Fetcher.Type, cfg.Fetcher.Timeout, cfg.Fetcher.CacheTTL)

	entries, err := loadCatalog(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load NCM catalog: %v", err)
	}
	index := usecase.NewNomenclatorIndex(entries)
	index.SetFuzzyDistance(cfg.Classifier.FuzzyDistance)
	log.Printf("Nomenclator: %d entries from %s source", index.Len(), cfg.Nomenclator.Source)

	fxClient := fx.NewClient(cfg.FX.BaseURL, cfg.FX.Timeout)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		fxClient.SetDebug(true)
		log.Printf("FX client debug mode enabled")
	}
	log.Printf("FX source: %s (max age %s, reference %s, strict=%v)",
		cfg.FX.BaseURL, cfg.FX.MaxAge, cfg.FX.ReferenceCurrency, cfg.FX.Strict)

	// Initialize usecase layer
	rates := usecase.NewFxRateCache(fxClient, usecase.FxRateCacheConfig{
		RefreshTimeout: cfg.FX.Timeout,
		QuoteCurrency:  fx.QuoteCurrency,
	})

	normalizer := usecase.NewPriceNormalizer(rates, usecase.PriceNormalizerConfig{
		ReferenceCurrency: cfg.FX.ReferenceCurrency,
		RateMaxAge:        cfg.FX.MaxAge,
	})

	classifier := usecase.NewClassifier(index, usecase.ClassifierConfig{
		MaxCandidates:      cfg.Classifier.MaxCandidates,
		MaxQueryTerms:      cfg.Classifier.MaxQueryTerms,
		EnableDebugLogging: cfg.Classifier.Debug,
	})

	log.Printf("Classifier: candidates=%d, terms=%d, debug=%v",
		cfg.Classifier.MaxCandidates,
		cfg.Classifier.MaxQueryTerms,
		cfg.Classifier.Debug)

	analysisService := usecase.NewAnalysisService(provider, normalizer, classifier, usecase.AnalysisServiceConfig{
		FetchTimeout:     cfg.Fetcher.Timeout,
		StrictConversion: cfg.FX.Strict,
	})

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(analysisService, index, rates)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	log.Printf("Received %s, shutting down", s)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("Close error: %v", err)
		}
	}
	log.Printf("Server stopped")
}

func newCache(ctx context.Context, cfg *config.Config) (cacheCloser, error) {
	switch cfg.Cache.Type {
	case "redis":
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL, "importlens:")
	default:
		return cache.NewMemoryCache(), nil
	}
}

// cacheCloser is a page cache that owns background resources.
type cacheCloser interface {
	domain.CacheRepository
	io.Closer
}

func newFetcher(cfg *config.Config) (domain.PageSignalProvider, error) {
	switch cfg.Fetcher.Type {
	case "browser":
		return page.NewBrowserProvider(page.BrowserProviderConfig{
			Headless:  cfg.Fetcher.Headless,
			Timeout:   cfg.Fetcher.Timeout,
			UserAgent: cfg.Fetcher.UserAgent,
		})
	default:
		return page.NewHTTPProvider(page.HTTPProviderConfig{
			Timeout:       cfg.Fetcher.Timeout,
			UserAgent:     cfg.Fetcher.UserAgent,
			RatePerSecond: cfg.Fetcher.RatePerSecond,
			Burst:         cfg.Fetcher.Burst,
		}), nil
	}
}

func loadCatalog(ctx context.Context, cfg *config.Config) ([]domain.NCMEntry, error) {
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.Nomenclator.Source {
	case "file":
		return nomenclator.NewFileSource(cfg.Nomenclator.Path).Load(loadCtx)
	case "postgres":
		source, err := nomenclator.NewPostgresSource(loadCtx, cfg.Nomenclator.DatabaseURL, cfg.Nomenclator.Table)
		if err != nil {
			return nil, err
		}
		defer source.Close()
		return source.Load(loadCtx)
	default:
		return nomenclator.NewEmbeddedSource().Load(loadCtx)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
