package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/importlens/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

const defaultFetchTimeout = 30 * time.Second

// AnalysisServiceConfig holds configuration for the analysis pipeline
type AnalysisServiceConfig struct {
	// FetchTimeout bounds the page-signal fetch.
	FetchTimeout time.Duration
	// StrictConversion fails the run with ErrRateUnavailable when a foreign
	// price cannot be converted. Otherwise the original currency is kept.
	StrictConversion bool
}

// AnalysisService runs the product intelligence pipeline:
// detect source -> fetch signals -> extract -> {normalize price, classify} -> assemble.
type AnalysisService struct {
	router       *SourceRouter
	fetcher      domain.PageSignalProvider
	extractors   *ExtractorRegistry
	normalizer   *PriceNormalizer
	classifier   *Classifier
	fetchTimeout time.Duration
	strict       bool
	now          func() time.Time
}

// NewAnalysisService creates a new analysis service with dependencies
func NewAnalysisService(
	fetcher domain.PageSignalProvider,
	normalizer *PriceNormalizer,
	classifier *Classifier,
	config AnalysisServiceConfig,
) *AnalysisService {
	fetchTimeout := config.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	return &AnalysisService{
		router:       NewSourceRouter(),
		fetcher:      fetcher,
		extractors:   NewExtractorRegistry(),
		normalizer:   normalizer,
		classifier:   classifier,
		fetchTimeout: fetchTimeout,
		strict:       config.StrictConversion,
		now:          time.Now,
	}
}

// Analyze runs the pipeline for one product URL. It returns either a
// complete output or an error whose kind is given by domain.KindOf.
func (s *AnalysisService) Analyze(ctx context.Context, request *domain.AnalyzeRequest) (*domain.AnalyzeProductOutput, error) {
	if err := validateRequest(request); err != nil {
		return nil, err
	}
	productURL := strings.TrimSpace(request.URL)

	variant := s.router.Detect(productURL)
	if variant == domain.SourceNone {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, productURL)
	}

	extractor, err := s.extractors.For(variant)
	if err != nil {
		return nil, err
	}

	signals, err := s.fetch(ctx, productURL)
	if err != nil {
		return nil, err
	}

	extraction := extractor.Extract(signals)
	log.Printf("[ANALYZE] %s %s: title=%t prices=%d images=%d bullets=%d specs=%d",
		variant, productURL, extraction.Text.Title != "", len(extraction.Prices),
		len(extraction.Images), len(extraction.Text.Bullets), len(extraction.Text.Specs))

	var (
		price          domain.NormalizedPrice
		classification domain.Classification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var convErr error
		price, convErr = s.normalizer.Normalize(gctx, extraction.Prices)
		if convErr != nil {
			if s.strict {
				return convErr
			}
			log.Printf("[ANALYZE] Keeping %s price for %s: %v", price.Currency, productURL, convErr)
		}
		return nil
	})
	g.Go(func() error {
		var classifyErr error
		classification, classifyErr = s.classifier.Classify(gctx, extraction.Text, request.HSHeading)
		return classifyErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.AnalyzeProductOutput{
		RunID:  uuid.NewString(),
		Source: variant,
		URL:    productURL,
		Product: domain.ProductSummary{
			Title:                 extraction.Text.Title,
			RawDescription:        extraction.Text.RawDescription,
			NormalizedDescription: s.classifier.Preprocessor().NormalizeDescription(extraction.Text),
			Price:                 price,
			Images:                extraction.Images,
		},
		Classification: classification,
		AnalyzedAt:     s.now(),
	}, nil
}

// fetch retrieves page signals within the fetch timeout. Every failure is
// reported as domain.ErrFetchFailure.
func (s *AnalysisService) fetch(ctx context.Context, productURL string) (*domain.PageSignals, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	signals, err := s.fetcher.Fetch(fetchCtx, productURL)
	if err != nil {
		if errors.Is(err, domain.ErrFetchFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	if signals == nil {
		return nil, fmt.Errorf("%w: provider returned no signals", domain.ErrFetchFailure)
	}
	if signals.URL == "" {
		signals.URL = productURL
	}
	return signals, nil
}

// validateRequest rejects empty or unparseable input before the pipeline runs.
func validateRequest(request *domain.AnalyzeRequest) error {
	if request == nil || strings.TrimSpace(request.URL) == "" {
		return fmt.Errorf("%w: url is required", domain.ErrInvalidRequest)
	}

	u, err := url.Parse(strings.TrimSpace(request.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: url %q is not an absolute URL", domain.ErrInvalidRequest, request.URL)
	}

	if heading := request.HSHeading; heading != "" && !domain.IsCodeFamily(heading) {
		return fmt.Errorf("%w: hsHeading %q is not a code prefix", domain.ErrInvalidRequest, heading)
	}
	return nil
}
