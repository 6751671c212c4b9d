package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/importlens/backend/internal/domain"
)

const defaultRateMaxAge = 30 * time.Minute

// RateProvider is the subset of FxRateCache the normalizer depends on.
type RateProvider interface {
	GetRate(ctx context.Context, maxAge time.Duration) (domain.FxSnapshot, error)
}

// PriceNormalizerConfig holds configuration for the price normalizer
type PriceNormalizerConfig struct {
	// ReferenceCurrency is the currency prices are converted into. Empty
	// disables conversion.
	ReferenceCurrency string
	// RateMaxAge is the TTL requested from the rate cache on refresh.
	RateMaxAge time.Duration
}

// PriceNormalizer reduces price candidates to one NormalizedPrice.
type PriceNormalizer struct {
	rates             RateProvider
	referenceCurrency string
	rateMaxAge        time.Duration
}

// NewPriceNormalizer creates a normalizer. rates may be nil, in which case
// prices are never converted.
func NewPriceNormalizer(rates RateProvider, config PriceNormalizerConfig) *PriceNormalizer {
	maxAge := config.RateMaxAge
	if maxAge <= 0 {
		maxAge = defaultRateMaxAge
	}

	return &PriceNormalizer{
		rates:             rates,
		referenceCurrency: strings.ToUpper(config.ReferenceCurrency),
		rateMaxAge:        maxAge,
	}
}

// Normalize selects, parses and converts the candidates. The returned price
// is always usable. A non-nil error wraps domain.ErrRateUnavailable and means
// a required conversion could not be performed; the price then keeps its
// original currency.
func (n *PriceNormalizer) Normalize(ctx context.Context, candidates []domain.PriceCandidate) (domain.NormalizedPrice, error) {
	price := n.Parse(candidates)
	return n.convert(ctx, price)
}

// Parse applies trust-order selection and the parsing policy without any
// currency conversion. Candidates are grouped by origin. The first tier with
// a candidate carrying numeric tokens decides the result: its first price, or
// unknown when every such candidate is ambiguous. Lower tiers are consulted
// only when a tier has no numeric tokens at all.
func (n *PriceNormalizer) Parse(candidates []domain.PriceCandidate) domain.NormalizedPrice {
	ordered := make([]domain.PriceCandidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Origin.Rank() < ordered[j].Origin.Rank()
	})

	for start := 0; start < len(ordered); {
		end := start
		for end < len(ordered) && ordered[end].Origin.Rank() == ordered[start].Origin.Rank() {
			end++
		}

		tierParseable := false
		for _, candidate := range ordered[start:end] {
			price, parseable := parsePriceText(candidate.Text, candidate.HintCurrency, candidate.HintUnit, candidate.MachineReadable)
			if !parseable {
				continue
			}
			tierParseable = true
			if !price.IsUnknown() {
				return price
			}
		}
		if tierParseable {
			return domain.UnknownPrice()
		}
		start = end
	}
	return domain.UnknownPrice()
}

func (n *PriceNormalizer) convert(ctx context.Context, price domain.NormalizedPrice) (domain.NormalizedPrice, error) {
	if price.IsUnknown() || n.rates == nil || n.referenceCurrency == "" {
		return price, nil
	}
	if price.Currency == "" || price.Currency == n.referenceCurrency {
		return price, nil
	}

	snapshot, err := n.rates.GetRate(ctx, n.rateMaxAge)
	if err != nil {
		log.Printf("[PRICE] Conversion %s->%s skipped: %v", price.Currency, n.referenceCurrency, err)
		return price, fmt.Errorf("converting %s to %s: %w", price.Currency, n.referenceCurrency, err)
	}
	if !strings.EqualFold(snapshot.BaseCurrency, price.Currency) ||
		(snapshot.QuoteCurrency != "" && !strings.EqualFold(snapshot.QuoteCurrency, n.referenceCurrency)) {
		// No rate for this currency pair; keep the detected currency.
		return price, nil
	}

	return ConvertPrice(price, snapshot, n.referenceCurrency), nil
}

// ConvertPrice multiplies the price bounds by the snapshot rate, rounding to
// cents, and records the conversion.
func ConvertPrice(price domain.NormalizedPrice, snapshot domain.FxSnapshot, referenceCurrency string) domain.NormalizedPrice {
	conversion := &domain.FxConversion{
		FromCurrency: price.Currency,
		Rate:         snapshot.Rate,
		Source:       snapshot.Source,
		OriginalMin:  *price.Min,
	}

	converted := price
	converted.Currency = referenceCurrency
	converted.Conversion = conversion

	minAmount := price.Min.Mul(snapshot.Rate).Round(2)
	converted.Min = &minAmount
	if price.Max != nil {
		originalMax := *price.Max
		conversion.OriginalMax = &originalMax
		maxAmount := price.Max.Mul(snapshot.Rate).Round(2)
		converted.Max = &maxAmount
		if !minAmount.LessThan(maxAmount) {
			converted.Type = domain.PriceSingle
			converted.Max = nil
		}
	}
	return converted
}
