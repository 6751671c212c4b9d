package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SignalOrigin tags where a piece of page data was extracted from.
type SignalOrigin string

const (
	OriginStructuredData SignalOrigin = "structured-data"
	OriginMetaTag        SignalOrigin = "meta-tag"
	OriginDOMText        SignalOrigin = "dom-text"
	OriginRegexFallback  SignalOrigin = "regex-fallback"
)

// OriginTrustOrder lists signal origins from most to least trusted.
var OriginTrustOrder = []SignalOrigin{
	OriginStructuredData,
	OriginMetaTag,
	OriginDOMText,
	OriginRegexFallback,
}

// Rank returns the position of the origin in the trust order (0 is most
// trusted). Unknown origins rank last.
func (o SignalOrigin) Rank() int {
	for i, origin := range OriginTrustOrder {
		if o == origin {
			return i
		}
	}
	return len(OriginTrustOrder)
}

// PriceCandidate is a raw price-bearing string found on a page.
// MachineReadable marks amounts taken from schema.org or OpenGraph values,
// which always use "." as the decimal mark.
type PriceCandidate struct {
	Text            string       `json:"text"`
	HintCurrency    string       `json:"hintCurrency,omitempty"`
	HintUnit        string       `json:"hintUnit,omitempty"`
	Origin          SignalOrigin `json:"origin"`
	MachineReadable bool         `json:"machineReadable,omitempty"`
}

// PriceKind discriminates NormalizedPrice variants.
type PriceKind string

const (
	PriceSingle  PriceKind = "single"
	PriceRange   PriceKind = "range"
	PriceUnknown PriceKind = "unknown"
)

// FxConversion records how a price was converted into the reference currency.
type FxConversion struct {
	FromCurrency string           `json:"fromCurrency"`
	Rate         decimal.Decimal  `json:"rate"`
	Source       string           `json:"source"`
	OriginalMin  decimal.Decimal  `json:"originalMin"`
	OriginalMax  *decimal.Decimal `json:"originalMax,omitempty"`
}

// NormalizedPrice is the reconciled price of a product.
//
// single: Min set, Max nil. range: Min < Max. unknown: Min and Max nil,
// Currency and Unit empty.
type NormalizedPrice struct {
	Type       PriceKind        `json:"type"`
	Min        *decimal.Decimal `json:"min"`
	Max        *decimal.Decimal `json:"max"`
	Currency   string           `json:"currency"`
	Unit       string           `json:"unit"`
	Conversion *FxConversion    `json:"conversion,omitempty"`
}

// UnknownPrice returns the terminal fallback price.
func UnknownPrice() NormalizedPrice {
	return NormalizedPrice{Type: PriceUnknown}
}

// SinglePrice builds a single-amount price.
func SinglePrice(amount decimal.Decimal, currency, unit string) NormalizedPrice {
	return NormalizedPrice{Type: PriceSingle, Min: &amount, Currency: currency, Unit: unit}
}

// RangePrice builds a range price, swapping bounds when given in reverse
// order. Equal bounds collapse into a single price.
func RangePrice(lo, hi decimal.Decimal, currency, unit string) NormalizedPrice {
	if lo.Equal(hi) {
		return SinglePrice(lo, currency, unit)
	}
	if lo.GreaterThan(hi) {
		lo, hi = hi, lo
	}
	return NormalizedPrice{Type: PriceRange, Min: &lo, Max: &hi, Currency: currency, Unit: unit}
}

// IsUnknown reports whether no amount was extracted.
func (p NormalizedPrice) IsUnknown() bool {
	return p.Type == PriceUnknown || p.Min == nil
}

// String renders the price in a form PriceNormalizer can parse back.
func (p NormalizedPrice) String() string {
	if p.IsUnknown() {
		return "unknown"
	}
	s := formatAmount(*p.Min)
	if p.Type == PriceRange && p.Max != nil {
		s += " - " + formatAmount(*p.Max)
	}
	if p.Currency != "" {
		s = fmt.Sprintf("%s %s", p.Currency, s)
	}
	if p.Unit != "" {
		s += " / " + p.Unit
	}
	return s
}

// formatAmount pads to cents but keeps sub-cent precision.
func formatAmount(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}
