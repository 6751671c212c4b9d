package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FxSnapshot is the cached exchange rate from BaseCurrency into the
// reference currency.
type FxSnapshot struct {
	Rate          decimal.Decimal `json:"rate"`
	BaseCurrency  string          `json:"baseCurrency"`
	QuoteCurrency string          `json:"quoteCurrency"`
	Source        string          `json:"source"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

// FreshAt reports whether the snapshot is still valid at t.
func (s FxSnapshot) FreshAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}

// FxQuote is what an upstream rate source returns.
type FxQuote struct {
	Rate          decimal.Decimal
	BaseCurrency  string
	QuoteCurrency string
	Source        string
}
