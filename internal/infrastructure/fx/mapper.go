package fx

import (
	"fmt"
	"strings"

	"github.com/importlens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// BaseCurrency is the currency the upstream rate is quoted for
	BaseCurrency = "USD"
	// QuoteCurrency is the currency one unit of BaseCurrency is priced in
	QuoteCurrency = "ARS"
	sourcePrefix  = "dolarapi:"
)

// dolarResponse is the DolarApi quote payload
type dolarResponse struct {
	House     string          `json:"casa"`
	Name      string          `json:"nombre"`
	Currency  string          `json:"moneda"`
	Buy       decimal.Decimal `json:"compra"`
	Sell      decimal.Decimal `json:"venta"`
	UpdatedAt string          `json:"fechaActualizacion"`
}

// MapToQuote converts a DolarApi payload to a domain quote using the
// selling rate.
func MapToQuote(payload *dolarResponse) (*domain.FxQuote, error) {
	if payload == nil || !payload.Sell.IsPositive() {
		return nil, fmt.Errorf("%w: missing or non-positive selling rate", domain.ErrRateUnavailable)
	}

	base := BaseCurrency
	if c := strings.ToUpper(strings.TrimSpace(payload.Currency)); c != "" {
		base = c
	}

	house := strings.ToLower(strings.TrimSpace(payload.House))
	if house == "" {
		house = "oficial"
	}

	return &domain.FxQuote{
		Rate:          payload.Sell,
		BaseCurrency:  base,
		QuoteCurrency: QuoteCurrency,
		Source:        sourcePrefix + house,
	}, nil
}
