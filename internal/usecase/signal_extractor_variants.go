package usecase

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/importlens/backend/internal/domain"
)

// AlibabaExtractor handles alibaba.com product pages. Wholesale listings
// publish a quantity ladder of unit prices; the ladder is reported as one
// range spanning its cheapest and dearest tiers.
type AlibabaExtractor struct {
	base baseExtractor
}

// NewAlibabaExtractor creates the Alibaba extractor.
func NewAlibabaExtractor() *AlibabaExtractor {
	return &AlibabaExtractor{base: baseExtractor{
		variant: domain.SourceAlibaba,
		profile: variantProfile{
			titleSelectors:       []string{".product-title-container h1", ".module-pdp-title h1", "h1.title", "h1"},
			titleAffixes:         []string{"- Alibaba.com", "| Alibaba.com", "Alibaba.com"},
			descriptionSelectors: []string{".product-description", ".module_description", "#J-rich-text-description"},
			specRows: []specRowSelector{
				{row: ".attribute-item", label: ".left", value: ".right"},
				{row: ".do-entry-item", label: ".attr-name", value: ".attr-value"},
				{row: ".module_attribute tr", label: "td:first-child", value: "td:last-child"},
			},
			imageSelectors: []string{".image-list img", ".main-image img", ".detail-gallery img"},
			scriptPricePatterns: []*regexp.Regexp{
				regexp.MustCompile(`"formatPrice"\s*:\s*"([^"]+)"`),
				regexp.MustCompile(`"priceRangeText"\s*:\s*"([^"]+)"`),
				regexp.MustCompile(`"ladderPrice"\s*:\s*"([^"]+)"`),
			},
		},
	}}
}

// Extract implements SignalExtractor.
func (e *AlibabaExtractor) Extract(signals *domain.PageSignals) domain.Extraction {
	return e.base.extract(signals, e.domPrices)
}

func (e *AlibabaExtractor) domPrices(doc *goquery.Document) []string {
	var prices []string
	if text := firstText(doc, []string{".price-range", ".product-price .price-range"}); text != "" {
		prices = append(prices, text)
	}

	ladder := allTexts(doc, ".price-list .price, .module_price .price, .ladder-price .price")
	switch {
	case len(ladder) == 1:
		prices = append(prices, ladder[0]+unitSuffix(doc))
	case len(ladder) > 1:
		// Ladder tiers are listed from the smallest order quantity (dearest)
		// to the largest (cheapest); the normalizer orders the bounds.
		prices = append(prices, ladder[len(ladder)-1]+" - "+ladder[0]+unitSuffix(doc))
	}
	return prices
}

// unitSuffix reads the ladder's unit label ("/ piece") when shown separately.
func unitSuffix(doc *goquery.Document) string {
	unit := cleanText(doc.Find(".price-list .unit, .module_price .unit").First().Text())
	if unit == "" {
		return ""
	}
	if !strings.HasPrefix(unit, "/") {
		unit = "/ " + unit
	}
	return " " + unit
}

// AliExpressExtractor handles the regional AliExpress storefronts, which
// render prices client-side and embed them in script state.
type AliExpressExtractor struct {
	base baseExtractor
}

// NewAliExpressExtractor creates the AliExpress extractor.
func NewAliExpressExtractor() *AliExpressExtractor {
	return &AliExpressExtractor{base: baseExtractor{
		variant: domain.SourceAliExpress,
		profile: variantProfile{
			titleSelectors:       []string{"h1[data-pl=product-title]", ".product-title-text", "h1"},
			titleAffixes:         []string{"- AliExpress", "| AliExpress", "- AliExpress.com"},
			descriptionSelectors: []string{"#product-description", ".detail-desc-decorate-richtext"},
			specRows: []specRowSelector{
				{row: ".specification--prop--Jh28bKu, .specification--prop", label: ".specification--title", value: ".specification--desc"},
				{row: ".product-prop", label: ".property-title", value: ".property-desc"},
			},
			imageSelectors: []string{".slider--img img", ".images-view-item img", ".magnifier--image"},
			scriptPricePatterns: []*regexp.Regexp{
				regexp.MustCompile(`"formatedActivityPrice"\s*:\s*"([^"]+)"`),
				regexp.MustCompile(`"formatedPrice"\s*:\s*"([^"]+)"`),
			},
		},
	}}
}

// Extract implements SignalExtractor.
func (e *AliExpressExtractor) Extract(signals *domain.PageSignals) domain.Extraction {
	return e.base.extract(signals, e.domPrices)
}

func (e *AliExpressExtractor) domPrices(doc *goquery.Document) []string {
	var prices []string
	for _, selector := range []string{
		".product-price-current",
		".price--currentPriceText",
		".uniform-banner-box-price",
		".product-price-value",
	} {
		if text := cleanText(doc.Find(selector).First().Text()); text != "" {
			prices = append(prices, text)
		}
	}
	return prices
}

// AmazonExtractor handles the regional Amazon storefronts. Amazon splits the
// displayed price into whole and fraction spans, with an accessible
// off-screen copy holding the full string.
type AmazonExtractor struct {
	base baseExtractor
}

// NewAmazonExtractor creates the Amazon extractor.
func NewAmazonExtractor() *AmazonExtractor {
	return &AmazonExtractor{base: baseExtractor{
		variant: domain.SourceAmazon,
		profile: variantProfile{
			titleSelectors:       []string{"#productTitle", "#title", "h1"},
			titleAffixes:         []string{"Amazon.com:", "Amazon.com.br:", "Amazon.de:", "Amazon.es:", ": Amazon.com"},
			descriptionSelectors: []string{"#productDescription", "#bookDescription_feature_div", "#aplus"},
			bulletSelectors:      []string{"#feature-bullets li span.a-list-item", "#feature-bullets li"},
			specRows: []specRowSelector{
				{row: "#productDetails_techSpec_section_1 tr", label: "th", value: "td"},
				{row: "#productDetails_detailBullets_sections1 tr", label: "th", value: "td"},
				{row: "#productOverview_feature_div tr", label: "td:first-child", value: "td:last-child"},
				{row: "#detailBullets_feature_div li", label: ".a-text-bold", value: "span:not(.a-text-bold)"},
			},
			imageSelectors: []string{"#landingImage", "#imgBlkFront", "#altImages img"},
			scriptPricePatterns: []*regexp.Regexp{
				regexp.MustCompile(`"displayPrice"\s*:\s*"([^"]+)"`),
				regexp.MustCompile(`"priceAmount"\s*:\s*([\d.]+)`),
			},
		},
	}}
}

// Extract implements SignalExtractor.
func (e *AmazonExtractor) Extract(signals *domain.PageSignals) domain.Extraction {
	return e.base.extract(signals, e.domPrices)
}

func (e *AmazonExtractor) domPrices(doc *goquery.Document) []string {
	var prices []string
	for _, selector := range []string{
		"#corePrice_feature_div .a-price .a-offscreen",
		"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
		".a-price-range",
	} {
		if text := cleanText(doc.Find(selector).First().Text()); text != "" {
			prices = append(prices, text)
		}
	}
	if len(prices) == 0 {
		if text := cleanText(doc.Find(".a-price .a-offscreen").First().Text()); text != "" {
			prices = append(prices, text)
		}
	}

	// Off-screen copy missing: rebuild from the visible parts.
	if len(prices) == 0 {
		price := doc.Find(".a-price").First()
		rawWhole := cleanText(price.Find(".a-price-whole").First().Text())
		whole := strings.TrimRight(rawWhole, ".,")
		if whole != "" {
			// The whole part carries the storefront's decimal mark ("12." or "12,").
			decimalMark := "."
			if strings.HasSuffix(rawWhole, ",") {
				decimalMark = ","
			}
			symbol := cleanText(price.Find(".a-price-symbol").First().Text())
			fraction := cleanText(price.Find(".a-price-fraction").First().Text())
			text := symbol + whole
			if fraction != "" {
				text += decimalMark + fraction
			}
			prices = append(prices, text)
		}
	}
	return prices
}
