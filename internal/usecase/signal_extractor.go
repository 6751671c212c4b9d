package usecase

import (
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/importlens/backend/internal/domain"
)

const (
	maxRegexCandidates = 5
	maxImages          = 20
	maxDescriptionLen  = 4000
)

// SignalExtractor pulls product text and price candidates out of raw page
// signals. Implementations never fail: missing signals yield fewer results.
type SignalExtractor interface {
	Extract(signals *domain.PageSignals) domain.Extraction
}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// Generic regex-fallback patterns: currency-anchored amounts in visible
	// text and "price" fields in embedded script JSON.
	visiblePricePattern = regexp.MustCompile(`(?:US\s?\$|USD|EUR|R\$|[$€£¥￥])\s?\d[\d.,]*(?:\s*[-–~]\s*(?:US\s?\$|USD|[$€£¥￥])?\s?\d[\d.,]*)?(?:\s*/\s*[A-Za-z]+)?`)
	scriptPricePattern  = regexp.MustCompile(`"price"\s*:\s*"?(\d[\d.,]*)"?`)
	scriptCurrencyRegex = regexp.MustCompile(`"(?:priceCurrency|currencyCode|currency)"\s*:\s*"([A-Z]{3})"`)
)

// variantProfile lists the DOM locations a marketplace uses for product data.
type variantProfile struct {
	titleSelectors       []string
	titleAffixes         []string
	descriptionSelectors []string
	bulletSelectors      []string
	specRows             []specRowSelector
	imageSelectors       []string
	scriptPricePatterns  []*regexp.Regexp
}

// specRowSelector locates label/value pairs inside repeated rows.
type specRowSelector struct {
	row, label, value string
}

// baseExtractor implements the trust-ordered harvesting shared by all
// marketplaces. Variant extractors supply their profile and DOM price hook.
type baseExtractor struct {
	variant domain.SourceVariant
	profile variantProfile
}

// domPriceFunc returns the variant's DOM-text price strings in page order.
type domPriceFunc func(doc *goquery.Document) []string

func (b *baseExtractor) extract(signals *domain.PageSignals, domPrices domPriceFunc) domain.Extraction {
	result := domain.Extraction{
		Text:   domain.NewExtractedProductText(),
		Prices: make([]domain.PriceCandidate, 0),
		Images: make([]string, 0),
	}
	if signals == nil {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(signals.HTML))
	if err != nil {
		log.Printf("[EXTRACT] %s: unparseable HTML for %s: %v", b.variant, signals.URL, err)
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}

	products := parseStructuredProducts(signals.StructuredData)

	result.Text.Title = b.extractTitle(signals, doc, products)
	result.Text.RawDescription = b.extractDescription(signals, doc, products)
	result.Text.Bullets = b.extractBullets(doc)
	result.Text.Specs = b.extractSpecs(doc, products)
	result.Prices = b.extractPrices(signals, doc, products, domPrices)
	result.Images = b.extractImages(signals, doc, products)

	return result
}

func (b *baseExtractor) extractTitle(signals *domain.PageSignals, doc *goquery.Document, products []structuredProduct) string {
	for _, p := range products {
		if p.Name != "" {
			return p.Name
		}
	}
	for _, name := range []string{"og:title", "twitter:title"} {
		if title := b.trimTitle(signals.MetaValue(name)); title != "" {
			return title
		}
	}
	if title := firstText(doc, b.profile.titleSelectors); title != "" {
		return title
	}
	return b.trimTitle(doc.Find("title").First().Text())
}

// trimTitle removes marketplace branding around page titles.
func (b *baseExtractor) trimTitle(title string) string {
	title = cleanText(title)
	for _, affix := range b.profile.titleAffixes {
		title = strings.TrimSpace(strings.TrimSuffix(title, affix))
		title = strings.TrimSpace(strings.TrimPrefix(title, affix))
	}
	return title
}

func (b *baseExtractor) extractDescription(signals *domain.PageSignals, doc *goquery.Document, products []structuredProduct) string {
	for _, p := range products {
		if p.Description != "" {
			return truncate(p.Description, maxDescriptionLen)
		}
	}
	for _, name := range []string{"og:description", "description", "twitter:description"} {
		if desc := cleanText(signals.MetaValue(name)); desc != "" {
			return truncate(desc, maxDescriptionLen)
		}
	}
	if desc := firstText(doc, b.profile.descriptionSelectors); desc != "" {
		return truncate(desc, maxDescriptionLen)
	}
	return truncate(readableExcerpt(signals), maxDescriptionLen)
}

// readableExcerpt runs the readability main-content extractor as the last
// description source.
func readableExcerpt(signals *domain.PageSignals) string {
	if strings.TrimSpace(signals.HTML) == "" {
		return ""
	}
	pageURL, err := url.Parse(signals.URL)
	if err != nil {
		pageURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(signals.HTML), pageURL)
	if err != nil {
		return ""
	}
	if excerpt := cleanText(article.Excerpt); excerpt != "" {
		return excerpt
	}
	return cleanText(article.TextContent)
}

func (b *baseExtractor) extractBullets(doc *goquery.Document) []string {
	bullets := make([]string, 0)
	seen := make(map[string]bool)
	for _, selector := range b.profile.bulletSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := cleanText(s.Text())
			if text != "" && !seen[text] {
				seen[text] = true
				bullets = append(bullets, text)
			}
		})
	}
	return bullets
}

func (b *baseExtractor) extractSpecs(doc *goquery.Document, products []structuredProduct) []domain.SpecEntry {
	specs := make([]domain.SpecEntry, 0)
	seen := make(map[string]bool)
	add := func(label, value string) {
		label = strings.TrimSuffix(cleanText(label), ":")
		value = cleanText(value)
		key := strings.ToLower(label)
		if label == "" || value == "" || seen[key] {
			return
		}
		seen[key] = true
		specs = append(specs, domain.SpecEntry{Label: label, Value: value})
	}

	for _, p := range products {
		for _, prop := range p.Properties {
			add(prop.Label, prop.Value)
		}
	}
	for _, rows := range b.profile.specRows {
		doc.Find(rows.row).Each(func(_ int, s *goquery.Selection) {
			add(s.Find(rows.label).First().Text(), s.Find(rows.value).First().Text())
		})
	}
	return specs
}

// extractPrices collects candidates from every signal type in trust order.
func (b *baseExtractor) extractPrices(signals *domain.PageSignals, doc *goquery.Document, products []structuredProduct, domPrices domPriceFunc) []domain.PriceCandidate {
	candidates := make([]domain.PriceCandidate, 0)

	for _, p := range products {
		for _, offer := range p.Offers {
			candidates = append(candidates, domain.PriceCandidate{
				Text:            offer.Text(),
				HintCurrency:    offer.Currency,
				HintUnit:        offer.Unit,
				Origin:          domain.OriginStructuredData,
				MachineReadable: true,
			})
		}
	}

	metaCurrency := firstNonEmpty(
		signals.MetaValue("product:price:currency"),
		signals.MetaValue("og:price:currency"),
		signals.MetaValue("priceCurrency"),
	)
	for _, name := range []string{"product:price:amount", "og:price:amount", "price"} {
		for _, amount := range signals.MetaValues(name) {
			candidates = append(candidates, domain.PriceCandidate{
				Text:            cleanText(amount),
				HintCurrency:    metaCurrency,
				Origin:          domain.OriginMetaTag,
				MachineReadable: true,
			})
		}
	}

	if domPrices != nil {
		for _, text := range domPrices(doc) {
			if text = cleanText(text); text != "" {
				candidates = append(candidates, domain.PriceCandidate{
					Text:     text,
					HintUnit: DetectUnit(text),
					Origin:   domain.OriginDOMText,
				})
			}
		}
	}

	return append(candidates, b.regexFallbackPrices(doc)...)
}

// regexFallbackPrices scans script bodies and visible text for amounts the
// structured selectors missed.
func (b *baseExtractor) regexFallbackPrices(doc *goquery.Document) []domain.PriceCandidate {
	var scripts strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts.WriteString(s.Text())
		scripts.WriteString("\n")
	})
	scriptText := scripts.String()

	scriptCurrency := ""
	if m := scriptCurrencyRegex.FindStringSubmatch(scriptText); m != nil {
		scriptCurrency = m[1]
	}

	candidates := make([]domain.PriceCandidate, 0, maxRegexCandidates)
	seen := make(map[string]bool)
	add := func(text, currency string) {
		text = cleanText(text)
		if text == "" || seen[text] || len(candidates) >= maxRegexCandidates {
			return
		}
		seen[text] = true
		candidates = append(candidates, domain.PriceCandidate{
			Text:         text,
			HintCurrency: currency,
			Origin:       domain.OriginRegexFallback,
		})
	}

	for _, pattern := range b.profile.scriptPricePatterns {
		for _, m := range pattern.FindAllStringSubmatch(scriptText, maxRegexCandidates) {
			add(m[1], "")
		}
	}
	for _, m := range scriptPricePattern.FindAllStringSubmatch(scriptText, maxRegexCandidates) {
		add(m[1], scriptCurrency)
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	for _, m := range visiblePricePattern.FindAllString(body.Text(), maxRegexCandidates) {
		add(m, "")
	}
	return candidates
}

func (b *baseExtractor) extractImages(signals *domain.PageSignals, doc *goquery.Document, products []structuredProduct) []string {
	base, _ := url.Parse(signals.URL)
	images := make([]string, 0)
	seen := make(map[string]bool)
	add := func(raw string) {
		resolved := resolveURL(base, raw)
		if resolved == "" || seen[resolved] || len(images) >= maxImages {
			return
		}
		seen[resolved] = true
		images = append(images, resolved)
	}

	for _, p := range products {
		for _, img := range p.Images {
			add(img)
		}
	}
	for _, img := range signals.MetaValues("og:image") {
		add(img)
	}
	for _, selector := range b.profile.imageSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			for _, attr := range []string{"data-old-hires", "data-src", "src"} {
				if v, ok := s.Attr(attr); ok && v != "" && !strings.HasPrefix(v, "data:") {
					add(v)
					return
				}
			}
		})
	}
	return images
}

// ExtractorRegistry selects the SignalExtractor for a marketplace variant.
type ExtractorRegistry struct {
	extractors map[domain.SourceVariant]SignalExtractor
}

// NewExtractorRegistry registers the extractor for every known variant.
func NewExtractorRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{
		extractors: map[domain.SourceVariant]SignalExtractor{
			domain.SourceAlibaba:    NewAlibabaExtractor(),
			domain.SourceAliExpress: NewAliExpressExtractor(),
			domain.SourceAmazon:     NewAmazonExtractor(),
		},
	}
}

// For returns the extractor for variant.
func (r *ExtractorRegistry) For(variant domain.SourceVariant) (SignalExtractor, error) {
	extractor, ok := r.extractors[variant]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for %s", domain.ErrUnsupportedSource, variant)
	}
	return extractor, nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := cleanText(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func allTexts(doc *goquery.Document, selector string) []string {
	var texts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}

func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil && !ref.IsAbs() {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
