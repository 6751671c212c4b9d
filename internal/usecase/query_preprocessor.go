package usecase

import (
	"log"
	"regexp"
	"strings"
	"unicode"

	"github.com/importlens/backend/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultMaxQueryTerms        = 32
	maxNormalizedDescriptionLen = 2000
)

// Compiled regex patterns for query preprocessing
var (
	// Matches size/quantity patterns like "500 ml", "1.5 kg", "12V", "3/4 inch"
	sizeQuantityPattern = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:fl\s*oz|oz|ml|l|liters?|litros?|kg|kgs|g|grams?|gramos?|lbs?|mm|cm|m|inch(?:es)?|in|v|w|kw|hp|mah|ah|hz|pcs|pc)\b`)

	// Matches pack/count patterns like "12 pack", "pack of 6", "set of 3"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+[-\s]*(?:pack|pk|count|ct|piezas|unidades)\b|\b(?:pack|set|lot)\s*of\s*\d+\b`)

	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// stopWords covers Spanish, Portuguese and English function words plus the
// catch-all phrasing of tariff descriptions ("los demás", "excepto").
var stopWords = map[string]bool{
	// Spanish
	"de": true, "la": true, "el": true, "los": true, "las": true, "y": true,
	"o": true, "en": true, "con": true, "para": true, "por": true, "del": true,
	"al": true, "un": true, "una": true, "unos": true, "unas": true, "sin": true,
	"su": true, "sus": true, "que": true, "se": true, "lo": true, "como": true,
	"demas": true, "otros": true, "otras": true, "otro": true, "otra": true,
	"excepto": true, "incluso": true, "tipo": true, "partida": true, "mas": true,
	"igual": true, "inferior": true, "superior": true, "esta": true, "este": true,
	// Portuguese
	"do": true, "da": true, "dos": true, "das": true, "com": true, "em": true,
	"um": true, "uma": true, "ou": true, "no": true, "na": true,
	// English
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"on": true, "at": true, "to": true, "for": true, "with": true, "by": true,
	"from": true, "is": true, "it": true, "as": true, "be": true, "are": true,
	"in": true, "this": true, "that": true, "your": true, "our": true,
}

// productNoiseWords are marketplace listing terms that carry no
// classification signal.
var productNoiseWords = map[string]bool{
	// Marketing
	"new": true, "hot": true, "sale": true, "sales": true, "best": true,
	"high": true, "quality": true, "cheap": true, "price": true, "factory": true,
	"wholesale": true, "supplier": true, "manufacturer": true, "oem": true,
	"odm": true, "custom": true, "customized": true, "free": true, "shipping": true,
	"original": true, "premium": true, "brand": true, "nuevo": true, "oferta": true,
	"envio": true, "gratis": true, "alta": true, "calidad": true, "precio": true,
	// Units and packaging
	"oz": true, "ml": true, "kg": true, "kgs": true, "lb": true, "lbs": true,
	"cm": true, "mm": true, "pcs": true, "pc": true, "piece": true, "pieces": true,
	"pack": true, "set": true, "lot": true, "unit": true, "units": true,
	"size": true, "color": true, "colour": true, "model": true, "item": true,
	"product": true, "products": true, "producto": true, "productos": true,
}

// QueryPreprocessor turns extracted product text into classifier input.
type QueryPreprocessor struct {
	maxTerms           int
	enableDebugLogging bool
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(maxTerms int, enableDebugLogging bool) *QueryPreprocessor {
	if maxTerms <= 0 {
		maxTerms = defaultMaxQueryTerms
	}
	return &QueryPreprocessor{
		maxTerms:           maxTerms,
		enableDebugLogging: enableDebugLogging,
	}
}

// textParts returns the product text pieces in classification priority:
// title, description, bullets, then "label: value" spec pairs.
func textParts(text domain.ExtractedProductText) []string {
	parts := make([]string, 0, 2+len(text.Bullets)+len(text.Specs))
	parts = append(parts, text.Title, text.RawDescription)
	parts = append(parts, text.Bullets...)
	for _, spec := range text.Specs {
		parts = append(parts, spec.Label+": "+spec.Value)
	}
	return parts
}

// NormalizeDescription joins all product text into one readable string with
// markup removed and whitespace collapsed.
func (p *QueryPreprocessor) NormalizeDescription(text domain.ExtractedProductText) string {
	var kept []string
	for _, part := range textParts(text) {
		part = htmlTagPattern.ReplaceAllString(part, " ")
		part = strings.TrimSpace(multiSpacePattern.ReplaceAllString(part, " "))
		part = strings.TrimRight(part, ".;,")
		if part != "" {
			kept = append(kept, part)
		}
	}
	return truncate(strings.Join(kept, ". "), maxNormalizedDescriptionLen)
}

// QueryTerms returns the distinct search terms of the product text, title
// terms first, capped at the configured maximum.
func (p *QueryPreprocessor) QueryTerms(text domain.ExtractedProductText) []string {
	terms := make([]string, 0, p.maxTerms)
	seen := make(map[string]bool)

	for _, part := range textParts(text) {
		for _, term := range QueryTokens(part) {
			if seen[term] {
				continue
			}
			seen[term] = true
			terms = append(terms, term)
			if len(terms) >= p.maxTerms {
				p.debugf(text.Title, terms)
				return terms
			}
		}
	}
	p.debugf(text.Title, terms)
	return terms
}

func (p *QueryPreprocessor) debugf(title string, terms []string) {
	if p.enableDebugLogging {
		log.Printf("[PREPROCESS] Title: %q → Terms: %v", title, terms)
	}
}

// QueryTokens cleans free product text and tokenizes it. Size, quantity and
// pack patterns are stripped and marketplace noise words dropped.
func QueryTokens(s string) []string {
	s = sizeQuantityPattern.ReplaceAllString(s, " ")
	s = packCountPattern.ReplaceAllString(s, " ")

	var tokens []string
	for _, token := range Tokenize(s) {
		if !productNoiseWords[token] {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Tokenize splits text into normalized terms: lowercased, accent-folded,
// stop words and pure numbers removed, light plural stemming applied. The
// same function indexes catalog descriptions, so both sides agree.
func Tokenize(s string) []string {
	cleaned := nonWordPattern.ReplaceAllString(foldAccents(strings.ToLower(s)), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 || stopWords[word] || isNumeric(word) {
			continue
		}
		tokens = append(tokens, stem(word))
	}
	return tokens
}

// foldAccents strips combining marks ("máquinas" → "maquinas").
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// stem removes Spanish/English plural endings: "-es" after r, n, d, l, z or
// j ("motores" → "motor"), otherwise a trailing "s" ("bombas" → "bomba").
func stem(word string) string {
	n := len(word)
	if n > 4 && strings.HasSuffix(word, "es") && strings.ContainsRune("rndlzj", rune(word[n-3])) {
		return word[:n-2]
	}
	if n > 3 && word[n-1] == 's' && !strings.HasSuffix(word, "ss") && !strings.HasSuffix(word, "us") && !strings.HasSuffix(word, "is") {
		return word[:n-1]
	}
	return word
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
