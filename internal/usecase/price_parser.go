package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/importlens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// currencyCodes are the ISO codes recognised in free text. RMB is an alias of CNY.
var currencyCodes = []string{
	"USD", "EUR", "ARS", "BRL", "CNY", "RMB", "GBP", "JPY", "CAD", "AUD",
	"MXN", "CLP", "COP", "UYU", "PYG", "INR", "HKD", "RUB", "TRY",
}

// currencySymbols are checked in order; longer symbols come before "$".
var currencySymbols = []struct {
	pattern  *regexp.Regexp
	currency string
}{
	{regexp.MustCompile(`(?i)\bUS\s?\$|\bU\$S`), "USD"},
	{regexp.MustCompile(`\bR\$`), "BRL"},
	{regexp.MustCompile(`\bC\$`), "CAD"},
	{regexp.MustCompile(`\bA\$`), "AUD"},
	{regexp.MustCompile(`\bHK\$`), "HKD"},
	{regexp.MustCompile(`€`), "EUR"},
	{regexp.MustCompile(`£`), "GBP"},
	{regexp.MustCompile(`[¥￥]`), "CNY"},
	{regexp.MustCompile(`₽`), "RUB"},
	{regexp.MustCompile(`₹`), "INR"},
	{regexp.MustCompile(`\$`), "USD"},
}

// Decimal separator conventions used to resolve "1.234" / "1,234".
var (
	commaDecimalCurrencies = map[string]bool{
		"ARS": true, "BRL": true, "EUR": true, "CLP": true, "COP": true,
		"UYU": true, "PYG": true, "TRY": true, "RUB": true,
	}
	dotDecimalCurrencies = map[string]bool{
		"USD": true, "CNY": true, "GBP": true, "JPY": true, "CAD": true,
		"AUD": true, "MXN": true, "INR": true, "HKD": true,
	}
	// fineMeasureUnits are priced per small quantity, so "1.250" reads as 1.25.
	fineMeasureUnits = map[string]bool{
		"g": true, "gram": true, "ml": true, "cm": true, "mm": true,
	}
)

// unitAliases canonicalises per-unit suffixes.
var unitAliases = map[string]string{
	"piece": "piece", "pieces": "piece", "pcs": "piece", "pc": "piece", "unidad": "piece", "unidades": "piece",
	"set": "set", "sets": "set",
	"unit": "unit", "units": "unit",
	"pair": "pair", "pairs": "pair",
	"kg": "kg", "kgs": "kg", "kilogram": "kg", "kilograms": "kg", "kilo": "kg",
	"g": "g", "gram": "g", "grams": "g",
	"ton": "ton", "tons": "ton", "tonne": "ton", "tonnes": "ton",
	"meter": "meter", "meters": "meter", "metre": "meter", "metres": "meter", "m": "meter",
	"cm": "cm", "mm": "mm", "ml": "ml",
	"liter": "liter", "liters": "liter", "litre": "liter", "l": "liter",
	"box": "box", "boxes": "box", "carton": "carton", "cartons": "carton",
	"roll": "roll", "rolls": "roll", "bag": "bag", "bags": "bag",
	"sqm": "sqm", "lot": "lot", "lots": "lot", "dozen": "dozen",
}

var (
	numberTokenPattern  = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?`)
	currencyCodePattern = regexp.MustCompile(`(?:^|[^A-Za-z])(` + strings.Join(currencyCodes, "|") + `)(?:[^A-Za-z]|$)`)
	unitSuffixPattern   = regexp.MustCompile(`(?i)(?:/\s*|\bper\s+|\bpor\s+)([a-z]+)`)

	currencyMarker      = `(?:` + strings.Join(currencyCodes, "|") + `|US\s?\$|U\$S|[A-Z]{0,2}\$|[€£¥￥₽₹])`
	rangeBetweenPattern = regexp.MustCompile(`(?i)^\s*` + currencyMarker + `?\s*(?:-|–|—|~|to|a|hasta|até)\s*` + currencyMarker + `?\s*$`)
	markerBeforePattern = regexp.MustCompile(`(?i)` + currencyMarker + `\s*$`)
	markerAfterPattern  = regexp.MustCompile(`^\s*` + currencyMarker)
)

// numberToken is a numeric run found in price text.
type numberToken struct {
	raw        string
	start, end int
}

// DetectCurrency returns the ISO code for an explicit code or symbol in text,
// or "" when none is present.
func DetectCurrency(text string) string {
	if m := currencyCodePattern.FindStringSubmatch(text); m != nil {
		if m[1] == "RMB" {
			return "CNY"
		}
		return m[1]
	}
	for _, sym := range currencySymbols {
		if sym.pattern.MatchString(text) {
			return sym.currency
		}
	}
	return ""
}

// DetectUnit returns the canonical per-unit suffix in text ("/ piece",
// "per set"), or "" when none is present.
func DetectUnit(text string) string {
	for _, m := range unitSuffixPattern.FindAllStringSubmatch(text, -1) {
		if unit := canonicalUnit(m[1]); unit != "" {
			return unit
		}
	}
	return ""
}

func canonicalUnit(unit string) string {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" {
		return ""
	}
	if canonical, ok := unitAliases[unit]; ok {
		return canonical
	}
	if isCurrencyWord(unit) {
		return ""
	}
	return unit
}

func isCurrencyWord(word string) bool {
	upper := strings.ToUpper(word)
	for _, code := range currencyCodes {
		if code == upper {
			return true
		}
	}
	return false
}

// findNumberTokens returns numeric runs that are not glued to a preceding
// word (model numbers such as "B07" are skipped; "USD12" is kept).
func findNumberTokens(text string) []numberToken {
	var tokens []numberToken
	for _, loc := range numberTokenPattern.FindAllStringIndex(text, -1) {
		if word := precedingWord(text, loc[0]); word != "" && !isCurrencyWord(word) {
			continue
		}
		tokens = append(tokens, numberToken{raw: text[loc[0]:loc[1]], start: loc[0], end: loc[1]})
	}
	return tokens
}

func precedingWord(text string, pos int) string {
	start := pos
	for start > 0 {
		r := rune(text[start-1])
		if r >= 0x80 || !unicode.IsLetter(r) {
			break
		}
		start--
	}
	return text[start:pos]
}

// parseAmount converts a numeric token into a decimal using the separator
// policy: with both separators the last one is the decimal mark; a repeated
// separator groups thousands; a single separator followed by anything but
// three digits is the decimal mark; a single separator followed by exactly
// three digits is resolved by resolveAmbiguousSeparator.
func parseAmount(raw, currency, unit string) (decimal.Decimal, bool) {
	dots := strings.Count(raw, ".")
	commas := strings.Count(raw, ",")

	var normalized string
	switch {
	case dots == 0 && commas == 0:
		normalized = raw
	case dots > 0 && commas > 0:
		decimalSep, groupSep := ",", "."
		if strings.LastIndex(raw, ".") > strings.LastIndex(raw, ",") {
			decimalSep, groupSep = ".", ","
		}
		normalized = strings.ReplaceAll(raw, groupSep, "")
		normalized = strings.Replace(normalized, decimalSep, ".", 1)
	case dots > 1 || commas > 1:
		normalized = strings.NewReplacer(".", "", ",", "").Replace(raw)
	default:
		sep := "."
		if commas == 1 {
			sep = ","
		}
		idx := strings.Index(raw, sep)
		intPart, fracPart := raw[:idx], raw[idx+1:]
		if len(fracPart) != 3 || resolveAmbiguousSeparator(sep, intPart, currency, unit) {
			normalized = intPart + "." + fracPart
		} else {
			normalized = intPart + fracPart
		}
	}

	amount, err := decimal.NewFromString(normalized)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}

// resolveAmbiguousSeparator reports whether sep in "<intPart><sep><3 digits>"
// is a decimal mark. The currency's convention decides first; without a
// known convention, a zero integer part or a fine-measure unit means decimal,
// anything else means thousands grouping.
func resolveAmbiguousSeparator(sep, intPart, currency, unit string) bool {
	switch {
	case commaDecimalCurrencies[currency]:
		return sep == ","
	case dotDecimalCurrencies[currency]:
		return sep == "."
	}
	if intPart == "0" || fineMeasureUnits[unit] {
		return true
	}
	return false
}

// parseMachineAmount reads a schema.org or OpenGraph amount, where "." is
// always the decimal mark. Values that do not look machine formatted go
// through the separator policy instead.
func parseMachineAmount(raw, currency, unit string) (decimal.Decimal, bool) {
	if strings.Contains(raw, ",") || strings.Count(raw, ".") > 1 {
		return parseAmount(raw, currency, unit)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}

// parsePriceText applies the parsing policy to one candidate text. The bool
// result is false when the text contains no parseable numeric token.
func parsePriceText(text, hintCurrency, hintUnit string, machineReadable bool) (domain.NormalizedPrice, bool) {
	tokens := findNumberTokens(text)
	if len(tokens) == 0 {
		return domain.UnknownPrice(), false
	}

	currency := strings.ToUpper(strings.TrimSpace(hintCurrency))
	if currency == "RMB" {
		currency = "CNY"
	}
	if currency == "" {
		currency = DetectCurrency(text)
	}
	unit := canonicalUnit(hintUnit)
	if unit == "" {
		unit = DetectUnit(text)
	}

	amountOf := parseAmount
	if machineReadable {
		amountOf = parseMachineAmount
	}

	first, ok := amountOf(tokens[0].raw, currency, unit)
	if !ok {
		return domain.UnknownPrice(), true
	}

	if len(tokens) >= 2 && rangeBetweenPattern.MatchString(text[tokens[0].end:tokens[1].start]) {
		if second, ok := amountOf(tokens[1].raw, currency, unit); ok {
			return domain.RangePrice(first, second, currency, unit), true
		}
	}

	if len(tokens) == 1 || currencyAnchored(text, tokens[0]) {
		return domain.SinglePrice(first, currency, unit), true
	}

	// Several unrelated numbers and nothing tying the first to a currency.
	return domain.UnknownPrice(), true
}

func currencyAnchored(text string, tok numberToken) bool {
	return markerBeforePattern.MatchString(text[:tok.start]) || markerAfterPattern.MatchString(text[tok.end:])
}
