package domain

import (
	"strings"
	"time"
)

// SpecEntry is a labelled product attribute, e.g. "Material: steel".
type SpecEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ExtractedProductText is the descriptive text harvested from a page.
// Bullets and Specs are never nil.
type ExtractedProductText struct {
	Title          string      `json:"title,omitempty"`
	RawDescription string      `json:"rawDescription,omitempty"`
	Bullets        []string    `json:"bullets"`
	Specs          []SpecEntry `json:"specs"`
}

// NewExtractedProductText returns an empty value with non-nil sequences.
func NewExtractedProductText() ExtractedProductText {
	return ExtractedProductText{
		Bullets: make([]string, 0),
		Specs:   make([]SpecEntry, 0),
	}
}

// IsEmpty reports whether no text at all was extracted.
func (t ExtractedProductText) IsEmpty() bool {
	return t.Title == "" && t.RawDescription == "" && len(t.Bullets) == 0 && len(t.Specs) == 0
}

// Extraction is the full output of a SignalExtractor run.
type Extraction struct {
	Text   ExtractedProductText `json:"text"`
	Prices []PriceCandidate     `json:"prices"`
	Images []string             `json:"images"`
}

// MetaTag is one <meta> element keyed by its name, property or itemprop.
type MetaTag struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// PageSignals is the raw material supplied by a PageSignalProvider.
type PageSignals struct {
	URL            string    `json:"url"`
	HTML           string    `json:"html"`
	StructuredData []string  `json:"structuredData"`
	Meta           []MetaTag `json:"meta"`
	FetchedAt      time.Time `json:"fetchedAt"`
}

// MetaValues returns every non-empty content for the given meta name, in
// document order. Matching is case-insensitive.
func (s *PageSignals) MetaValues(name string) []string {
	var values []string
	for _, tag := range s.Meta {
		if strings.EqualFold(tag.Name, name) && tag.Content != "" {
			values = append(values, tag.Content)
		}
	}
	return values
}

// MetaValue returns the first content for the given meta name.
func (s *PageSignals) MetaValue(name string) string {
	if values := s.MetaValues(name); len(values) > 0 {
		return values[0]
	}
	return ""
}

// ClassificationCandidate is one ranked nomenclature code.
type ClassificationCandidate struct {
	Code  string  `json:"code"`
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score"`
}

// Classification is the Classifier's result.
type Classification struct {
	Code       string                    `json:"code"`
	Confidence float64                   `json:"confidence"` // 0-1
	Candidates []ClassificationCandidate `json:"candidates"`
}

// ProductSummary is the product section of an analysis.
type ProductSummary struct {
	Title                 string          `json:"title,omitempty"`
	RawDescription        string          `json:"rawDescription"`
	NormalizedDescription string          `json:"normalizedDescription"`
	Price                 NormalizedPrice `json:"price"`
	Images                []string        `json:"images"`
}

// AnalyzeProductOutput is the terminal artifact of one pipeline run.
type AnalyzeProductOutput struct {
	RunID          string         `json:"runId"`
	Source         SourceVariant  `json:"source"`
	URL            string         `json:"url"`
	Product        ProductSummary `json:"product"`
	Classification Classification `json:"classification"`
	AnalyzedAt     time.Time      `json:"analyzedAt"`
}

// AnalyzeRequest is an inbound analysis request.
type AnalyzeRequest struct {
	URL       string `json:"url" binding:"required"`
	HSHeading string `json:"hsHeading,omitempty"`
}
