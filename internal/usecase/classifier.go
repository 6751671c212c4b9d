package usecase

import (
	"context"
	"log"

	"github.com/importlens/backend/internal/domain"
)

const defaultMaxCandidates = 10

// NomenclatorSearcher is the read side of the catalog the classifier needs.
type NomenclatorSearcher interface {
	SearchTerms(terms []string, opts domain.SearchOptions) []domain.NCMMatch
}

// ClassifierConfig holds configuration for the classifier
type ClassifierConfig struct {
	MaxCandidates      int
	MaxQueryTerms      int
	EnableDebugLogging bool
}

// Classifier ranks NCM codes for extracted product text.
type Classifier struct {
	index              NomenclatorSearcher
	preprocessor       *QueryPreprocessor
	maxCandidates      int
	enableDebugLogging bool
}

// NewClassifier creates a new classifier with the given configuration
func NewClassifier(index NomenclatorSearcher, config ClassifierConfig) *Classifier {
	maxCandidates := config.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}

	return &Classifier{
		index:              index,
		preprocessor:       NewQueryPreprocessor(config.MaxQueryTerms, config.EnableDebugLogging),
		maxCandidates:      maxCandidates,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Preprocessor exposes the query preprocessor used by the classifier.
func (c *Classifier) Preprocessor() *QueryPreprocessor {
	return c.preprocessor
}

// Classify ranks candidate codes for the product text, optionally restricted
// to a code family (HS heading). Confidence is the fraction of query terms
// the best entry matched, in [0,1]. Empty or unrecognized text yields
// confidence 0 and no candidates.
func (c *Classifier) Classify(ctx context.Context, text domain.ExtractedProductText, codeFamily string) (domain.Classification, error) {
	result := domain.Classification{Candidates: make([]domain.ClassificationCandidate, 0)}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	terms := c.preprocessor.QueryTerms(text)
	if len(terms) == 0 {
		return result, nil
	}

	matches := c.index.SearchTerms(terms, domain.SearchOptions{
		Limit:      c.maxCandidates,
		CodeFamily: codeFamily,
	})
	if len(matches) == 0 {
		if c.enableDebugLogging {
			log.Printf("[CLASSIFY] No catalog match for %d terms (family: %q)", len(terms), codeFamily)
		}
		return result, nil
	}

	for _, match := range matches {
		result.Candidates = append(result.Candidates, domain.ClassificationCandidate{
			Code:  match.Entry.Code,
			Label: match.Entry.Description,
			Score: confidenceFor(match.Score, len(terms)),
		})
		if c.enableDebugLogging {
			log.Printf("[CLASSIFY] %s | Score: %.2f | Matched: %v", match.Entry.Code, match.Score, match.MatchedTerms)
		}
	}

	result.Code = result.Candidates[0].Code
	result.Confidence = result.Candidates[0].Score

	if c.enableDebugLogging {
		log.Printf("[CLASSIFY] Best: %s (confidence: %.2f)", result.Code, result.Confidence)
	}
	return result, nil
}

// confidenceFor normalizes an overlap score against the number of query
// terms, clipped to [0,1].
func confidenceFor(score float64, termCount int) float64 {
	if termCount == 0 || score <= 0 {
		return 0
	}
	confidence := score / float64(termCount)
	if confidence > 1 {
		return 1
	}
	return confidence
}
