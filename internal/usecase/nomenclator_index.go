package usecase

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/importlens/backend/internal/domain"
)

// Term match weights
const (
	exactTermWeight     = 1.0
	substringTermWeight = 0.5
	fuzzyTermWeight     = 0.4
	minSubstringRunes   = 4
	defaultSearchLimit  = 10
	defaultFuzzyEdits   = 1
)

// indexedEntry is a catalog entry with its precomputed search data.
type indexedEntry struct {
	entry  domain.NCMEntry
	digits string
}

// NomenclatorIndex is an in-memory, read-only catalog of NCM codes with
// ranked term search. It is safe for concurrent use once built.
type NomenclatorIndex struct {
	entries    []indexedEntry
	byDigits   map[string]int
	postings   map[string][]int
	vocabulary []string
	fuzzyEdits int
}

// NewNomenclatorIndex indexes entries in catalog order. Entries with an
// empty code are skipped; a repeated code keeps its first occurrence.
func NewNomenclatorIndex(entries []domain.NCMEntry) *NomenclatorIndex {
	idx := &NomenclatorIndex{
		entries:    make([]indexedEntry, 0, len(entries)),
		byDigits:   make(map[string]int, len(entries)),
		postings:   make(map[string][]int),
		fuzzyEdits: defaultFuzzyEdits,
	}

	for _, entry := range entries {
		digits := NormalizeCode(entry.Code)
		if digits == "" {
			continue
		}
		if _, dup := idx.byDigits[digits]; dup {
			continue
		}

		pos := len(idx.entries)
		terms := make(map[string]bool)
		for _, term := range Tokenize(entry.Description) {
			if terms[term] {
				continue
			}
			terms[term] = true
			if _, known := idx.postings[term]; !known {
				idx.vocabulary = append(idx.vocabulary, term)
			}
			idx.postings[term] = append(idx.postings[term], pos)
		}

		idx.entries = append(idx.entries, indexedEntry{entry: entry, digits: digits})
		idx.byDigits[digits] = pos
	}

	sort.Strings(idx.vocabulary)
	return idx
}

// SetFuzzyDistance sets the edit distance tolerated between a query term
// and a catalog term (0 disables typo matching). Call before serving.
func (idx *NomenclatorIndex) SetFuzzyDistance(edits int) {
	idx.fuzzyEdits = max(edits, 0)
}

// Len returns the number of indexed entries.
func (idx *NomenclatorIndex) Len() int {
	return len(idx.entries)
}

// Lookup returns the entry for code, accepting dotted or undotted input.
func (idx *NomenclatorIndex) Lookup(code string) (domain.NCMEntry, error) {
	pos, ok := idx.byDigits[NormalizeCode(code)]
	if !ok {
		return domain.NCMEntry{}, fmt.Errorf("%w: ncm code %q", domain.ErrNotFound, code)
	}
	return idx.entries[pos].entry, nil
}

// Search tokenizes query and ranks matching entries.
func (idx *NomenclatorIndex) Search(query string, opts domain.SearchOptions) []domain.NCMMatch {
	return idx.SearchTerms(Tokenize(query), opts)
}

// SearchTerms ranks entries against already-normalized terms. Each distinct
// term contributes its best weight per entry: exact 1.0, substring 0.5 (both
// sides at least four runes), typo within the fuzzy distance 0.4 (both sides
// at least five runes). Results are ordered by the number of distinct terms
// matched, then by weighted score, then by code specificity (more digits
// first), then by catalog order. The code family filter is applied before
// ranking, so Limit always returns the best entries inside the family; a
// family that is not a code prefix matches nothing.
func (idx *NomenclatorIndex) SearchTerms(terms []string, opts domain.SearchOptions) []domain.NCMMatch {
	matches := make([]domain.NCMMatch, 0)
	terms = distinct(terms)
	if len(terms) == 0 || len(idx.entries) == 0 {
		return matches
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	family := ""
	if strings.TrimSpace(opts.CodeFamily) != "" {
		if !domain.IsCodeFamily(opts.CodeFamily) {
			return matches
		}
		family = NormalizeCode(opts.CodeFamily)
	}

	type accumulator struct {
		score   float64
		matched []string
	}
	scores := make(map[int]*accumulator)

	for _, term := range terms {
		weights := idx.termWeights(term)
		for pos, weight := range weights {
			if family != "" && !strings.HasPrefix(idx.entries[pos].digits, family) {
				continue
			}
			acc, ok := scores[pos]
			if !ok {
				acc = &accumulator{}
				scores[pos] = acc
			}
			acc.score += weight
			acc.matched = append(acc.matched, term)
		}
	}

	positions := make([]int, 0, len(scores))
	for pos := range scores {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if len(scores[a].matched) != len(scores[b].matched) {
			return len(scores[a].matched) > len(scores[b].matched)
		}
		if scores[a].score != scores[b].score {
			return scores[a].score > scores[b].score
		}
		if len(idx.entries[a].digits) != len(idx.entries[b].digits) {
			return len(idx.entries[a].digits) > len(idx.entries[b].digits)
		}
		return a < b
	})

	if len(positions) > limit {
		positions = positions[:limit]
	}
	for _, pos := range positions {
		matches = append(matches, domain.NCMMatch{
			Entry:        idx.entries[pos].entry,
			Score:        scores[pos].score,
			MatchedTerms: scores[pos].matched,
		})
	}
	return matches
}

// termWeights returns, per entry position, the best weight the term earns.
func (idx *NomenclatorIndex) termWeights(term string) map[int]float64 {
	weights := make(map[int]float64)
	for _, pos := range idx.postings[term] {
		weights[pos] = exactTermWeight
	}

	if utf8.RuneCountInString(term) < minSubstringRunes {
		return weights
	}
	for _, candidate := range idx.vocabulary {
		if candidate == term || utf8.RuneCountInString(candidate) < minSubstringRunes {
			continue
		}

		weight := 0.0
		switch {
		case strings.Contains(candidate, term) || strings.Contains(term, candidate):
			weight = substringTermWeight
		case idx.fuzzyEdits > 0 && fuzzyTokenMatch(term, candidate, idx.fuzzyEdits):
			weight = fuzzyTermWeight
		default:
			continue
		}
		for _, pos := range idx.postings[candidate] {
			if weights[pos] < weight {
				weights[pos] = weight
			}
		}
	}
	return weights
}

// NormalizeCode strips separators from an NCM code ("8427.10.11" → "84271011").
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCode renders digits in the dotted NCM layout (8427.10.11).
func FormatCode(code string) string {
	digits := NormalizeCode(code)
	switch {
	case len(digits) <= 4:
		return digits
	case len(digits) <= 6:
		return digits[:4] + "." + digits[4:]
	default:
		return digits[:4] + "." + digits[4:6] + "." + digits[6:]
	}
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
