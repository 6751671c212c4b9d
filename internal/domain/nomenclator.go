package domain

// NCMEntry is one catalog row.
type NCMEntry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// NCMMatch is a ranked search hit.
type NCMMatch struct {
	Entry        NCMEntry `json:"entry"`
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matchedTerms,omitempty"`
}

// SearchOptions controls a nomenclator search.
type SearchOptions struct {
	Limit      int
	CodeFamily string
}

// IsCodeFamily reports whether s is a usable code prefix: one to eight
// digits, optionally separated by dots or spaces.
func IsCodeFamily(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == ' ':
		default:
			return false
		}
	}
	return digits > 0 && digits <= 8
}
