package domain

// SourceVariant identifies a supported marketplace. The zero value means the
// URL did not match any known marketplace.
type SourceVariant string

const (
	SourceNone       SourceVariant = ""
	SourceAlibaba    SourceVariant = "alibaba"
	SourceAliExpress SourceVariant = "aliexpress"
	SourceAmazon     SourceVariant = "amazon"
)

// KnownSources lists every supported marketplace variant.
var KnownSources = []SourceVariant{SourceAlibaba, SourceAliExpress, SourceAmazon}

// IsKnown reports whether v is one of the supported variants.
func (v SourceVariant) IsKnown() bool {
	for _, known := range KnownSources {
		if v == known {
			return true
		}
	}
	return false
}

func (v SourceVariant) String() string {
	if v == SourceNone {
		return "none"
	}
	return string(v)
}
