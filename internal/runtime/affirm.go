package runtime

import "strings"

// DefaultAffirmatives is the stock vocabulary accepted as "yes" to a correction offer.
var DefaultAffirmatives = []string{"yes", "yeah", "sure", "ok", "okay", "yep", "please"}

// AffirmativeMatcher interprets a yes/no style reply.
// A reply is affirmative when its case-folded text contains any keyword.
type AffirmativeMatcher struct {
	keywords []string
}

// NewAffirmativeMatcher builds a matcher from keywords. Blank keywords are
// dropped; an empty set falls back to DefaultAffirmatives.
func NewAffirmativeMatcher(keywords []string) *AffirmativeMatcher {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			normalized = append(normalized, k)
		}
	}
	if len(normalized) == 0 {
		return NewAffirmativeMatcher(DefaultAffirmatives)
	}
	return &AffirmativeMatcher{keywords: normalized}
}

// IsAffirmative reports whether reply accepts the correction offer.
func (m *AffirmativeMatcher) IsAffirmative(reply string) bool {
	folded := strings.ToLower(reply)
	for _, k := range m.keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// Keywords returns a copy of the normalized vocabulary.
func (m *AffirmativeMatcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}
