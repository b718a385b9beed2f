package analyzer

import "strings"

// noTickerVocabulary holds values that mean "no ticker was provided".
// Matched case-insensitively after trimming.
var noTickerVocabulary = map[string]struct{}{
	"":          {},
	"undefined": {},
	"null":      {},
}

// NormalizeTicker canonicalizes a raw ticker value. ok is false when the
// value is empty or a reserved no-value token; otherwise the trimmed
// original value is returned unchanged. Downstream routing must never treat
// a reserved token as a real company reference.
func NormalizeTicker(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if _, reserved := noTickerVocabulary[strings.ToLower(trimmed)]; reserved {
		return "", false
	}
	return trimmed, true
}
