package orchestrator

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes raw input text into the key form used for
// deduplication and caching: leading/trailing whitespace is trimmed, runs
// of internal whitespace collapse to a single space, and the result is
// lowercased. An empty result means "no active query".
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
