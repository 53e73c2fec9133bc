package orchestrator

import (
	"strings"
	"unicode/utf8"
)

// maxTailDiff is the length difference, in runes, up to which two queries
// where one prefixes the other are considered the same mid-typing query.
const maxTailDiff = 1

// nearDuplicate reports whether two normalized queries differ by at most
// maxTailDiff trailing runes, with one being a prefix of the other. It
// catches the common case of a user still typing (or deleting) the tail of
// the same semantic query.
func nearDuplicate(a, b string) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if diff > maxTailDiff {
		return false
	}

	shorter, longer := a, b
	if la > lb {
		shorter, longer = b, a
	}
	return strings.HasPrefix(longer, shorter)
}
