package forums

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AcademicForumTitle is the forum name that also gets peer reviews turned off.
const AcademicForumTitle = "foro academico"

const keptPunctuation = ".,!?-"

// Normalize returns a case, accent and punctuation insensitive form of a forum title:
// trimmed, lowercased, decomposed (NFD), restricted to letters, digits, '_',
// whitespace and ".,!?-", with combining marks removed. Internal whitespace is kept as is.
func Normalize(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', unicode.IsSpace(r):
			return r
		case strings.ContainsRune(keptPunctuation, r):
			return r
		}
		return -1
	}, s)

	// dropping symbols can expose edge whitespace, e.g. "¿ foro"
	return strings.TrimSpace(s)
}

// SameTitle compares two forum titles by their normalized form.
func SameTitle(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
