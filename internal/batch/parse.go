package batch

import (
	"strings"
	"unicode"
)

// ParseCourseIDs splits operator input on commas and any whitespace, keeping
// order and duplicates and dropping empty tokens.
func ParseCourseIDs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
