package sanitizer

import (
	"strings"
	"unicode"
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func lower(s string) string {
	return strings.ToLower(s)
}

// dropControl removes control characters, including the whitespace ones.
func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// TrimAndNormalize trims s and collapses every run of inner whitespace into
// a single space.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
