package bingo

import (
	"strings"
	"unicode"
)

// NormalizedTitle is the canonical comparison key for an article title:
// whitespace and underscore runs collapsed to a single underscore, leading
// and trailing underscores stripped, lower-cased.
type NormalizedTitle string

// Normalize produces the comparison key for a raw title. It is pure and
// idempotent: Normalize(string(Normalize(x))) == Normalize(x), and any two
// titles differing only in case, whitespace run length, or underscore/space
// interchange normalize identically.
func Normalize(raw string) NormalizedTitle {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	sep := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '_' {
			if !sep {
				b.WriteByte('_')
				sep = true
			}
			continue
		}
		sep = false
		b.WriteRune(unicode.ToLower(r))
	}

	return NormalizedTitle(strings.Trim(b.String(), "_"))
}

// SameTitle reports whether two raw titles normalize to the same key.
func SameTitle(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
