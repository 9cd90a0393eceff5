package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize turns free text into a comparable slug: accents folded, lowercase,
// every run of non-alphanumerics collapsed to a single hyphen, no hyphen at
// either end. Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// SlugFor derives a guide slug from its title.
func SlugFor(title string) string {
	slug := Normalize(title)
	if slug == "" {
		return "untitled"
	}
	return slug
}

// SameValue reports whether two free-text values are equal after normalization.
func SameValue(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
