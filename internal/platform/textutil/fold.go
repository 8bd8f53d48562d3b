package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents strips combining marks so accented and plain spellings compare
// equal ("São Paulo" and "Sao Paulo" fold to the same string).
func FoldAccents(value string) string {
	folded, _, err := transform.String(foldTransformer, value)
	if err != nil {
		return value
	}
	return folded
}

// NormalizePlaceName lower-cases, folds accents and collapses internal
// whitespace, producing a canonical key for city and neighborhood matching.
func NormalizePlaceName(value string) string {
	folded := FoldAccents(strings.TrimSpace(value))
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// EqualPlaceNames reports whether two place names match ignoring case,
// accents and surrounding whitespace.
func EqualPlaceNames(a, b string) bool {
	return NormalizePlaceName(a) == NormalizePlaceName(b)
}
