package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "José" -> "Jose").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// FullName joins given and family name the way they are displayed.
func FullName(given, family string) string {
	return strings.TrimSpace(strings.TrimSpace(given) + " " + strings.TrimSpace(family))
}

// NameMatches reports whether query is contained in the person's full name
// or external key, ignoring case and diacritics. An empty query matches everything.
func NameMatches(query, given, family, externalKey string) bool {
	q := NormalizePersonName(query)
	if q == "" {
		return true
	}
	if strings.Contains(NormalizePersonName(FullName(given, family)), q) {
		return true
	}
	return strings.Contains(strings.ToLower(externalKey), q)
}
