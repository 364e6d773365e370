package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// stripDiacritics decomposes accented characters and drops the combining
// marks, so "café" becomes "cafe" and "fiancée" becomes "fiancee".
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Generate builds a URL-safe slug from a title. Accented Latin characters
// are folded to their ASCII base; every other run of non-alphanumeric
// characters becomes a single hyphen.
func Generate(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))

	if folded, _, err := transform.String(stripDiacritics, s); err == nil {
		s = folded
	}

	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
