package parse

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, removes combining marks, and recomposes.
// "País/Región" -> "Pais/Region".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader produces the comparison key used during auto-mapping:
// trimmed, lowercased, diacritics stripped. The original header string is
// what gets stored in a ColumnMapping so row lookups still work.
func NormalizeHeader(header string) string {
	s := strings.TrimSpace(header)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.ToLower(s)
}
