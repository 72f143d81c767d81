// Package normalize canonicalizes raw invoice fields and builds the
// search query used for factor retrieval.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Fold lower-cases text and strips diacritics so that accented catalogue
// terms compare equal to their plain spellings.
func Fold(value string) string {
	decomposed := norm.NFKD.String(value)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// Tokens extracts the set of alphanumeric tokens longer than one
// character from the folded concatenation of the given values.
func Tokens(values ...string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, value := range values {
		if value == "" {
			continue
		}
		for _, match := range tokenPattern.FindAllString(Fold(value), -1) {
			if len(match) > 1 {
				tokens[match] = struct{}{}
			}
		}
	}
	return tokens
}

// CleanText trims surrounding whitespace. Blank strings stay empty so
// that absent fields never carry stray spaces into queries or output.
func CleanText(value string) string {
	return strings.TrimSpace(value)
}

// SafeFloat parses numeric text accepting both international and
// comma-decimal notation. It fails soft: unparsable input yields nil.
func SafeFloat(value string) *float64 {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	if parsed, err := strconv.ParseFloat(text, 64); err == nil {
		return &parsed
	}
	if strings.Contains(text, ",") {
		var cleaned string
		if strings.Contains(text, ".") {
			// "1,389.96" style: commas are thousands separators
			cleaned = strings.ReplaceAll(text, ",", "")
		} else if strings.Count(text, ",") == 1 {
			// "1389,96" style: comma is the decimal separator
			cleaned = strings.Replace(text, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(text, ",", "")
		}
		if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return &parsed
		}
	}
	return nil
}
