package hotword

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes to NFD, drops combining marks, and recomposes,
// so "però" and "pero" normalize identically.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalises a recognizer fragment for hotword matching:
// lowercase, diacritics stripped, punctuation removed, whitespace collapsed
// to single spaces. Recognizers disagree on capitalisation and punctuation
// of interim results; matching happens in this canonical space only.
func Normalize(text string) string {
	lower := strings.ToLower(text)

	folded, _, err := transform.String(foldDiacritics, lower)
	if err != nil {
		// Transform failures leave the input usable as-is.
		folded = lower
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return -1
	}, folded)

	return strings.Join(strings.Fields(cleaned), " ")
}
