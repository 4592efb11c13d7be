package hotword

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultPhoneticThreshold is the minimum Jaro-Winkler score required for a
// phonetically-aligned fragment to count as a wake phrase match.
const defaultPhoneticThreshold = 0.82

// matcher tests normalized transcript fragments against the wake phrase
// variants. It is read-only after construction and safe for concurrent use.
type matcher struct {
	variants          []string // normalized
	phoneticThreshold float64
}

// newMatcher normalizes the variants once up front. Empty variants are
// dropped.
func newMatcher(variants []string, phoneticThreshold float64) *matcher {
	if phoneticThreshold <= 0 {
		phoneticThreshold = defaultPhoneticThreshold
	}
	m := &matcher{phoneticThreshold: phoneticThreshold}
	for _, v := range variants {
		if n := Normalize(v); n != "" {
			m.variants = append(m.variants, n)
		}
	}
	return m
}

// Match reports whether the fragment contains the wake phrase and returns
// the variant that matched. The fragment is normalized, then tested per
// variant: exact match, substring containment, and finally a phonetic
// near-match (Double Metaphone code overlap ranked by Jaro-Winkler) so that
// recognizer mishearings of the wake phrase still activate.
func (m *matcher) Match(fragment string) (variant string, ok bool) {
	text := Normalize(fragment)
	if text == "" {
		return "", false
	}
	tokens := strings.Fields(text)

	for _, v := range m.variants {
		if text == v || strings.Contains(text, v) {
			return v, true
		}
	}

	// Phonetic pass: compare each fragment token against single-token
	// variants and the whole fragment against multi-token variants.
	for _, v := range m.variants {
		if strings.ContainsRune(v, ' ') {
			if phoneticallyClose(strings.ReplaceAll(text, " ", ""), strings.ReplaceAll(v, " ", ""), m.phoneticThreshold) {
				return v, true
			}
			continue
		}
		for _, tok := range tokens {
			if phoneticallyClose(tok, v, m.phoneticThreshold) {
				return v, true
			}
		}
	}
	return "", false
}

// phoneticallyClose reports whether a and b share a Double Metaphone code
// and score at least threshold on Jaro-Winkler similarity.
func phoneticallyClose(a, b string, threshold float64) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	overlap := (ap != "" && (ap == bp || ap == bs)) || (as != "" && (as == bp || as == bs))
	if !overlap {
		return false
	}
	return matchr.JaroWinkler(a, b, false) >= threshold
}
