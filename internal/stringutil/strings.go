// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes free text for comparison.
// Accents are folded, letters are lower-cased and every rune that is not an
// ASCII letter or digit is dropped, so "NEBOSH-General", "nebosh general"
// and "nebosh  general!" all collapse to "neboshgeneral".
//
// Normalize is total: empty input yields an empty string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	folded, _, err := transform.String(foldAccents(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Words is Normalize with word boundaries kept: tokens are separated by a
// single space ("NEBOSH Health & Safety" -> "nebosh health safety").
// Matching on whole words keeps short codes like "hsa" from hitting the
// middle of "healthsafety".
func Words(s string) string {
	if s == "" {
		return ""
	}

	folded, _, err := transform.String(foldAccents(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// ContainsWords reports whether the word sequence of sub appears in s on
// word boundaries.
func ContainsWords(s, sub string) bool {
	w := Words(sub)
	if w == "" {
		return false
	}
	return strings.Contains(" "+Words(s)+" ", " "+w+" ")
}

// foldAccents returns a fresh transformer; transform.Chain is stateful and
// must not be shared between goroutines.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// ContainsNormalized reports whether the normalized form of s contains the
// normalized form of sub. An empty sub never matches.
func ContainsNormalized(s, sub string) bool {
	n := Normalize(sub)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(s), n)
}

// ContainsAny checks if s contains any of the substrings.
func ContainsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Title returns s in British English title case ("chelmsford" -> "Chelmsford").
func Title(s string) string {
	return cases.Title(language.BritishEnglish).String(strings.TrimSpace(s))
}

// JoinOr joins items as a human-readable alternative list:
// "A", "A or B", "A, B or C".
func JoinOr(items []string) string {
	return joinWith(items, "or")
}

// JoinAnd joins items as a human-readable list: "A", "A and B", "A, B and C".
func JoinAnd(items []string) string {
	return joinWith(items, "and")
}

func joinWith(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " " + conj + " " + items[len(items)-1]
	}
}

// IsNumeric checks if a string contains only digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// UniqueFold drops later items that equal an earlier one ignoring case,
// keeping the first spelling seen.
func UniqueFold(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		k := strings.ToLower(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}
