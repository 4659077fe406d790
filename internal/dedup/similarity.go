package dedup

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Process lowercases s, folds diacritics, turns every rune that is not a
// letter or digit into a space and trims the result.
func Process(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.TrimSpace(s)
}

// SortTokens processes s and joins its whitespace-separated tokens in
// lexical order.
func SortTokens(s string) string {
	tokens := strings.Fields(Process(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Ratio is the sequence-matcher similarity of a and b scaled to 0..100.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(chars(a), chars(b))
	return percent(m.Ratio())
}

// TokenSortRatio compares a and b independent of word order. Strings that
// are empty after processing score 0.
func TokenSortRatio(a, b string) int {
	return Ratio(SortTokens(a), SortTokens(b))
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func percent(f float64) int {
	return int(math.Round(100 * f))
}
