// Package fuzzy implements the close-match helpers used to suggest player and
// stat names when user input does not match the dataset exactly.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultCutoff    = 0.6
	DefaultMaxPerKey = 3
	MaxSuggestions   = 3
)

// Normalize lower-cases s, strips diacritics and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Similarity returns a score in [0, 1] where 1 means the normalized strings are equal.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		return 1
	}

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}

	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

type scored struct {
	value string
	score float64
}

// CloseMatches returns up to n candidates scoring at least cutoff against word,
// best first. Equal scores keep candidate order.
func CloseMatches(word string, candidates []string, n int, cutoff float64) []string {
	if n <= 0 || strings.TrimSpace(word) == "" {
		return nil
	}

	matches := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if s := Similarity(word, c); s >= cutoff {
			matches = append(matches, scored{value: c, score: s})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > n {
		matches = matches[:n]
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.value)
	}
	return out
}

// Best returns the single closest candidate above cutoff.
func Best(word string, candidates []string, cutoff float64) (string, bool) {
	m := CloseMatches(word, candidates, 1, cutoff)
	if len(m) == 0 {
		return "", false
	}
	return m[0], true
}

// Suggestions merges close matches for every token, de-duplicated and capped
// at MaxSuggestions.
func Suggestions(tokens []string, candidates []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, MaxSuggestions)

	for _, token := range tokens {
		for _, m := range CloseMatches(token, candidates, DefaultMaxPerKey, DefaultCutoff) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
			if len(out) == MaxSuggestions {
				return out
			}
		}
	}

	return out
}
