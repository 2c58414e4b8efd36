// Package match holds the name and location matching primitives shared by
// the world cache, the market optimizer and the retrieval engine.
package match

import (
	"sort"
	"strings"
	"unicode"
)

// Normalize lowercases and trims s and collapses inner whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Equal reports whether a and b are the same name ignoring case and spacing.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Best picks the candidate that matches q: an exact (case-insensitive) match
// first, else the shortest candidate containing q. Ties go to the lexically
// smaller name so results are stable across map iteration orders.
func Best(candidates []string, q string) (string, bool) {
	nq := Normalize(q)
	if nq == "" {
		return "", false
	}
	for _, c := range candidates {
		if Normalize(c) == nq {
			return c, true
		}
	}
	var hits []string
	for _, c := range candidates {
		if strings.Contains(Normalize(c), nq) {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.Slice(hits, func(i, j int) bool {
		if len(hits[i]) != len(hits[j]) {
			return len(hits[i]) < len(hits[j])
		}
		return hits[i] < hits[j]
	})
	return hits[0], true
}

// ContainsFold reports whether filter is a case-insensitive substring of any
// of fields. An empty filter matches everything.
func ContainsFold(filter string, fields ...string) bool {
	nf := Normalize(filter)
	if nf == "" {
		return true
	}
	for _, f := range fields {
		if f != "" && strings.Contains(Normalize(f), nf) {
			return true
		}
	}
	return false
}

// Tokenize lowercases s, replaces every non-alphanumeric rune with a space and
// splits on whitespace.
func Tokenize(s string) []string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Fields(mapped)
}

// TokenSet returns the distinct tokens of s.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}
