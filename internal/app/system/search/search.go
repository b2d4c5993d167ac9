// Package search implements synonym-aware text matching for list filters.
//
// A query is folded (lowercase, diacritics stripped) and split into tokens.
// Punctuation separates words the same way spaces do.
// Multi-word synonym terms ("internal medicine") are recognized as a single
// token. A candidate matches when every token matches the start of a word in
// at least one field, either directly or through a synonym.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dalemusser/waffle/pantry/text"
)

// DefaultGroups are the built-in synonym groups for clinical services.
var DefaultGroups = [][]string{
	{"er", "ed", "emergency", "emergency department", "emergency room"},
	{"icu", "intensive care", "critical care"},
	{"ccu", "coronary care", "cardiac care"},
	{"im", "internal medicine", "internal"},
	{"peds", "pediatrics", "paediatrics"},
	{"ob", "obstetrics"},
	{"gyn", "gynecology", "gynaecology"},
	{"ortho", "orthopedics", "orthopaedics"},
	{"gi", "gastroenterology"},
	{"neuro", "neurology"},
	{"cardio", "cardiology"},
	{"surg", "surgery", "surgical"},
	{"anesth", "anesthesia", "anaesthesia", "anesthesiology"},
	{"rad", "radiology", "imaging"},
	{"derm", "dermatology"},
	{"psych", "psychiatry"},
}

// Matcher holds a synonym index. It is safe for concurrent use once built.
type Matcher struct {
	groups    [][]string
	byTerm    map[string][]int
	maxPhrase int // longest term, in words
}

// New builds a Matcher from synonym groups. Terms are folded; empty terms and
// groups with fewer than two terms are ignored.
func New(groups [][]string) *Matcher {
	m := &Matcher{byTerm: make(map[string][]int), maxPhrase: 1}
	for _, g := range groups {
		var terms []string
		seen := make(map[string]bool)
		for _, t := range g {
			f := fold(t)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			terms = append(terms, f)
		}
		if len(terms) < 2 {
			continue
		}
		idx := len(m.groups)
		m.groups = append(m.groups, terms)
		for _, t := range terms {
			m.byTerm[t] = append(m.byTerm[t], idx)
			if n := len(strings.Fields(t)); n > m.maxPhrase {
				m.maxPhrase = n
			}
		}
	}
	return m
}

// NewWithExtra builds a Matcher from DefaultGroups plus groups parsed from spec.
func NewWithExtra(spec string) *Matcher {
	groups := append([][]string{}, DefaultGroups...)
	groups = append(groups, ParseGroups(spec)...)
	return New(groups)
}

// ParseGroups parses "a|b|c;d|e" into synonym groups.
func ParseGroups(spec string) [][]string {
	var out [][]string
	for _, part := range strings.Split(spec, ";") {
		var g []string
		for _, t := range strings.Split(part, "|") {
			if t = strings.TrimSpace(t); t != "" {
				g = append(g, t)
			}
		}
		if len(g) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// Expand returns every spelling a single term may match, including itself.
// The result is sorted for stable output.
func (m *Matcher) Expand(term string) []string {
	f := fold(term)
	if f == "" {
		return nil
	}
	set := map[string]bool{f: true}
	for _, gi := range m.byTerm[f] {
		for _, t := range m.groups[gi] {
			set[t] = true
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Tokens splits a query into tokens, each given as its list of alternatives.
// The longest known synonym phrase at each position wins.
func (m *Matcher) Tokens(query string) [][]string {
	words := strings.Fields(fold(query))
	var out [][]string
	for i := 0; i < len(words); {
		n := 1
		for k := min(m.maxPhrase, len(words)-i); k > 1; k-- {
			if _, ok := m.byTerm[strings.Join(words[i:i+k], " ")]; ok {
				n = k
				break
			}
		}
		out = append(out, m.Expand(strings.Join(words[i:i+n], " ")))
		i += n
	}
	return out
}

// Match reports whether every query token matches one of the fields.
// An empty query matches everything.
func (m *Matcher) Match(query string, fields ...string) bool {
	tokens := m.Tokens(query)
	if len(tokens) == 0 {
		return true
	}

	// Folded fields are space-joined words, so " "+alt marks a word start
	// even after punctuation such as "Ob-Gyn" or "jane.smith@".
	hay := make([]string, 0, len(fields))
	for _, f := range fields {
		if ff := fold(f); ff != "" {
			hay = append(hay, " "+ff)
		}
	}

	for _, alts := range tokens {
		if !anyWordPrefix(hay, alts) {
			return false
		}
	}
	return true
}

// Filter returns the items whose fields match query.
func Filter[T any](m *Matcher, query string, items []T, fields func(T) []string) []T {
	if strings.TrimSpace(query) == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if m.Match(query, fields(it)...) {
			out = append(out, it)
		}
	}
	return out
}

func anyWordPrefix(hay []string, alts []string) bool {
	for _, h := range hay {
		for _, a := range alts {
			if strings.Contains(h, " "+a) {
				return true
			}
		}
	}
	return false
}

// fold applies text.Fold and splits on anything that is not a letter or
// digit, rejoining the words with single spaces.
func fold(s string) string {
	return strings.Join(strings.FieldsFunc(text.Fold(s), isSeparator), " ")
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
