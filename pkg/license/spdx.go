package license

import (
	"strings"
	"sync"

	"github.com/github/go-spdx/v2/spdxexp/spdxlicenses"

	"github.com/matzehuels/nodebundle/pkg/deps"
)

type spdxTables struct {
	licenses   map[string]string // lower-cased id -> canonical id
	exceptions map[string]string
}

// tables indexes the SPDX license list, deprecated ids included since older
// manifests still declare them (e.g. "GPL-2.0").
var tables = sync.OnceValue(func() spdxTables {
	t := spdxTables{
		licenses:   make(map[string]string),
		exceptions: make(map[string]string),
	}
	for _, list := range [][]string{spdxlicenses.GetLicenses(), spdxlicenses.GetDeprecated()} {
		for _, id := range list {
			t.licenses[strings.ToLower(id)] = id
		}
	}
	for _, id := range spdxlicenses.GetExceptions() {
		t.exceptions[strings.ToLower(id)] = id
	}
	return t
})

// Identifier returns the canonical spelling of an SPDX license identifier,
// matching case-insensitively. A trailing "+" (or-later shorthand) is kept.
func Identifier(s string) (string, bool) {
	s = strings.TrimSpace(s)
	plus := strings.HasSuffix(s, "+")
	id, ok := tables().licenses[strings.ToLower(strings.TrimSuffix(s, "+"))]
	if !ok {
		return "", false
	}
	if plus {
		id += "+"
	}
	return id, true
}

// Exception returns the canonical spelling of an SPDX license exception.
func Exception(s string) (string, bool) {
	id, ok := tables().exceptions[strings.ToLower(strings.TrimSpace(s))]
	return id, ok
}

// Normalize turns raw license declarations into the ordered, deduplicated
// identifier list of a dependency.
//
// Each value may be a plain identifier or an SPDX expression. Disjunctions
// such as "(MIT OR Apache-2.0)" contribute one entry per alternative.
// Conjunctions and "WITH" exceptions are kept whole when every operand is
// recognized. Anything else becomes [deps.UnknownLicense], as does an empty
// declaration.
func Normalize(raw ...string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, r := range raw {
		for _, term := range splitOr(r) {
			add(normalizeTerm(term))
		}
	}
	if len(out) == 0 {
		return []string{deps.UnknownLicense}
	}
	return out
}

func splitOr(expr string) []string {
	expr = trimParens(strings.TrimSpace(expr))
	if expr == "" {
		return nil
	}
	var terms []string
	for _, t := range splitKeyword(expr, "OR") {
		terms = append(terms, trimParens(strings.TrimSpace(t)))
	}
	return terms
}

func normalizeTerm(term string) string {
	parts := splitKeyword(term, "AND")
	for i, p := range parts {
		id, ok := simpleTerm(trimParens(strings.TrimSpace(p)))
		if !ok {
			return deps.UnknownLicense
		}
		parts[i] = id
	}
	return strings.Join(parts, " AND ")
}

// simpleTerm normalizes "<license>" or "<license> WITH <exception>".
func simpleTerm(term string) (string, bool) {
	with := splitKeyword(term, "WITH")
	switch len(with) {
	case 1:
		return Identifier(term)
	case 2:
		id, ok := Identifier(with[0])
		if !ok {
			return "", false
		}
		exc, ok := Exception(with[1])
		if !ok {
			return "", false
		}
		return id + " WITH " + exc, true
	default:
		return "", false
	}
}

// splitKeyword splits s on an SPDX operator surrounded by spaces. Operators
// are matched case-insensitively, as npm accepts "mit or isc".
func splitKeyword(s, keyword string) []string {
	fields := strings.Fields(s)
	var (
		out []string
		cur []string
	)
	for _, f := range fields {
		if strings.EqualFold(f, keyword) {
			out = append(out, strings.Join(cur, " "))
			cur = nil
			continue
		}
		cur = append(cur, f)
	}
	return append(out, strings.Join(cur, " "))
}

// trimParens strips parentheses that enclose the whole expression.
func trimParens(s string) string {
	for len(s) >= 2 && s[0] == '(' && closing(s) == len(s)-1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// closing returns the index of the parenthesis matching s[0], or -1.
func closing(s string) int {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
