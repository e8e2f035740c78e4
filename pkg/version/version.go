// SPDX-License-Identifier: MPL-2.0

// Package version orders published package versions and evaluates version
// constraints. Strict semantic versions are compared with semver precedence;
// everything else falls back to a tokenized comparison in which numeric
// segments compare numerically and qualifiers follow the usual release
// lifecycle (alpha < beta < milestone < rc < snapshot < release < sp).
package version

import (
	"slices"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

type token struct {
	numeric bool
	text    string
}

// qualifierRank orders well-known qualifiers. Unknown qualifiers rank after
// every known one and compare lexically among themselves.
var qualifierRank = map[string]int{
	"alpha":     1,
	"a":         1,
	"beta":      2,
	"b":         2,
	"milestone": 3,
	"m":         3,
	"rc":        4,
	"cr":        4,
	"snapshot":  5,
	"":          6,
	"ga":        6,
	"final":     6,
	"release":   6,
	"sp":        7,
}

const unknownQualifierRank = 8

// Compare returns -1, 0 or 1 when a is lower than, equal to or higher than b.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := mm.StrictNewVersion(a)
	vb, errB := mm.StrictNewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareTokens(tokenize(a), tokenize(b))
}

// Less reports whether a orders before b.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// Sort orders versions ascending in place. Equal versions keep their order.
func Sort(versions []string) {
	slices.SortStableFunc(versions, Compare)
}

// Max returns the highest version, or "" for an empty list.
func Max(versions []string) string {
	var best string
	for i, v := range versions {
		if i == 0 || Compare(v, best) > 0 {
			best = v
		}
	}
	return best
}

// Filter returns the versions contained in c, preserving input order.
func Filter(c Constraint, versions []string) []string {
	var out []string
	for _, v := range versions {
		if c.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

func tokenize(v string) []token {
	v = strings.ToLower(strings.TrimSpace(v))
	var (
		tokens []token
		cur    strings.Builder
		digits bool
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		text := cur.String()
		if digits {
			text = strings.TrimLeft(text, "0")
			if text == "" {
				text = "0"
			}
		}
		tokens = append(tokens, token{numeric: digits, text: text})
		cur.Reset()
	}
	for _, r := range v {
		isDigit := r >= '0' && r <= '9'
		switch {
		case r == '.' || r == '-' || r == '_' || r == '+':
			flush()
			continue
		case cur.Len() > 0 && isDigit != digits:
			flush()
		}
		digits = isDigit
		cur.WriteRune(r)
	}
	flush()
	return tokens
}

func compareTokens(a, b []token) int {
	n := max(len(a), len(b))
	for i := range n {
		var ta, tb *token
		if i < len(a) {
			ta = &a[i]
		}
		if i < len(b) {
			tb = &b[i]
		}
		if c := compareToken(ta, tb); c != 0 {
			return c
		}
	}
	return 0
}

// compareToken compares two tokens; nil stands for a missing trailing token,
// which equals "0" or a release qualifier.
func compareToken(a, b *token) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -compareToken(b, nil)
	case b == nil:
		if a.numeric {
			if a.text == "0" {
				return 0
			}
			return 1
		}
		return compareQualifiers(a.text, "")
	case a.numeric && b.numeric:
		if len(a.text) != len(b.text) {
			if len(a.text) < len(b.text) {
				return -1
			}
			return 1
		}
		return strings.Compare(a.text, b.text)
	case a.numeric:
		return 1
	case b.numeric:
		return -1
	default:
		return compareQualifiers(a.text, b.text)
	}
}

func compareQualifiers(a, b string) int {
	ra, okA := qualifierRank[a]
	if !okA {
		ra = unknownQualifierRank
	}
	rb, okB := qualifierRank[b]
	if !okB {
		rb = unknownQualifierRank
	}
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	case !okA && !okB:
		return strings.Compare(a, b)
	default:
		return 0
	}
}
