// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// ErrInvalidConstraint is the sentinel error wrapped by InvalidConstraintError.
var ErrInvalidConstraint = errors.New("invalid version constraint")

type (
	// Bound is one end of an Interval.
	Bound struct {
		Version   string
		Inclusive bool
	}

	// Interval is a contiguous version range. A nil bound is unbounded.
	Interval struct {
		Lower *Bound
		Upper *Bound
	}

	// Constraint is a parsed version requirement. It is one of:
	//   - a union of intervals, e.g. "[1.0,2.0)" or "(,1.0],[1.2,)"
	//   - a semver operator expression, e.g. "^1.2", "~1.4", ">=1.0 <2.0"
	//   - a plain version, which is a soft requirement and not a range
	Constraint struct {
		raw       string
		intervals []Interval
		semver    *mm.Constraints
	}

	// InvalidConstraintError is returned when a constraint expression cannot be parsed.
	InvalidConstraintError struct {
		Value  string
		Reason string
	}
)

// ParseConstraint parses a version constraint expression.
func ParseConstraint(expr string) (Constraint, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Constraint{}, &InvalidConstraintError{Value: expr, Reason: "empty expression"}
	}

	switch {
	case raw[0] == '[' || raw[0] == '(':
		intervals, err := parseIntervals(raw)
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{raw: raw, intervals: intervals}, nil
	case isSemverExpression(raw):
		c, err := mm.NewConstraint(raw)
		if err != nil {
			return Constraint{}, &InvalidConstraintError{Value: expr, Reason: err.Error()}
		}
		return Constraint{raw: raw, semver: c}, nil
	default:
		return Constraint{raw: raw}, nil
	}
}

// IsRange reports whether expr is a range expression rather than a plain version.
func IsRange(expr string) bool {
	c, err := ParseConstraint(expr)
	return err == nil && c.IsRange()
}

// CheckRange is IsRange for resolution: an expression written as a range
// that does not parse, such as "[1.0,2.0", fails with *InvalidConstraintError
// instead of passing as a plain version. An empty expr is not a range.
func CheckRange(expr string) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return false, nil
	}
	c, err := ParseConstraint(expr)
	if err != nil {
		return false, err
	}
	return c.IsRange(), nil
}

// IntervalExpr builds an interval expression. An empty lower or upper version
// leaves that side unbounded.
func IntervalExpr(lower string, lowerInclusive bool, upper string, upperInclusive bool) string {
	var sb strings.Builder
	if lower != "" && lowerInclusive {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('(')
	}
	sb.WriteString(lower)
	sb.WriteByte(',')
	sb.WriteString(upper)
	if upper != "" && upperInclusive {
		sb.WriteByte(']')
	} else {
		sb.WriteByte(')')
	}
	return sb.String()
}

// IsRange reports whether the constraint admits more than one version.
func (c Constraint) IsRange() bool {
	return len(c.intervals) > 0 || c.semver != nil
}

// String returns the expression the constraint was parsed from.
func (c Constraint) String() string { return c.raw }

// Intervals returns the parsed intervals of an interval expression.
func (c Constraint) Intervals() []Interval {
	return append([]Interval(nil), c.intervals...)
}

// Contains reports whether v satisfies the constraint.
func (c Constraint) Contains(v string) bool {
	switch {
	case len(c.intervals) > 0:
		for _, iv := range c.intervals {
			if iv.Contains(v) {
				return true
			}
		}
		return false
	case c.semver != nil:
		sv, err := mm.NewVersion(v)
		if err != nil {
			return false
		}
		return c.semver.Check(sv)
	default:
		return Compare(v, c.raw) == 0
	}
}

// Contains reports whether v lies within the interval.
func (iv Interval) Contains(v string) bool {
	if iv.Lower != nil {
		c := Compare(v, iv.Lower.Version)
		if c < 0 || (c == 0 && !iv.Lower.Inclusive) {
			return false
		}
	}
	if iv.Upper != nil {
		c := Compare(v, iv.Upper.Version)
		if c > 0 || (c == 0 && !iv.Upper.Inclusive) {
			return false
		}
	}
	return true
}

// String renders the interval in bracket notation.
func (iv Interval) String() string {
	if iv.Lower != nil && iv.Upper != nil && iv.Lower.Inclusive && iv.Upper.Inclusive &&
		iv.Lower.Version == iv.Upper.Version {
		return "[" + iv.Lower.Version + "]"
	}
	var lower, upper string
	lowerIncl, upperIncl := false, false
	if iv.Lower != nil {
		lower, lowerIncl = iv.Lower.Version, iv.Lower.Inclusive
	}
	if iv.Upper != nil {
		upper, upperIncl = iv.Upper.Version, iv.Upper.Inclusive
	}
	return IntervalExpr(lower, lowerIncl, upper, upperIncl)
}

func isSemverExpression(s string) bool {
	if strings.ContainsAny(s[:1], "^~<>=!") {
		return true
	}
	return strings.Contains(s, "||") || strings.ContainsAny(s, " *") || strings.HasSuffix(s, ".x")
}

func parseIntervals(raw string) ([]Interval, error) {
	var intervals []Interval
	rest := raw
	for rest != "" {
		open := rest[0]
		if open != '[' && open != '(' {
			return nil, &InvalidConstraintError{Value: raw, Reason: "interval must start with '[' or '('"}
		}
		end := strings.IndexAny(rest, "])")
		if end < 0 {
			return nil, &InvalidConstraintError{Value: raw, Reason: "unterminated interval"}
		}
		iv, err := parseInterval(raw, open, rest[1:end], rest[end])
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)

		rest = strings.TrimSpace(rest[end+1:])
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, &InvalidConstraintError{Value: raw, Reason: "intervals must be separated by ','"}
		}
		rest = strings.TrimSpace(rest[1:])
		if rest == "" {
			return nil, &InvalidConstraintError{Value: raw, Reason: "trailing ','"}
		}
	}
	return intervals, nil
}

func parseInterval(raw string, open byte, body string, closing byte) (Interval, error) {
	lowerIncl, upperIncl := open == '[', closing == ']'
	parts := strings.Split(body, ",")
	switch len(parts) {
	case 1:
		v := strings.TrimSpace(parts[0])
		if v == "" || !lowerIncl || !upperIncl {
			return Interval{}, &InvalidConstraintError{Value: raw, Reason: "single version interval must use [v]"}
		}
		b := &Bound{Version: v, Inclusive: true}
		return Interval{Lower: b, Upper: b}, nil
	case 2:
		var iv Interval
		if lower := strings.TrimSpace(parts[0]); lower != "" {
			iv.Lower = &Bound{Version: lower, Inclusive: lowerIncl}
		}
		if upper := strings.TrimSpace(parts[1]); upper != "" {
			iv.Upper = &Bound{Version: upper, Inclusive: upperIncl}
		}
		if iv.Lower != nil && iv.Upper != nil && Compare(iv.Lower.Version, iv.Upper.Version) > 0 {
			return Interval{}, &InvalidConstraintError{Value: raw, Reason: "lower bound exceeds upper bound"}
		}
		return iv, nil
	default:
		return Interval{}, &InvalidConstraintError{Value: raw, Reason: "interval has more than two bounds"}
	}
}

// Error implements the error interface for InvalidConstraintError.
func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("invalid version constraint %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidConstraint for errors.Is() compatibility.
func (e *InvalidConstraintError) Unwrap() error { return ErrInvalidConstraint }
