// SPDX-License-Identifier: MPL-2.0

package coords

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Wildcard matches any value in an exclusion field.
const Wildcard = "*"

type (
	// Exclusion removes matching packages from the subtree of the edge that
	// declares it. Fields are glob patterns; an empty Classifier or Type
	// matches any value.
	Exclusion struct {
		Group      string
		Name       string
		Classifier string
		Type       string
	}

	// Dependency is a declared dependency edge.
	Dependency struct {
		Coords     PackageCoords
		Scope      Scope
		Optional   bool
		Exclusions []Exclusion
		// Direct is set for edges declared by the application root or supplied by the caller.
		Direct bool
	}
)

// ExcludeKey returns an exclusion matching exactly the group and name of k.
func ExcludeKey(k PackageKey) Exclusion {
	return Exclusion{Group: k.Group, Name: k.Name}
}

// ParseExclusion parses group:name[:classifier[:type]] where every segment may be a glob.
func ParseExclusion(s string) (Exclusion, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 4 {
		return Exclusion{}, &InvalidKeyError{Value: s, Reason: "exclusion must have 2 to 4 segments"}
	}
	e := Exclusion{Group: parts[0], Name: parts[1]}
	if len(parts) > 2 {
		e.Classifier = parts[2]
	}
	if len(parts) > 3 {
		e.Type = parts[3]
	}
	return e, nil
}

// Matches reports whether k is excluded.
func (e Exclusion) Matches(k PackageKey) bool {
	k = k.Normalize()
	return matchField(e.Group, k.Group, false) &&
		matchField(e.Name, k.Name, false) &&
		matchField(e.Classifier, k.Classifier, true) &&
		matchField(e.Type, k.Type, true)
}

// String renders the exclusion in group:name[:classifier[:type]] form.
func (e Exclusion) String() string {
	s := e.Group + ":" + e.Name
	if e.Classifier != "" || e.Type != "" {
		s += ":" + e.Classifier
	}
	if e.Type != "" {
		s += ":" + e.Type
	}
	return s
}

func matchField(pattern, value string, emptyMatchesAll bool) bool {
	if pattern == "" {
		return emptyMatchesAll || value == ""
	}
	if pattern == Wildcard || pattern == value {
		return true
	}
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

// NewDependency returns a compile-scoped dependency on c.
func NewDependency(c PackageCoords) Dependency {
	return Dependency{Coords: c.WithVersion(c.Version), Scope: ScopeCompile}
}

// Key returns the normalized key of the dependency target.
func (d Dependency) Key() PackageKey {
	return d.Coords.Key()
}

// Excludes reports whether any exclusion on d matches k.
func (d Dependency) Excludes(k PackageKey) bool {
	return ExcludedBy(d.Exclusions, k)
}

// Normalize returns d with normalized coordinates and scope.
func (d Dependency) Normalize() Dependency {
	d.Coords.PackageKey = d.Coords.Key()
	d.Scope = d.Scope.Normalize()
	return d
}

// String renders the dependency as coords followed by non-default attributes.
func (d Dependency) String() string {
	s := d.Coords.String()
	if sc := d.Scope.Normalize(); sc != ScopeCompile {
		s += " (" + string(sc) + ")"
	}
	if d.Optional {
		s += " optional"
	}
	return s
}

// ExcludedBy reports whether any exclusion in the list matches k.
func ExcludedBy(exclusions []Exclusion, k PackageKey) bool {
	for _, e := range exclusions {
		if e.Matches(k) {
			return true
		}
	}
	return false
}
