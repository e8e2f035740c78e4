// SPDX-License-Identifier: MPL-2.0

package coords

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// DefaultType is the artifact type assumed when none is declared.
	DefaultType = "jar"

	// ClassifierSources selects the sources variant of an artifact.
	ClassifierSources = "sources"
	// ClassifierTests selects the test fixtures variant of an artifact.
	ClassifierTests = "tests"
)

var (
	// ErrInvalidKey is the sentinel error wrapped by InvalidKeyError.
	ErrInvalidKey = errors.New("invalid package key")
	// ErrInvalidCoords is the sentinel error wrapped by InvalidCoordsError.
	ErrInvalidCoords = errors.New("invalid package coordinates")
)

type (
	// PackageKey is the version-less identity of an artifact.
	// Keys are comparable and can be used directly as map keys once normalized.
	PackageKey struct {
		Group      string
		Name       string
		Classifier string
		// Type is the packaging type. The empty string is normalized to DefaultType.
		Type string
	}

	// PackageCoords identifies a single artifact version. Version may hold a
	// concrete version or a range expression such as "[1.0,2.0)".
	PackageCoords struct {
		PackageKey
		Version string
	}

	// InvalidKeyError is returned when a key string cannot be parsed.
	InvalidKeyError struct {
		Value  string
		Reason string
	}

	// InvalidCoordsError is returned when a coordinate string cannot be parsed.
	InvalidCoordsError struct {
		Value  string
		Reason string
	}
)

// NewKey returns a normalized key.
func NewKey(group, name, classifier, typ string) PackageKey {
	return PackageKey{Group: group, Name: name, Classifier: classifier, Type: typ}.Normalize()
}

// NewCoords returns normalized coordinates for a main artifact.
func NewCoords(group, name, version string) PackageCoords {
	return PackageCoords{PackageKey: NewKey(group, name, "", ""), Version: version}
}

// Normalize returns the key with the default type applied.
func (k PackageKey) Normalize() PackageKey {
	if k.Type == "" {
		k.Type = DefaultType
	}
	return k
}

// GroupName returns "group:name", the part of the key that identifies a module.
func (k PackageKey) GroupName() string {
	return k.Group + ":" + k.Name
}

// String renders the key as group:name[:classifier[:type]].
// The type segment is omitted when it is the default type.
func (k PackageKey) String() string {
	k = k.Normalize()
	s := k.Group + ":" + k.Name
	if k.Type != DefaultType {
		return s + ":" + k.Classifier + ":" + k.Type
	}
	if k.Classifier != "" {
		s += ":" + k.Classifier
	}
	return s
}

// Compare orders keys by group, name, classifier and type.
func (k PackageKey) Compare(other PackageKey) int {
	k, other = k.Normalize(), other.Normalize()
	return cmp.Or(
		strings.Compare(k.Group, other.Group),
		strings.Compare(k.Name, other.Name),
		strings.Compare(k.Classifier, other.Classifier),
		strings.Compare(k.Type, other.Type),
	)
}

// IsValid reports whether the key names a group and an artifact.
func (k PackageKey) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(k.Group) == "" {
		errs = append(errs, &InvalidKeyError{Value: k.String(), Reason: "group is empty"})
	}
	if strings.TrimSpace(k.Name) == "" {
		errs = append(errs, &InvalidKeyError{Value: k.String(), Reason: "name is empty"})
	}
	return len(errs) == 0, errs
}

// WithVersion returns coordinates for this key at the given version.
func (k PackageKey) WithVersion(version string) PackageCoords {
	return PackageCoords{PackageKey: k.Normalize(), Version: version}
}

// Key returns the normalized version-less identity.
func (c PackageCoords) Key() PackageKey {
	return c.PackageKey.Normalize()
}

// WithClassifier returns the coordinates of a classifier-specific variant,
// e.g. the "sources" or "tests" artifact of the same version.
func (c PackageCoords) WithClassifier(classifier string) PackageCoords {
	c.PackageKey = c.Key()
	c.Classifier = classifier
	return c
}

// WithVersion returns a copy of c with the version replaced.
func (c PackageCoords) WithVersion(version string) PackageCoords {
	c.PackageKey = c.Key()
	c.Version = version
	return c
}

// String renders the compact form group:name[:classifier][:type]:version.
// Classifier and type are omitted when they are empty and default respectively.
func (c PackageCoords) String() string {
	k := c.Key()
	switch {
	case k.Classifier != "":
		return fmt.Sprintf("%s:%s:%s:%s:%s", k.Group, k.Name, k.Classifier, k.Type, c.Version)
	case k.Type != DefaultType:
		return fmt.Sprintf("%s:%s:%s:%s", k.Group, k.Name, k.Type, c.Version)
	default:
		return fmt.Sprintf("%s:%s:%s", k.Group, k.Name, c.Version)
	}
}

// Compare orders coordinates by key and then lexically by version string.
// Use the version package for precedence-aware ordering.
func (c PackageCoords) Compare(other PackageCoords) int {
	return cmp.Or(c.Key().Compare(other.Key()), strings.Compare(c.Version, other.Version))
}

// ParseKey parses group:name[:classifier[:type]].
func ParseKey(s string) (PackageKey, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var k PackageKey
	switch len(parts) {
	case 2:
		k = PackageKey{Group: parts[0], Name: parts[1]}
	case 3:
		k = PackageKey{Group: parts[0], Name: parts[1], Classifier: parts[2]}
	case 4:
		k = PackageKey{Group: parts[0], Name: parts[1], Classifier: parts[2], Type: parts[3]}
	default:
		return PackageKey{}, &InvalidKeyError{Value: s, Reason: "expected 2 to 4 colon separated segments"}
	}
	k = k.Normalize()
	if ok, errs := k.IsValid(); !ok {
		return PackageKey{}, errs[0]
	}
	return k, nil
}

// ParseCoords parses group:name:version, group:name:type:version or
// group:name:classifier:type:version.
func ParseCoords(s string) (PackageCoords, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var c PackageCoords
	switch len(parts) {
	case 3:
		c = PackageCoords{PackageKey: PackageKey{Group: parts[0], Name: parts[1]}, Version: parts[2]}
	case 4:
		c = PackageCoords{PackageKey: PackageKey{Group: parts[0], Name: parts[1], Type: parts[2]}, Version: parts[3]}
	case 5:
		c = PackageCoords{
			PackageKey: PackageKey{Group: parts[0], Name: parts[1], Classifier: parts[2], Type: parts[3]},
			Version:    parts[4],
		}
	default:
		return PackageCoords{}, &InvalidCoordsError{Value: s, Reason: "expected 3 to 5 colon separated segments"}
	}
	c.PackageKey = c.Key()
	if ok, _ := c.PackageKey.IsValid(); !ok {
		return PackageCoords{}, &InvalidCoordsError{Value: s, Reason: "group and name are required"}
	}
	return c, nil
}

// SortKeys sorts keys in place using PackageKey.Compare.
func SortKeys(keys []PackageKey) {
	slices.SortFunc(keys, PackageKey.Compare)
}

// Error implements the error interface for InvalidKeyError.
func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid package key %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidKey for errors.Is() compatibility.
func (e *InvalidKeyError) Unwrap() error { return ErrInvalidKey }

// Error implements the error interface for InvalidCoordsError.
func (e *InvalidCoordsError) Error() string {
	return fmt.Sprintf("invalid package coordinates %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidCoords for errors.Is() compatibility.
func (e *InvalidCoordsError) Unwrap() error { return ErrInvalidCoords }
