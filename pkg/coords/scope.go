// SPDX-License-Identifier: MPL-2.0

package coords

import (
	"errors"
	"fmt"
)

const (
	// ScopeCompile dependencies are needed to compile and run.
	ScopeCompile Scope = "compile"
	// ScopeRuntime dependencies are needed only at run time.
	ScopeRuntime Scope = "runtime"
	// ScopeProvided dependencies are supplied by the hosting environment.
	ScopeProvided Scope = "provided"
	// ScopeTest dependencies are needed only by tests.
	ScopeTest Scope = "test"
	// ScopeImport marks a managed entry that imports a bill of materials.
	ScopeImport Scope = "import"
)

// ErrInvalidScope is the sentinel error wrapped by InvalidScopeError.
var ErrInvalidScope = errors.New("invalid scope")

type (
	// Scope is the classpath scope of a dependency edge.
	// The empty scope is treated as ScopeCompile.
	Scope string

	// InvalidScopeError is returned when a scope name is not recognized.
	InvalidScopeError struct {
		Value Scope
	}
)

// ParseScope validates and normalizes a scope name.
func ParseScope(s string) (Scope, error) {
	sc := Scope(s).Normalize()
	if ok, errs := sc.IsValid(); !ok {
		return "", errs[0]
	}
	return sc, nil
}

// Normalize maps the empty scope to ScopeCompile.
func (s Scope) Normalize() Scope {
	if s == "" {
		return ScopeCompile
	}
	return s
}

// String returns the scope name.
func (s Scope) String() string { return string(s.Normalize()) }

// IsValid returns whether the scope is one of the known scopes.
func (s Scope) IsValid() (bool, []error) {
	switch s.Normalize() {
	case ScopeCompile, ScopeRuntime, ScopeProvided, ScopeTest, ScopeImport:
		return true, nil
	default:
		return false, []error{&InvalidScopeError{Value: s}}
	}
}

// IsTransitive reports whether dependencies declared with this scope are
// inherited by consumers of the declaring package.
func (s Scope) IsTransitive() bool {
	switch s.Normalize() {
	case ScopeCompile, ScopeRuntime:
		return true
	default:
		return false
	}
}

// Inherit returns the effective scope of a transitive dependency declared
// with scope child on a package that is itself in scope s.
func (s Scope) Inherit(child Scope) Scope {
	parent, child := s.Normalize(), child.Normalize()
	switch parent {
	case ScopeProvided, ScopeTest:
		return parent
	case ScopeRuntime:
		return ScopeRuntime
	default:
		return child
	}
}

// rank orders scopes by how much of the application they are visible to.
func (s Scope) rank() int {
	switch s.Normalize() {
	case ScopeCompile:
		return 4
	case ScopeRuntime:
		return 3
	case ScopeProvided:
		return 2
	case ScopeTest:
		return 1
	default:
		return 0
	}
}

// Wider reports whether s is visible to more of the application than other.
func (s Scope) Wider(other Scope) bool {
	return s.rank() > other.rank()
}

// Widest returns the wider of a and b. Ties keep a.
func Widest(a, b Scope) Scope {
	if b.Wider(a) {
		return b.Normalize()
	}
	return a.Normalize()
}

// Error implements the error interface for InvalidScopeError.
func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid scope %q (valid: compile, runtime, provided, test, import)", e.Value)
}

// Unwrap returns ErrInvalidScope for errors.Is() compatibility.
func (e *InvalidScopeError) Unwrap() error { return ErrInvalidScope }
