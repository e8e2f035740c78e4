// SPDX-License-Identifier: MPL-2.0

// Package scope decides which direct dependencies enter the dependency graph
// for a build mode.
package scope

import (
	"errors"
	"fmt"

	"github.com/invowk/appmodel/pkg/coords"
)

const (
	// Normal builds the production application: provided and test scopes are excluded.
	Normal Mode = iota
	// Dev builds for development: test scope is excluded and provided
	// dependencies are tracked for compile-time visibility only.
	Dev
	// Test builds for tests: every scope is kept.
	Test
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid build mode")

type (
	// Mode is the build mode of a resolution request.
	Mode int

	// Result partitions direct dependencies for a mode.
	Result struct {
		// Kept enter the dependency graph.
		Kept []coords.Dependency
		// CompileOnly are provided dependencies kept out of the graph but
		// resolved for compilation in dev mode.
		CompileOnly []coords.Dependency
		// Excluded are dropped for this mode.
		Excluded []coords.Dependency
	}

	// InvalidModeError is returned when a mode name is not recognized.
	InvalidModeError struct {
		Value string
	}
)

// ParseMode parses "normal", "dev" or "test". The empty string is Normal.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "normal", "prod":
		return Normal, nil
	case "dev":
		return Dev, nil
	case "test":
		return Test, nil
	default:
		return Normal, &InvalidModeError{Value: s}
	}
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Dev:
		return "dev"
	case Test:
		return "test"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// IsValid returns whether m is a known mode.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case Normal, Dev, Test:
		return true, nil
	default:
		return false, []error{&InvalidModeError{Value: m.String()}}
	}
}

// Excludes reports whether dependencies with scope s are dropped in mode m.
func (m Mode) Excludes(s coords.Scope) bool {
	switch s.Normalize() {
	case coords.ScopeImport:
		return true
	case coords.ScopeProvided:
		return m != Test
	case coords.ScopeTest:
		return m != Test
	default:
		return false
	}
}

// TracksCompileOnly reports whether provided dependencies are collected
// separately in mode m.
func (m Mode) TracksCompileOnly() bool {
	return m == Dev
}

// Filter partitions deps for mode m, preserving order within each partition.
func Filter(deps []coords.Dependency, m Mode) Result {
	var r Result
	for _, d := range deps {
		sc := d.Scope.Normalize()
		switch {
		case !m.Excludes(sc):
			r.Kept = append(r.Kept, d)
		case sc == coords.ScopeProvided && m.TracksCompileOnly():
			r.CompileOnly = append(r.CompileOnly, d)
		default:
			r.Excluded = append(r.Excluded, d)
		}
	}
	return r
}

// Error implements the error interface for InvalidModeError.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid build mode %q (valid: normal, dev, test)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }
