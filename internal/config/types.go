// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/repository"
	"github.com/invowk/appmodel/pkg/scope"
)

const (
	// LogLevelDebug logs every resolved dependency.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs one line per resolution.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs stale workspace outputs and skipped cycles.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidBuildMode is returned when a BuildMode value is not recognized.
	ErrInvalidBuildMode = errors.New("invalid build mode")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidExclusionPattern is the sentinel error wrapped by InvalidExclusionPatternError.
	ErrInvalidExclusionPattern = errors.New("invalid exclusion pattern")
	// ErrInvalidRemoteEntry is the sentinel error wrapped by InvalidRemoteEntryError.
	ErrInvalidRemoteEntry = errors.New("invalid remote entry")
	// ErrInvalidRepositoryConfig is the sentinel error wrapped by InvalidRepositoryConfigError.
	ErrInvalidRepositoryConfig = errors.New("invalid repository config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// BuildMode selects which dependency scopes a model keeps.
	BuildMode string

	// InvalidBuildModeError is returned when a BuildMode value is not recognized.
	// It wraps ErrInvalidBuildMode for errors.Is() compatibility.
	InvalidBuildModeError struct {
		Value BuildMode
	}

	// LogLevel is the minimum level of logged messages.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ExclusionPattern is a group:name[:classifier[:type]] exclusion with glob fields.
	ExclusionPattern string

	// InvalidExclusionPatternError is returned when an ExclusionPattern cannot be parsed.
	InvalidExclusionPatternError struct {
		Value ExclusionPattern
		Err   error
	}

	// InvalidRemoteEntryError is returned when a RemoteEntry has invalid fields.
	InvalidRemoteEntryError struct {
		Entry  RemoteEntry
		Reason string
	}

	// InvalidRepositoryConfigError is returned when a RepositoryConfig has invalid fields.
	// It collects field-level validation errors.
	InvalidRepositoryConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// RemoteEntry is a remote repository passed to every resolution.
	RemoteEntry struct {
		ID  string `json:"id" yaml:"id" mapstructure:"id"`
		URL string `json:"url" yaml:"url" mapstructure:"url"`
	}

	// Config holds the application configuration.
	Config struct {
		// Repository configures where packages are read from.
		Repository RepositoryConfig `json:"repository" yaml:"repository" mapstructure:"repository"`
		// Workspace configures the local modules substituted into models.
		Workspace WorkspaceConfig `json:"workspace" yaml:"workspace" mapstructure:"workspace"`
		// Mode is the default build mode.
		Mode BuildMode `json:"mode" yaml:"mode" mapstructure:"mode"`
		// AllowPendingModules records unbuilt workspace modules as pending
		// instead of failing.
		AllowPendingModules bool `json:"allow_pending_modules" yaml:"allow_pending_modules" mapstructure:"allow_pending_modules"`
		// ExcludedArtifacts are removed from every model.
		ExcludedArtifacts []ExclusionPattern `json:"excluded_artifacts" yaml:"excluded_artifacts" mapstructure:"excluded_artifacts"`
		// Log configures logging
		Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`
	}

	// RepositoryConfig configures the package repository.
	RepositoryConfig struct {
		// Local is the local repository directory. Empty uses the default location.
		Local string `json:"local" yaml:"local" mapstructure:"local"`
		// Remotes are passed to the repository with every request.
		Remotes []RemoteEntry `json:"remotes" yaml:"remotes" mapstructure:"remotes"`
	}

	// WorkspaceConfig configures the workspace.
	WorkspaceConfig struct {
		// Manifest is the workspace manifest path. Empty disables workspace substitution.
		Manifest string `json:"manifest" yaml:"manifest" mapstructure:"manifest"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		// Level is the minimum logged level
		Level LogLevel `json:"level" yaml:"level" mapstructure:"level"`
		// DependencyTree prints the dependency tree of every resolved model
		DependencyTree bool `json:"dependency_tree" yaml:"dependency_tree" mapstructure:"dependency_tree"`
		// DependencyTreeVerbose adds scopes and flags to the dependency tree
		DependencyTreeVerbose bool `json:"dependency_tree_verbose" yaml:"dependency_tree_verbose" mapstructure:"dependency_tree_verbose"`
	}
)

// String returns the string representation of the BuildMode.
func (m BuildMode) String() string { return string(m) }

// Scope returns the scope filter mode of m.
func (m BuildMode) Scope() (scope.Mode, error) {
	mode, err := scope.ParseMode(string(m))
	if err != nil {
		return scope.Normal, &InvalidBuildModeError{Value: m}
	}
	return mode, nil
}

// IsValid returns whether the BuildMode names a known mode, and a list of
// validation errors if it does not.
func (m BuildMode) IsValid() (bool, []error) {
	if _, err := m.Scope(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidBuildModeError.
func (e *InvalidBuildModeError) Error() string {
	return fmt.Sprintf("invalid build mode %q (valid: normal, dev, test)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidBuildModeError) Unwrap() error { return ErrInvalidBuildMode }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the ExclusionPattern.
func (p ExclusionPattern) String() string { return string(p) }

// Exclusion parses the pattern.
func (p ExclusionPattern) Exclusion() (coords.Exclusion, error) {
	e, err := coords.ParseExclusion(string(p))
	if err != nil {
		return coords.Exclusion{}, &InvalidExclusionPatternError{Value: p, Err: err}
	}
	return e, nil
}

// IsValid returns whether the pattern parses.
func (p ExclusionPattern) IsValid() (bool, []error) {
	if _, err := p.Exclusion(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidExclusionPatternError.
func (e *InvalidExclusionPatternError) Error() string {
	return fmt.Sprintf("invalid exclusion pattern %q: %v", e.Value, e.Err)
}

// Unwrap returns ErrInvalidExclusionPattern and the parse error.
func (e *InvalidExclusionPatternError) Unwrap() []error {
	return []error{ErrInvalidExclusionPattern, e.Err}
}

// IsValid returns whether the RemoteEntry has an id and an absolute URL.
func (r RemoteEntry) IsValid() (bool, []error) {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return false, []error{&InvalidRemoteEntryError{Entry: r, Reason: "id must be non-empty"}}
	case !strings.Contains(r.URL, "://"):
		return false, []error{&InvalidRemoteEntryError{Entry: r, Reason: "url must be absolute"}}
	default:
		return true, nil
	}
}

// Remote converts the entry for the repository.
func (r RemoteEntry) Remote() repository.Remote {
	return repository.Remote{ID: r.ID, URL: r.URL}
}

// Error implements the error interface for InvalidRemoteEntryError.
func (e *InvalidRemoteEntryError) Error() string {
	return fmt.Sprintf("invalid remote %q: %s", e.Entry.ID, e.Reason)
}

// Unwrap returns ErrInvalidRemoteEntry for errors.Is() compatibility.
func (e *InvalidRemoteEntryError) Unwrap() error { return ErrInvalidRemoteEntry }

// IsValid returns whether every remote is valid and remote ids are unique.
func (c RepositoryConfig) IsValid() (bool, []error) {
	var errs []error
	seen := make(map[string]bool, len(c.Remotes))
	for _, r := range c.Remotes {
		if valid, fieldErrs := r.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
			continue
		}
		if seen[r.ID] {
			errs = append(errs, &InvalidRemoteEntryError{Entry: r, Reason: "duplicate id"})
		}
		seen[r.ID] = true
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRepositoryConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// RemoteList returns the configured remotes in order.
func (c RepositoryConfig) RemoteList() []repository.Remote {
	out := make([]repository.Remote, 0, len(c.Remotes))
	for _, r := range c.Remotes {
		out = append(out, r.Remote())
	}
	return out
}

// Error implements the error interface for InvalidRepositoryConfigError.
func (e *InvalidRepositoryConfigError) Error() string {
	return fmt.Sprintf("invalid repository config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidRepositoryConfig and the field errors.
func (e *InvalidRepositoryConfigError) Unwrap() []error {
	return append([]error{ErrInvalidRepositoryConfig}, e.FieldErrors...)
}

// IsValid returns whether the Config has valid fields.
// It delegates to Repository.IsValid(), Mode.IsValid(), each exclusion's
// IsValid() and Log.Level.IsValid().
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Repository.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Mode.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, p := range c.ExcludedArtifacts {
		if valid, fieldErrs := p.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Exclusions parses ExcludedArtifacts.
func (c Config) Exclusions() ([]coords.Exclusion, error) {
	out := make([]coords.Exclusion, 0, len(c.ExcludedArtifacts))
	for _, p := range c.ExcludedArtifacts {
		e, err := p.Exclusion()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Local:   "", // Will use repository.DefaultLocalRoot() if empty
			Remotes: []RemoteEntry{},
		},
		Mode:              BuildMode(scope.Normal.String()),
		ExcludedArtifacts: []ExclusionPattern{},
		Log: LogConfig{
			Level: LogLevelWarn,
		},
	}
}
