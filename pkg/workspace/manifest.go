// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invowk/appmodel/pkg/coords"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFileName is the conventional workspace manifest name.
const ManifestFileName = "appmodel-workspace.toml"

// ErrInvalidManifest is the sentinel error wrapped by ManifestError.
var ErrInvalidManifest = errors.New("invalid workspace manifest")

type (
	// ManifestError reports a manifest that cannot be decoded or validated.
	ManifestError struct {
		Path string
		Err  error
	}

	manifestFile struct {
		Modules []moduleEntry `toml:"module"`
	}

	moduleEntry struct {
		Coords       string           `toml:"coords"`
		Dir          string           `toml:"dir"`
		Dependencies []dependencyItem `toml:"dependency"`
		Managed      []dependencyItem `toml:"managed"`
		Sources      []sourcesEntry   `toml:"sources"`
	}

	dependencyItem struct {
		Coords     string   `toml:"coords"`
		Scope      string   `toml:"scope"`
		Optional   bool     `toml:"optional"`
		Exclusions []string `toml:"exclusions"`
	}

	sourcesEntry struct {
		Classifier string     `toml:"classifier"`
		Dirs       []dirEntry `toml:"dirs"`
	}

	dirEntry struct {
		Source string `toml:"source"`
		Output string `toml:"output"`
	}
)

// DefaultSources returns the conventional layout used when a module declares
// no sources: src/main/java and src/main/resources compiled to target/classes
// for the main artifact, and the src/test equivalents compiled to
// target/test-classes for the tests artifact.
func DefaultSources(moduleDir string) map[string]ArtifactSources {
	main := filepath.Join(moduleDir, "target", "classes")
	tests := filepath.Join(moduleDir, "target", "test-classes")
	return map[string]ArtifactSources{
		MainClassifier: {
			Classifier: MainClassifier,
			Dirs: []SourceDir{
				{Source: filepath.Join(moduleDir, "src", "main", "java"), Output: main},
				{Source: filepath.Join(moduleDir, "src", "main", "resources"), Output: main},
			},
		},
		coords.ClassifierTests: {
			Classifier: coords.ClassifierTests,
			Dirs: []SourceDir{
				{Source: filepath.Join(moduleDir, "src", "test", "java"), Output: tests},
				{Source: filepath.Join(moduleDir, "src", "test", "resources"), Output: tests},
			},
		},
	}
}

// LoadManifest reads the TOML manifest at path. Module directories are
// relative to the manifest's directory.
func LoadManifest(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workspace manifest: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace manifest path: %w", err)
	}
	return ParseManifest(data, abs)
}

// ParseManifest decodes a manifest. path locates the manifest; its directory
// anchors relative module directories.
func ParseManifest(data []byte, path string) (*Workspace, error) {
	var f manifestFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}

	root := filepath.Dir(path)
	modules := make([]*Module, 0, len(f.Modules))
	for i, entry := range f.Modules {
		m, err := entry.toModule(root)
		if err != nil {
			return nil, &ManifestError{Path: path, Err: fmt.Errorf("module[%d]: %w", i, err)}
		}
		modules = append(modules, m)
	}
	ws, err := New(root, modules...)
	if err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}
	return ws, nil
}

func (e moduleEntry) toModule(root string) (*Module, error) {
	id, err := coords.ParseCoords(e.Coords)
	if err != nil {
		return nil, err
	}
	dir := e.Dir
	if dir == "" {
		dir = id.Name
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	m := &Module{ID: id, Dir: dir}
	for i, item := range e.Dependencies {
		d, depErr := item.toDependency()
		if depErr != nil {
			return nil, fmt.Errorf("dependency[%d]: %w", i, depErr)
		}
		m.Dependencies = append(m.Dependencies, d)
	}
	for i, item := range e.Managed {
		d, depErr := item.toDependency()
		if depErr != nil {
			return nil, fmt.Errorf("managed[%d]: %w", i, depErr)
		}
		m.Managed = append(m.Managed, d)
	}

	if len(e.Sources) == 0 {
		m.Sources = DefaultSources(dir)
		return m, nil
	}
	m.Sources = make(map[string]ArtifactSources, len(e.Sources))
	for _, s := range e.Sources {
		as := ArtifactSources{Classifier: s.Classifier}
		for _, d := range s.Dirs {
			as.Dirs = append(as.Dirs, SourceDir{Source: under(dir, d.Source), Output: under(dir, d.Output)})
		}
		m.Sources[s.Classifier] = as
	}
	return m, nil
}

func (item dependencyItem) toDependency() (coords.Dependency, error) {
	c, err := coords.ParseCoords(item.Coords)
	if err != nil {
		// Workspace dependencies may omit the version and take it from the
		// managed section.
		k, keyErr := coords.ParseKey(item.Coords)
		if keyErr != nil {
			return coords.Dependency{}, err
		}
		c = k.WithVersion("")
	}
	scope, err := coords.ParseScope(item.Scope)
	if err != nil {
		return coords.Dependency{}, err
	}
	d := coords.Dependency{Coords: c, Scope: scope, Optional: item.Optional}
	for _, raw := range item.Exclusions {
		e, exclErr := coords.ParseExclusion(raw)
		if exclErr != nil {
			return coords.Dependency{}, exclErr
		}
		d.Exclusions = append(d.Exclusions, e)
	}
	return d, nil
}

func under(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Error implements the error interface for ManifestError.
func (e *ManifestError) Error() string {
	return fmt.Sprintf("workspace manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrInvalidManifest and the underlying cause.
func (e *ManifestError) Unwrap() []error {
	return []error{ErrInvalidManifest, e.Err}
}
