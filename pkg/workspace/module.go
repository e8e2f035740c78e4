// SPDX-License-Identifier: MPL-2.0

// Package workspace describes the locally buildable modules of a multi-module
// project: their coordinates, declared dependencies and the source and output
// directories of each artifact they produce.
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/invowk/appmodel/pkg/coords"
)

// MainClassifier is the classifier of a module's main artifact.
const MainClassifier = ""

type (
	// SourceDir pairs a source directory with the directory its compiled
	// output is written to.
	SourceDir struct {
		Source string
		Output string
	}

	// ArtifactSources lists the directories producing one artifact of a module.
	ArtifactSources struct {
		Classifier string
		Dirs       []SourceDir
	}

	// Module is a local module. It is not modified once its workspace is built.
	Module struct {
		ID  coords.PackageCoords
		Dir string
		// Dependencies are the declared dependencies in declaration order.
		Dependencies []coords.Dependency
		// Managed are the declared managed constraints. Entries with
		// coords.ScopeImport import a bill of materials.
		Managed []coords.Dependency
		// Sources maps a classifier to the directories producing that artifact.
		Sources map[string]ArtifactSources
	}
)

// Key returns the package key of the module's main artifact.
func (m *Module) Key() coords.PackageKey { return m.ID.Key() }

// String returns the module coordinates.
func (m *Module) String() string { return m.ID.String() }

// ArtifactSources returns the sources of the artifact with classifier,
// falling back to the main artifact.
func (m *Module) ArtifactSources(classifier string) (ArtifactSources, bool) {
	if s, ok := m.Sources[classifier]; ok {
		return s, true
	}
	s, ok := m.Sources[MainClassifier]
	return s, ok
}

// OutputDirs returns the output directories in declaration order.
func (a ArtifactSources) OutputDirs() []string {
	out := make([]string, 0, len(a.Dirs))
	for _, d := range a.Dirs {
		out = append(out, d.Output)
	}
	return out
}

// IsBuilt reports whether every output directory exists.
func (a ArtifactSources) IsBuilt() bool {
	if len(a.Dirs) == 0 {
		return false
	}
	for _, d := range a.Dirs {
		info, err := os.Stat(d.Output)
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// IsStale reports whether a source file is newer than the newest output file.
// Unbuilt artifacts are stale.
func (a ArtifactSources) IsStale() bool {
	if !a.IsBuilt() {
		return true
	}
	var newestSource, newestOutput time.Time
	for _, d := range a.Dirs {
		newestSource = later(newestSource, newestModTime(d.Source))
		newestOutput = later(newestOutput, newestModTime(d.Output))
	}
	return newestSource.After(newestOutput)
}

func newestModTime(dir string) time.Time {
	var newest time.Time
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil //nolint:nilerr // files removed during the walk are ignored
		}
		newest = later(newest, info.ModTime())
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return time.Time{}
	}
	return newest
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
