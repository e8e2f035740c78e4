// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/pathtree"
	"github.com/invowk/appmodel/pkg/version"
)

// LocalRootEnvVar overrides the default local repository location.
const LocalRootEnvVar = "APPMODEL_REPOSITORY"

type (
	// Local is a Repository over a directory laid out as
	// <root>/<group path>/<name>/<version>/<name>-<version>[-<classifier>].<type>
	// with descriptors stored next to the artifact as <name>-<version>.cue.
	// When no descriptor file exists the descriptor embedded in the main
	// artifact at EmbeddedDescriptorPath is used.
	//
	// Local never contacts remotes; the remotes arguments are ignored.
	Local struct {
		root     string
		archives *pathtree.Registry
	}

	// LocalOption configures a Local repository.
	LocalOption func(*Local)
)

// WithArchiveRegistry sets the registry used to read embedded descriptors.
// The process-wide registry is used by default.
func WithArchiveRegistry(r *pathtree.Registry) LocalOption {
	return func(l *Local) { l.archives = r }
}

// NewLocal returns a repository rooted at root.
func NewLocal(root string, opts ...LocalOption) *Local {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	l := &Local{root: root}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultLocalRoot returns the repository location from APPMODEL_REPOSITORY
// or ~/.appmodel/repository.
func DefaultLocalRoot() (string, error) {
	return DefaultLocalRootWith(os.Getenv)
}

// DefaultLocalRootWith is DefaultLocalRoot with an injectable environment lookup.
func DefaultLocalRootWith(getenv func(string) string) (string, error) {
	if root := getenv(LocalRootEnvVar); root != "" {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".appmodel", "repository"), nil
}

// Root returns the repository directory.
func (l *Local) Root() string { return l.root }

// ArtifactPath returns where the artifact of c is stored.
func (l *Local) ArtifactPath(c coords.PackageCoords) string {
	return filepath.Join(LayoutDir(l.root, c), ArtifactFileName(c))
}

// DescriptorPath returns where the descriptor of c is stored.
func (l *Local) DescriptorPath(c coords.PackageCoords) string {
	return filepath.Join(LayoutDir(l.root, c), DescriptorFileName(c))
}

// ResolveDescriptor reads the descriptor file of c, falling back to the
// descriptor embedded in the main artifact.
func (l *Local) ResolveDescriptor(ctx context.Context, c coords.PackageCoords, _ []Remote) (*Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := l.DescriptorPath(c)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return ParseDescriptor(data, path)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read descriptor %s: %w", path, err)
	}

	main := c.WithClassifier("")
	main.Type = coords.DefaultType
	archive := l.ArtifactPath(main)
	if _, statErr := os.Stat(archive); statErr != nil {
		return nil, &NotFoundError{Coords: c, What: "descriptor"}
	}
	return l.readEmbeddedDescriptor(c, archive)
}

func (l *Local) readEmbeddedDescriptor(c coords.PackageCoords, archive string) (_ *Descriptor, err error) {
	var tree *pathtree.SharedArchiveTree
	if l.archives != nil {
		tree, err = l.archives.ForPath(archive)
	} else {
		tree, err = pathtree.ForPath(archive)
	}
	if err != nil {
		return nil, err
	}

	open, err := tree.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := open.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	data, err := open.ReadFile(EmbeddedDescriptorPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Coords: c, What: "descriptor"}
	}
	if err != nil {
		return nil, fmt.Errorf("read embedded descriptor of %s: %w", archive, err)
	}
	return ParseDescriptor(data, archive+"!/"+EmbeddedDescriptorPath)
}

// ResolveArtifactFile returns the artifact path of c if it exists.
func (l *Local) ResolveArtifactFile(ctx context.Context, c coords.PackageCoords, _ []Remote) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := l.ArtifactPath(c)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", &NotFoundError{Coords: c, What: "artifact"}
	}
	return path, nil
}

// ResolveVersionRange lists the version directories of key that hold a
// descriptor or main artifact and match rangeExpr, ascending.
func (l *Local) ResolveVersionRange(ctx context.Context, key coords.PackageKey, rangeExpr string, _ []Remote) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	constraint, err := version.ParseConstraint(rangeExpr)
	if err != nil {
		return nil, err
	}

	base := filepath.Join(append([]string{l.root}, strings.Split(key.Group, ".")...)...)
	base = filepath.Join(base, key.Name)
	entries, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", key, err)
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() || !constraint.Contains(e.Name()) {
			continue
		}
		c := key.WithVersion(e.Name())
		if fileExists(l.DescriptorPath(c)) || fileExists(l.ArtifactPath(coords.NewCoords(key.Group, key.Name, e.Name()))) {
			versions = append(versions, e.Name())
		}
	}
	version.Sort(versions)
	return versions, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
