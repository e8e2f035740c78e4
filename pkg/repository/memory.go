// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/version"
)

// MemoryRoot is the virtual root of artifact paths reported by Memory for
// packages without an explicitly registered file.
const MemoryRoot = "/memory"

type (
	// Memory is an in-memory Repository. It is safe for concurrent use.
	Memory struct {
		mu          sync.RWMutex
		descriptors map[string]*Descriptor
		artifacts   map[string]string
		versions    map[string][]string
		failures    map[string]error

		descriptorCalls atomic.Int64
		artifactCalls   atomic.Int64
	}
)

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		descriptors: make(map[string]*Descriptor),
		artifacts:   make(map[string]string),
		versions:    make(map[string][]string),
		failures:    make(map[string]error),
	}
}

// Add registers descriptors. The version of each becomes available to
// range queries.
func (m *Memory) Add(descriptors ...Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range descriptors {
		d.Coords = d.Coords.WithVersion(d.Coords.Version)
		id := descriptorID(d.Coords)
		if _, exists := m.descriptors[id]; !exists {
			ga := d.Coords.GroupName()
			m.versions[ga] = append(m.versions[ga], d.Coords.Version)
		}
		m.descriptors[id] = &d
	}
}

// SetArtifact registers the file returned for c.
func (m *Memory) SetArtifact(c coords.PackageCoords, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[c.String()] = path
}

// FailDescriptor makes descriptor resolution of c fail with err.
func (m *Memory) FailDescriptor(c coords.PackageCoords, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[descriptorID(c)] = err
}

// DescriptorCalls returns how many descriptor lookups were served.
func (m *Memory) DescriptorCalls() int64 { return m.descriptorCalls.Load() }

// ArtifactCalls returns how many artifact lookups were served.
func (m *Memory) ArtifactCalls() int64 { return m.artifactCalls.Load() }

// ResolveDescriptor returns a copy of the registered descriptor.
func (m *Memory) ResolveDescriptor(ctx context.Context, c coords.PackageCoords, _ []Remote) (*Descriptor, error) {
	m.descriptorCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	id := descriptorID(c)
	if err, ok := m.failures[id]; ok {
		return nil, err
	}
	d, ok := m.descriptors[id]
	if !ok {
		return nil, &NotFoundError{Coords: c, What: "descriptor"}
	}
	out := *d
	out.Dependencies = append([]coords.Dependency(nil), d.Dependencies...)
	out.Managed = append([]coords.Dependency(nil), d.Managed...)
	out.Remotes = append([]Remote(nil), d.Remotes...)
	return &out, nil
}

// ResolveArtifactFile returns the registered file for c, or a path under
// MemoryRoot when only the descriptor is known.
func (m *Memory) ResolveArtifactFile(ctx context.Context, c coords.PackageCoords, _ []Remote) (string, error) {
	m.artifactCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if path, ok := m.artifacts[c.String()]; ok {
		return path, nil
	}
	if _, ok := m.descriptors[descriptorID(c)]; ok {
		return filepath.Join(LayoutDir(MemoryRoot, c), ArtifactFileName(c)), nil
	}
	return "", &NotFoundError{Coords: c, What: "artifact"}
}

// ResolveVersionRange returns the registered versions of key within rangeExpr, ascending.
func (m *Memory) ResolveVersionRange(ctx context.Context, key coords.PackageKey, rangeExpr string, _ []Remote) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := version.ParseConstraint(rangeExpr)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := append([]string(nil), m.versions[key.GroupName()]...)
	m.mu.RUnlock()

	matched := version.Filter(c, all)
	version.Sort(matched)
	return matched, nil
}

// descriptorID identifies a descriptor by group, name and version; classifier
// and type variants share their main artifact's descriptor.
func descriptorID(c coords.PackageCoords) string {
	return c.GroupName() + ":" + c.Version
}
