// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/invowk/appmodel/internal/testutil"
	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/pathtree"
)

func sampleDescriptor() *Descriptor {
	return &Descriptor{
		Coords: coords.NewCoords("org.acme", "app", "1.0"),
		Dependencies: []coords.Dependency{
			{Coords: coords.NewCoords("org.acme", "lib", "[1.0,2.0)"), Scope: coords.ScopeCompile},
			{
				Coords:     coords.NewCoords("org.acme", "servlet-api", "4.0"),
				Scope:      coords.ScopeProvided,
				Optional:   true,
				Exclusions: []coords.Exclusion{{Group: "org.log", Name: "*"}},
			},
		},
		Managed: []coords.Dependency{
			{Coords: coords.NewCoords("org.acme", "platform", "1.0"), Scope: coords.ScopeImport},
			{Coords: coords.NewCoords("org.acme", "driver", "3.2")},
		},
		Remotes: []Remote{{ID: "central", URL: "https://repo.example.org/maven2"}},
	}
}

func TestDescriptor_MarshalParse(t *testing.T) {
	t.Parallel()

	want := sampleDescriptor()
	got, err := ParseDescriptor(MarshalDescriptor(want), "app-1.0.cue")
	if err != nil {
		t.Fatalf("ParseDescriptor: %v\n%s", err, MarshalDescriptor(want))
	}

	if got.Coords != want.Coords {
		t.Errorf("Coords = %s, want %s", got.Coords, want.Coords)
	}
	if len(got.Dependencies) != 2 || got.Dependencies[1].Scope != coords.ScopeProvided || !got.Dependencies[1].Optional {
		t.Errorf("unexpected dependencies %+v", got.Dependencies)
	}
	if !got.Dependencies[1].Excludes(coords.NewKey("org.log", "legacy", "", "")) {
		t.Error("exclusion lost in round trip")
	}
	if imports := got.ManagedImports(); len(imports) != 1 || imports[0].Name != "platform" {
		t.Errorf("ManagedImports() = %v", imports)
	}
	if len(got.Remotes) != 1 || got.Remotes[0].ID != "central" {
		t.Errorf("Remotes = %v", got.Remotes)
	}
}

func TestParseDescriptor_InvalidScope(t *testing.T) {
	t.Parallel()

	doc := `coords: "org.acme:app:1.0"
dependencies: [{coords: "org.acme:lib:1.0", scope: "system"}]
`
	if _, err := ParseDescriptor([]byte(doc), "bad.cue"); err == nil {
		t.Fatal("expected schema violation for unknown scope")
	}
}

func TestMemory_Resolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemory()
	repo.Add(
		Descriptor{Coords: coords.NewCoords("org.acme", "lib", "2.0")},
		Descriptor{Coords: coords.NewCoords("org.acme", "lib", "1.0")},
		Descriptor{Coords: coords.NewCoords("org.acme", "lib", "1.5")},
	)

	versions, err := repo.ResolveVersionRange(ctx, coords.NewKey("org.acme", "lib", "", ""), "[1.0,2.0)", nil)
	if err != nil {
		t.Fatalf("ResolveVersionRange: %v", err)
	}
	if want := []string{"1.0", "1.5"}; !slices.Equal(versions, want) {
		t.Errorf("versions = %v, want %v", versions, want)
	}

	_, err = repo.ResolveDescriptor(ctx, coords.NewCoords("org.acme", "missing", "1.0"), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	path, err := repo.ResolveArtifactFile(ctx, coords.NewCoords("org.acme", "lib", "1.5"), nil)
	if err != nil {
		t.Fatalf("ResolveArtifactFile: %v", err)
	}
	if filepath.Base(path) != "lib-1.5.jar" {
		t.Errorf("artifact path = %s", path)
	}
	if repo.DescriptorCalls() != 1 || repo.ArtifactCalls() != 1 {
		t.Errorf("call counters = %d/%d", repo.DescriptorCalls(), repo.ArtifactCalls())
	}
}

func TestLocal_DescriptorFileAndVersions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	repo := NewLocal(root)

	for _, v := range []string{"1.0", "1.5", "2.0"} {
		c := coords.NewCoords("org.acme", "lib", v)
		testutil.MustWriteFile(t, repo.DescriptorPath(c), string(MarshalDescriptor(&Descriptor{Coords: c})))
		testutil.MustWriteFile(t, repo.ArtifactPath(c), "jar")
	}
	// A version directory without content is not a published version.
	testutil.MustMkdirAll(t, filepath.Join(root, "org", "acme", "lib", "1.7"))

	versions, err := repo.ResolveVersionRange(ctx, coords.NewKey("org.acme", "lib", "", ""), "[1.0,)", nil)
	if err != nil {
		t.Fatalf("ResolveVersionRange: %v", err)
	}
	if want := []string{"1.0", "1.5", "2.0"}; !slices.Equal(versions, want) {
		t.Errorf("versions = %v, want %v", versions, want)
	}

	d, err := repo.ResolveDescriptor(ctx, coords.NewCoords("org.acme", "lib", "1.5"), nil)
	if err != nil {
		t.Fatalf("ResolveDescriptor: %v", err)
	}
	if d.Coords.Version != "1.5" {
		t.Errorf("descriptor version = %s", d.Coords.Version)
	}

	path, err := repo.ResolveArtifactFile(ctx, coords.NewCoords("org.acme", "lib", "2.0"), nil)
	if err != nil {
		t.Fatalf("ResolveArtifactFile: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("artifact path %s does not exist", path)
	}

	if _, err := repo.ResolveArtifactFile(ctx, coords.NewCoords("org.acme", "lib", "9.9"), nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	none, err := repo.ResolveVersionRange(ctx, coords.NewKey("org.none", "lib", "", ""), "[1.0,)", nil)
	if err != nil || len(none) != 0 {
		t.Errorf("unknown package versions = %v, %v", none, err)
	}
}

func TestLocal_EmbeddedDescriptor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := pathtree.NewRegistry()
	repo := NewLocal(t.TempDir(), WithArchiveRegistry(reg))

	c := coords.NewCoords("org.acme", "packed", "1.0")
	d := &Descriptor{
		Coords:       c,
		Dependencies: []coords.Dependency{{Coords: coords.NewCoords("org.acme", "lib", "1.0")}},
	}
	testutil.WriteZip(t, repo.ArtifactPath(c), map[string]string{
		EmbeddedDescriptorPath: string(MarshalDescriptor(d)),
		"org/acme/Packed.class": "bytes",
	})

	got, err := repo.ResolveDescriptor(ctx, c, nil)
	if err != nil {
		t.Fatalf("ResolveDescriptor: %v", err)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].Coords.Name != "lib" {
		t.Errorf("embedded dependencies = %+v", got.Dependencies)
	}

	tree, err := reg.ForPath(repo.ArtifactPath(c))
	if err != nil {
		t.Fatalf("ForPath: %v", err)
	}
	if tree.Users() != 0 {
		t.Errorf("embedded descriptor read leaked %d archive users", tree.Users())
	}

	_, err = repo.ResolveDescriptor(ctx, coords.NewCoords("org.acme", "absent", "1.0"), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDefaultLocalRootWith(t *testing.T) {
	t.Parallel()

	root, err := DefaultLocalRootWith(func(key string) string {
		if key == LocalRootEnvVar {
			return "/srv/repo"
		}
		return ""
	})
	if err != nil || root != "/srv/repo" {
		t.Errorf("DefaultLocalRootWith = %q, %v", root, err)
	}
}
