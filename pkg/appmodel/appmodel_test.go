// SPDX-License-Identifier: MPL-2.0

package appmodel

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/invowk/appmodel/internal/testutil"
	"github.com/invowk/appmodel/pkg/constraints"
	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/repository"
	"github.com/invowk/appmodel/pkg/scope"
	"github.com/invowk/appmodel/pkg/version"
	"github.com/invowk/appmodel/pkg/workspace"

	"golang.org/x/sync/errgroup"
)

func mustCoords(t *testing.T, s string) coords.PackageCoords {
	t.Helper()
	c, err := coords.ParseCoords(s)
	if err != nil {
		t.Fatalf("ParseCoords(%q): %v", s, err)
	}
	return c
}

func dep(t *testing.T, s string, sc coords.Scope) coords.Dependency {
	t.Helper()
	return coords.Dependency{Coords: mustCoords(t, s), Scope: sc}
}

func describe(t *testing.T, s string, deps ...coords.Dependency) repository.Descriptor {
	t.Helper()
	return repository.Descriptor{Coords: mustCoords(t, s), Dependencies: deps}
}

func keyNames(keys []coords.PackageKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Name)
	}
	return out
}

// builtModule returns a workspace module whose main output directory exists.
func builtModule(t *testing.T, id string, built bool, deps ...coords.Dependency) *workspace.Module {
	t.Helper()
	c := mustCoords(t, id)
	dir := filepath.Join(t.TempDir(), c.Name)
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "target", "classes")
	testutil.MustWriteFile(t, filepath.Join(src, "Main.java"), "class Main {}")
	if built {
		testutil.MustWriteFile(t, filepath.Join(out, "Main.class"), "bytes")
	}
	return &workspace.Module{
		ID:           c,
		Dir:          dir,
		Dependencies: deps,
		Sources: map[string]workspace.ArtifactSources{
			workspace.MainClassifier: {Dirs: []workspace.SourceDir{{Source: src, Output: out}}},
		},
	}
}

func mustWorkspace(t *testing.T, modules ...*workspace.Module) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir(), modules...)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	return ws
}

func TestResolveModel_RangeSelectsHighestInRange(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(
		describe(t, "org.acme:app:1.0", dep(t, "org.acme:lib:[1.0,2.0)", coords.ScopeCompile)),
		describe(t, "org.acme:lib:1.0"),
		describe(t, "org.acme:lib:1.5"),
		describe(t, "org.acme:lib:2.0"),
	)

	model, err := NewResolver(repo).ResolveModel(context.Background(), ModelRequest{Root: mustCoords(t, "org.acme:app:1.0")})
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}

	lib, ok := model.Dependency(coords.NewKey("org.acme", "lib", "", ""))
	if !ok {
		t.Fatal("lib not in model")
	}
	if lib.Coords.Version != "1.5" {
		t.Errorf("lib version = %s, want 1.5", lib.Coords.Version)
	}
	if lib.Paths.Kind != PathsArchive || filepath.Base(lib.Paths.Archive) != "lib-1.5.jar" {
		t.Errorf("lib paths = %s", lib.Paths)
	}
	if !lib.Flags.Has(FlagDirect | FlagRuntimeClasspath) {
		t.Errorf("lib flags = %s", lib.Flags)
	}
	if model.App.Coords.Name != "app" || !slices.Equal(keyNames(model.App.Dependencies), []string{"lib"}) {
		t.Errorf("app = %s -> %v", model.App.Coords, model.App.Dependencies)
	}
	if model.RequestID == "" {
		t.Error("missing request id")
	}
}

func TestResolveModel_ConstraintPrecedence(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	app := describe(t, "org.acme:app:1.0", coords.Dependency{Coords: coords.PackageCoords{PackageKey: coords.NewKey("org.acme", "driver", "", "")}})
	app.Managed = []coords.Dependency{dep(t, "org.acme:platform:1.0", coords.ScopeImport)}
	platform := describe(t, "org.acme:platform:1.0")
	platform.Managed = []coords.Dependency{dep(t, "org.acme:driver:3.2", coords.ScopeCompile)}
	repo.Add(app, platform, describe(t, "org.acme:driver:3.2"), describe(t, "org.acme:driver:3.3"))

	tests := []struct {
		name        string
		constraints []coords.Dependency
		want        string
	}{
		{name: "bill of materials", want: "3.2"},
		{name: "caller constraint wins", constraints: []coords.Dependency{dep(t, "org.acme:driver:3.3", coords.ScopeCompile)}, want: "3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model, err := NewResolver(repo).ResolveModel(context.Background(), ModelRequest{
				Root:        mustCoords(t, "org.acme:app:1.0"),
				Constraints: tt.constraints,
			})
			if err != nil {
				t.Fatalf("ResolveModel: %v", err)
			}
			driver, ok := model.Dependency(coords.NewKey("org.acme", "driver", "", ""))
			if !ok || driver.Coords.Version != tt.want {
				t.Errorf("driver = %+v, want version %s", driver, tt.want)
			}
		})
	}
}

func TestResolveModel_DefaultsHaveLowestPriority(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	app := describe(t, "org.acme:app:1.0",
		coords.Dependency{Coords: coords.PackageCoords{PackageKey: coords.NewKey("org.acme", "driver", "", "")}},
		coords.Dependency{Coords: coords.PackageCoords{PackageKey: coords.NewKey("org.acme", "pool", "", "")}},
	)
	app.Managed = []coords.Dependency{dep(t, "org.acme:driver:3.3", coords.ScopeCompile)}
	repo.Add(app, describe(t, "org.acme:driver:3.3"), describe(t, "org.acme:pool:2.0"))

	defaults := constraints.Static(constraints.Of(
		dep(t, "org.acme:driver:3.2", coords.ScopeCompile),
		dep(t, "org.acme:pool:2.0", coords.ScopeCompile),
	))
	model, err := NewResolver(repo, WithDefaults(defaults)).ResolveModel(context.Background(), ModelRequest{Root: mustCoords(t, "org.acme:app:1.0")})
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}

	got := make(map[string]string)
	for _, d := range model.Dependencies {
		got[d.Coords.Name] = d.Coords.Version
	}
	if got["driver"] != "3.3" || got["pool"] != "2.0" {
		t.Errorf("versions = %v", got)
	}
}

func TestResolveModel_DirectOverridesDeclared(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(
		describe(t, "org.acme:app:1.0", dep(t, "org.acme:lib:1.0", coords.ScopeTest)),
		describe(t, "org.acme:lib:1.0"),
		describe(t, "org.acme:extra:1.0"),
	)

	model, err := NewResolver(repo).ResolveModel(context.Background(), ModelRequest{
		Root: mustCoords(t, "org.acme:app:1.0"),
		Direct: []coords.Dependency{
			{Coords: coords.PackageCoords{PackageKey: coords.NewKey("org.acme", "lib", "", "")}, Scope: coords.ScopeRuntime},
			dep(t, "org.acme:extra:1.0", coords.ScopeCompile),
		},
	})
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}

	if got := keyNames(model.Keys()); !slices.Equal(got, []string{"lib", "extra"}) {
		t.Fatalf("keys = %v", got)
	}
	lib := model.Dependencies[0]
	if lib.Coords.Version != "1.0" || lib.Scope != coords.ScopeRuntime {
		t.Errorf("lib = %s %s", lib.Coords, lib.Scope)
	}
}

func TestResolveModel_Modes(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(
		describe(t, "org.acme:app:1.0",
			dep(t, "org.acme:lib:1.0", coords.ScopeCompile),
			dep(t, "org.acme:servlet-api:4.0", coords.ScopeProvided),
			dep(t, "org.acme:junit:5.0", coords.ScopeTest),
		),
		describe(t, "org.acme:lib:1.0", dep(t, "org.acme:commons:1.0", coords.ScopeCompile)),
		describe(t, "org.acme:servlet-api:4.0", dep(t, "org.acme:commons:2.0", coords.ScopeCompile), dep(t, "org.acme:annotations:1.0", coords.ScopeCompile)),
		describe(t, "org.acme:junit:5.0"),
		describe(t, "org.acme:commons:1.0"),
		describe(t, "org.acme:commons:2.0"),
		describe(t, "org.acme:annotations:1.0"),
	)

	tests := []struct {
		mode        scope.Mode
		want        []string
		compileOnly []string
	}{
		{mode: scope.Normal, want: []string{"lib", "commons"}},
		{mode: scope.Dev, want: []string{"lib", "commons"}, compileOnly: []string{"servlet-api", "annotations"}},
		{mode: scope.Test, want: []string{"lib", "servlet-api", "junit", "commons", "annotations"}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			t.Parallel()

			model, err := NewResolver(repo, WithMode(tt.mode)).ResolveModel(context.Background(), ModelRequest{Root: mustCoords(t, "org.acme:app:1.0")})
			if err != nil {
				t.Fatalf("ResolveModel: %v", err)
			}
			if got := keyNames(model.Keys()); !slices.Equal(got, tt.want) {
				t.Errorf("dependencies = %v, want %v", got, tt.want)
			}
			var compileOnly []string
			for _, d := range model.CompileOnly {
				compileOnly = append(compileOnly, d.Coords.Name)
				if !d.Flags.Has(FlagCompileOnly) || d.Flags.Has(FlagRuntimeClasspath) {
					t.Errorf("%s flags = %s", d.Coords, d.Flags)
				}
			}
			if !slices.Equal(compileOnly, tt.compileOnly) {
				t.Errorf("compile only = %v, want %v", compileOnly, tt.compileOnly)
			}
			commons, _ := model.Dependency(coords.NewKey("org.acme", "commons", "", ""))
			if commons == nil || commons.Coords.Version != "1.0" {
				t.Errorf("commons = %+v, want 1.0", commons)
			}
		})
	}
}

func TestResolveModel_ExcludedArtifacts(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(
		describe(t, "org.acme:app:1.0", dep(t, "org.acme:lib:1.0", coords.ScopeCompile)),
		describe(t, "org.acme:lib:1.0",
			dep(t, "org.log:log-api:1.0", coords.ScopeCompile),
			dep(t, "org.acme:util:1.0", coords.ScopeCompile),
		),
		describe(t, "org.log:log-api:1.0"),
		describe(t, "org.acme:util:1.0"),
	)

	r := NewResolver(repo, WithExcludedArtifacts(coords.Exclusion{Group: "org.log", Name: "log*"}))
	model, err := r.ResolveModel(context.Background(), ModelRequest{Root: mustCoords(t, "org.acme:app:1.0")})
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}
	if got := keyNames(model.Keys()); !slices.Equal(got, []string{"lib", "util"}) {
		t.Errorf("dependencies = %v", got)
	}
}

func TestResolveModel_Errors(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(
		describe(t, "org.acme:missing-dep:1.0", dep(t, "org.acme:ghost:1.0", coords.ScopeCompile)),
		describe(t, "org.acme:empty-range:1.0", dep(t, "org.acme:lib:[5.0,)", coords.ScopeCompile)),
		describe(t, "org.acme:no-version:1.0", coords.Dependency{Coords: coords.PackageCoords{PackageKey: coords.NewKey("org.acme", "lib", "", "")}}),
		describe(t, "org.acme:bad-bom:1.0"),
		describe(t, "org.acme:bad-range:1.0", dep(t, "org.acme:lib:[1.0,2.0", coords.ScopeCompile)),
		describe(t, "org.acme:lib:1.0"),
	)
	badBOM, _ := coords.ParseCoords("org.acme:bom:9.9")

	tests := []struct {
		name     string
		root     string
		managing *coords.PackageCoords
		want     error
	}{
		{name: "unknown root", root: "org.acme:nothing:1.0", want: ErrPackageNotFound},
		{name: "unknown dependency", root: "org.acme:missing-dep:1.0", want: ErrPackageNotFound},
		{name: "empty range", root: "org.acme:empty-range:1.0", want: ErrVersionRangeEmpty},
		{name: "missing version", root: "org.acme:no-version:1.0", want: ErrMissingVersion},
		{name: "missing bill of materials", root: "org.acme:bad-bom:1.0", managing: &badBOM, want: ErrMissingConstraintSource},
		{name: "malformed dependency range", root: "org.acme:bad-range:1.0", want: version.ErrInvalidConstraint},
		{name: "malformed root range", root: "org.acme:lib:[1.0,2.0", want: version.ErrInvalidConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model, err := NewResolver(repo).ResolveModel(context.Background(), ModelRequest{
				Root:     mustCoords(t, tt.root),
				Managing: tt.managing,
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if model != nil {
				t.Error("partial model returned")
			}
		})
	}
}

func TestResolveModel_Deterministic(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(
		describe(t, "org.acme:app:1.0",
			dep(t, "org.acme:a:1.0", coords.ScopeCompile),
			dep(t, "org.acme:b:1.0", coords.ScopeCompile),
		),
		describe(t, "org.acme:a:1.0", dep(t, "org.acme:c:1.0", coords.ScopeCompile), dep(t, "org.acme:d:1.0", coords.ScopeRuntime)),
		describe(t, "org.acme:b:1.0", dep(t, "org.acme:c:2.0", coords.ScopeCompile)),
		describe(t, "org.acme:c:1.0"),
		describe(t, "org.acme:c:2.0"),
		describe(t, "org.acme:d:1.0"),
	)
	r := NewResolver(repo)

	var first []string
	for range 5 {
		model, err := r.ResolveModel(context.Background(), ModelRequest{Root: mustCoords(t, "org.acme:app:1.0")})
		if err != nil {
			t.Fatalf("ResolveModel: %v", err)
		}
		var got []string
		for _, d := range model.Dependencies {
			got = append(got, d.Coords.String()+" "+d.Scope.String())
		}
		if first == nil {
			first = got
			continue
		}
		if !slices.Equal(got, first) {
			t.Fatalf("model changed between runs:\n%v\n%v", first, got)
		}
	}
	want := []string{"org.acme:a:1.0 compile", "org.acme:b:1.0 compile", "org.acme:c:1.0 compile", "org.acme:d:1.0 runtime"}
	if !slices.Equal(first, want) {
		t.Errorf("dependencies = %v, want %v", first, want)
	}
}

func TestResolveModel_WorkspaceSubstitution(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(
		describe(t, "org.acme:app:1.0", dep(t, "org.acme:lib:1.0", coords.ScopeCompile)),
		describe(t, "org.acme:lib:1.0", dep(t, "org.acme:published-only:1.0", coords.ScopeCompile)),
		describe(t, "org.acme:util:1.0"),
	)
	lib := builtModule(t, "org.acme:lib:1.0", true, dep(t, "org.acme:util:1.0", coords.ScopeCompile))
	r := NewResolver(repo, WithWorkspace(mustWorkspace(t, lib)))

	var runs []*ApplicationModel
	for range 2 {
		model, err := r.ResolveModel(context.Background(), ModelRequest{Root: mustCoords(t, "org.acme:app:1.0")})
		if err != nil {
			t.Fatalf("ResolveModel: %v", err)
		}
		runs = append(runs, model)
	}

	for _, model := range runs {
		if got := keyNames(model.Keys()); !slices.Equal(got, []string{"lib", "util"}) {
			t.Fatalf("dependencies = %v", got)
		}
		got := model.Dependencies[0]
		if got.Paths.Kind != PathsDirectories || !slices.Equal(got.Paths.Dirs, lib.Sources[""].OutputDirs()) {
			t.Errorf("lib paths = %s", got.Paths)
		}
		if !got.IsWorkspaceModule() || !got.IsReloadable() || got.Module != lib {
			t.Errorf("lib flags = %s", got.Flags)
		}
		if model.Dependencies[1].IsWorkspaceModule() || model.Dependencies[1].IsReloadable() {
			t.Errorf("util flags = %s", model.Dependencies[1].Flags)
		}
		if !slices.Equal(keyNames(model.Reloadable), []string{"lib"}) {
			t.Errorf("reloadable = %v", model.Reloadable)
		}
	}
	if runs[0].Dependencies[0].Paths.String() != runs[1].Dependencies[0].Paths.String() {
		t.Error("substitution is not idempotent")
	}
}

func TestResolveModel_ReloadableStopsAtPublishedPackages(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(describe(t, "org.acme:bridge:1.0", dep(t, "org.acme:deep:1.0", coords.ScopeCompile)))
	app := builtModule(t, "org.acme:app:1.0", true,
		dep(t, "org.acme:core:1.0", coords.ScopeCompile),
		dep(t, "org.acme:bridge:1.0", coords.ScopeCompile),
	)
	core := builtModule(t, "org.acme:core:1.0", true)
	deep := builtModule(t, "org.acme:deep:1.0", true)
	ws := mustWorkspace(t, app, core, deep)

	model, err := NewResolver(repo, WithWorkspace(ws)).ResolveModuleModel(context.Background(), app)
	if err != nil {
		t.Fatalf("ResolveModuleModel: %v", err)
	}
	if got := keyNames(model.Reloadable); !slices.Equal(got, []string{"app", "core"}) {
		t.Errorf("reloadable = %v", got)
	}
	d, _ := model.Dependency(coords.NewKey("org.acme", "deep", "", ""))
	if d == nil || !d.IsWorkspaceModule() || d.IsReloadable() {
		t.Errorf("deep = %+v", d)
	}
	if !model.App.IsReloadable() || model.App.Paths.Kind != PathsDirectories {
		t.Errorf("app = %s %s", model.App.Flags, model.App.Paths)
	}

	override, err := NewResolver(repo, WithWorkspace(ws)).ResolveModel(context.Background(), ModelRequest{
		Root:       app.ID,
		Reloadable: []coords.PackageKey{deep.Key(), deep.Key()},
	})
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}
	if got := keyNames(override.Reloadable); !slices.Equal(got, []string{"deep"}) {
		t.Errorf("overridden reloadable = %v", got)
	}
}

func TestResolveModel_WorkspaceCycle(t *testing.T) {
	t.Parallel()

	a := builtModule(t, "org.acme:a:1.0", true, dep(t, "org.acme:b:1.0", coords.ScopeCompile))
	b := builtModule(t, "org.acme:b:1.0", true, dep(t, "org.acme:a:1.0", coords.ScopeCompile))
	r := NewResolver(repository.NewMemory(), WithWorkspace(mustWorkspace(t, a, b)))

	_, err := r.ResolveModuleModel(context.Background(), a)
	var cycleErr *CyclicModuleDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("err = %v, want CyclicModuleDependencyError", err)
	}
	if got := keyNames(cycleErr.Cycle); !slices.Equal(got, []string{"a", "b", "a"}) {
		t.Errorf("cycle = %v", got)
	}
}

func TestResolveModel_UnbuiltModule(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(describe(t, "org.acme:app:1.0", dep(t, "org.acme:lib:1.0", coords.ScopeCompile)))
	ws := mustWorkspace(t, builtModule(t, "org.acme:lib:1.0", false))
	root := ModelRequest{Root: mustCoords(t, "org.acme:app:1.0")}

	_, err := NewResolver(repo, WithWorkspace(ws)).ResolveModel(context.Background(), root)
	if !errors.Is(err, ErrModuleNotBuilt) {
		t.Fatalf("err = %v, want ErrModuleNotBuilt", err)
	}

	model, err := NewResolver(repo, WithWorkspace(ws), WithAllowPendingModules(true)).ResolveModel(context.Background(), root)
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}
	lib := model.Dependencies[0]
	if lib.Paths.Kind != PathsPending {
		t.Errorf("lib paths = %s, want pending", lib.Paths)
	}
	if _, err := lib.ContentTree(); !errors.Is(err, ErrNoContent) {
		t.Errorf("ContentTree() err = %v", err)
	}
}

func TestResolve_CachesPerCoordinate(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(describe(t, "org.acme:lib:1.0"))
	r := NewResolver(repo)
	c := mustCoords(t, "org.acme:lib:1.0")

	var g errgroup.Group
	var mu sync.Mutex
	results := make(map[*ResolvedDependency]bool)
	for range 16 {
		g.Go(func() error {
			d, err := r.Resolve(context.Background(), c)
			if err != nil {
				return err
			}
			mu.Lock()
			results[d] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(results) != 1 || repo.ArtifactCalls() != 1 {
		t.Errorf("distinct results = %d, artifact calls = %d", len(results), repo.ArtifactCalls())
	}

	missing := mustCoords(t, "org.acme:ghost:1.0")
	for range 2 {
		if _, err := r.Resolve(context.Background(), missing); !errors.Is(err, ErrPackageNotFound) {
			t.Fatalf("err = %v, want ErrPackageNotFound", err)
		}
	}
	if repo.ArtifactCalls() != 3 {
		t.Errorf("failures were cached: artifact calls = %d", repo.ArtifactCalls())
	}
}

func TestResolve_ContentTree(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	c := mustCoords(t, "org.acme:lib:1.0")
	archive := filepath.Join(t.TempDir(), "lib-1.0.jar")
	testutil.WriteZip(t, archive, map[string]string{"org/acme/Lib.class": "bytes"})
	repo.Add(repository.Descriptor{Coords: c})
	repo.SetArtifact(c, archive)

	d, err := NewResolver(repo).Resolve(context.Background(), c)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	tree, err := d.ContentTree()
	if err != nil {
		t.Fatalf("ContentTree: %v", err)
	}
	if !tree.IsArchive() || !tree.Contains("org/acme/Lib.class") {
		t.Error("archive content not visible")
	}
}

func TestVersionQueries(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	for _, v := range []string{"2.1", "1.0", "2.0", "1.5"} {
		repo.Add(describe(t, "org.acme:lib:"+v))
	}
	r := NewResolver(repo)
	ctx := context.Background()
	lib := mustCoords(t, "org.acme:lib:1.0")

	later, err := r.ListLaterVersions(ctx, lib, "2.0", false)
	if err != nil || !slices.Equal(later, []string{"1.5"}) {
		t.Errorf("ListLaterVersions(<2.0) = %v, %v", later, err)
	}
	later, err = r.ListLaterVersions(ctx, lib, "", false)
	if err != nil || !slices.Equal(later, []string{"1.5", "2.0", "2.1"}) {
		t.Errorf("ListLaterVersions() = %v, %v", later, err)
	}

	tests := []struct {
		name string
		call func() (string, error)
		want string
	}{
		{"next exclusive", func() (string, error) { return r.NextVersion(ctx, lib, "1.5", false, "", false) }, "2.0"},
		{"next inclusive", func() (string, error) { return r.NextVersion(ctx, lib, "1.5", true, "", false) }, "1.5"},
		{"latest below", func() (string, error) { return r.LatestVersion(ctx, lib, "2.1", false) }, "2.0"},
		{"latest up to", func() (string, error) { return r.LatestVersion(ctx, lib, "2.1", true) }, "2.1"},
		{"latest in range", func() (string, error) { return r.LatestVersionFromRange(ctx, lib, "[1.0,2.0)") }, "1.5"},
		{"no match", func() (string, error) { return r.LatestVersionFromRange(ctx, lib, "[3.0,)") }, ""},
	}
	for _, tt := range tests {
		got, err := tt.call()
		if err != nil || got != tt.want {
			t.Errorf("%s = %q, %v; want %q", tt.name, got, err, tt.want)
		}
	}
}

func TestResolveModel_DependencyTree(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemory()
	repo.Add(
		describe(t, "org.acme:app:1.0",
			dep(t, "org.acme:a:1.0", coords.ScopeCompile),
			dep(t, "org.acme:b:1.0", coords.ScopeCompile),
		),
		describe(t, "org.acme:a:1.0", dep(t, "org.acme:c:1.0", coords.ScopeCompile)),
		describe(t, "org.acme:b:1.0", dep(t, "org.acme:c:1.0", coords.ScopeCompile)),
		describe(t, "org.acme:c:1.0"),
	)

	var lines []string
	r := NewResolver(repo, WithDependencyTree(func(line string) { lines = append(lines, line) }, true))
	if _, err := r.ResolveModel(context.Background(), ModelRequest{Root: mustCoords(t, "org.acme:app:1.0")}); err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}

	if len(lines) != 5 {
		t.Fatalf("tree has %d lines:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.HasPrefix(lines[0], "org.acme:app:1.0") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "org.acme:a:1.0 (compile, direct, runtime-cp)") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "org.acme:c:1.0") || strings.HasSuffix(lines[2], repeatedSuffix) {
		t.Errorf("line 2 = %q", lines[2])
	}
	if !strings.HasSuffix(lines[4], repeatedSuffix) {
		t.Errorf("repeated dependency not marked: %q", lines[4])
	}
}
