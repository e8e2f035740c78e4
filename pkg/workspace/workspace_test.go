// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/invowk/appmodel/internal/dag"
	"github.com/invowk/appmodel/internal/testutil"
	"github.com/invowk/appmodel/pkg/coords"
)

const sampleManifest = `
[[module]]
coords = "org.acme:app:1.0"
dir = "app"

  [[module.dependency]]
  coords = "org.acme:lib"

  [[module.dependency]]
  coords = "org.acme:servlet-api:4.0"
  scope = "provided"
  exclusions = ["org.log:*"]

  [[module.managed]]
  coords = "org.acme:lib:1.0"

[[module]]
coords = "org.acme:lib:1.0"

  [[module.sources]]
  dirs = [{ source = "src", output = "build/classes" }]

  [[module.sources]]
  classifier = "tests"
  dirs = [{ source = "test", output = "build/test-classes" }]
`

func mustParse(t *testing.T, root string) *Workspace {
	t.Helper()
	ws, err := ParseManifest([]byte(sampleManifest), filepath.Join(root, ManifestFileName))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	return ws
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ws := mustParse(t, root)

	if ws.Len() != 2 || ws.Root() != root {
		t.Fatalf("Len() = %d, Root() = %s", ws.Len(), ws.Root())
	}
	app, ok := ws.Lookup(coords.NewKey("org.acme", "app", "", ""), "")
	if !ok {
		t.Fatal("app module not found")
	}
	if app.Dir != filepath.Join(root, "app") {
		t.Errorf("app.Dir = %s", app.Dir)
	}
	if len(app.Dependencies) != 2 || app.Dependencies[0].Coords.Version != "" {
		t.Errorf("app dependencies = %v", app.Dependencies)
	}
	if app.Dependencies[1].Scope != coords.ScopeProvided || len(app.Dependencies[1].Exclusions) != 1 {
		t.Errorf("servlet-api dependency = %+v", app.Dependencies[1])
	}
	main, _ := app.ArtifactSources(MainClassifier)
	if want := filepath.Join(root, "app", "target", "classes"); !slices.Contains(main.OutputDirs(), want) {
		t.Errorf("default outputs = %v, want %s", main.OutputDirs(), want)
	}

	lib, ok := ws.Lookup(coords.NewKey("org.acme", "lib", "", ""), "1.0")
	if !ok {
		t.Fatal("lib module not found")
	}
	if lib.Dir != filepath.Join(root, "lib") {
		t.Errorf("lib.Dir defaults to the module name, got %s", lib.Dir)
	}
	tests, _ := lib.ArtifactSources(coords.ClassifierTests)
	if want := []string{filepath.Join(root, "lib", "build", "test-classes")}; !slices.Equal(tests.OutputDirs(), want) {
		t.Errorf("tests outputs = %v, want %v", tests.OutputDirs(), want)
	}
	sources, _ := lib.ArtifactSources(coords.ClassifierSources)
	if sources.Classifier != MainClassifier {
		t.Errorf("unknown classifier should fall back to main, got %q", sources.Classifier)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "[[module]]\ncoords = \"org.acme:app:1.0\"\nflavour = \"x\"\n"},
		{"bad coords", "[[module]]\ncoords = \"app\"\n"},
		{"bad scope", "[[module]]\ncoords = \"org.acme:app:1.0\"\n[[module.dependency]]\ncoords = \"org.acme:lib:1.0\"\nscope = \"system\"\n"},
		{"duplicate", "[[module]]\ncoords = \"org.acme:app:1.0\"\n[[module]]\ncoords = \"org.acme:app:1.0\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseManifest([]byte(tt.doc), "/ws/"+ManifestFileName)
			if !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("expected ErrInvalidManifest, got %v", err)
			}
		})
	}
}

func TestLookup_Version(t *testing.T) {
	t.Parallel()

	ws, err := New("/ws", &Module{ID: coords.NewCoords("org.acme", "lib", "1.0")})
	if err != nil {
		t.Fatal(err)
	}
	key := coords.NewKey("org.acme", "lib", "", "")
	if _, ok := ws.Lookup(key, "2.0"); ok {
		t.Error("lookup must respect a conflicting version")
	}
	if _, ok := ws.Lookup(key, "1.0"); !ok {
		t.Error("lookup by matching version failed")
	}
	if _, ok := ws.Lookup(coords.NewKey("org.acme", "lib", coords.ClassifierTests, ""), ""); !ok {
		t.Error("classifier variants resolve to the same module")
	}
	var nilWS *Workspace
	if _, ok := nilWS.Lookup(key, ""); ok || nilWS.Len() != 0 {
		t.Error("nil workspace must be empty")
	}
}

func TestBuildOrder(t *testing.T) {
	t.Parallel()

	dep := func(name string) coords.Dependency {
		return coords.NewDependency(coords.NewCoords("org.acme", name, "1.0"))
	}
	app := &Module{ID: coords.NewCoords("org.acme", "app", "1.0"), Dependencies: []coords.Dependency{dep("lib"), dep("external")}}
	lib := &Module{ID: coords.NewCoords("org.acme", "lib", "1.0"), Dependencies: []coords.Dependency{dep("core")}}
	core := &Module{ID: coords.NewCoords("org.acme", "core", "1.0")}

	ws, err := New("/ws", app, lib, core)
	if err != nil {
		t.Fatal(err)
	}
	order, err := ws.BuildOrder()
	if err != nil {
		t.Fatalf("BuildOrder: %v", err)
	}
	var names []string
	for _, m := range order {
		names = append(names, m.ID.Name)
	}
	if want := []string{"core", "lib", "app"}; !slices.Equal(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}

	a := &Module{ID: coords.NewCoords("org.acme", "a", "1.0"), Dependencies: []coords.Dependency{dep("b")}}
	b := &Module{ID: coords.NewCoords("org.acme", "b", "1.0"), Dependencies: []coords.Dependency{dep("a")}}
	cyclic, _ := New("/ws", a, b)
	if _, err := cyclic.BuildOrder(); !errors.Is(err, dag.ErrCycle) {
		t.Errorf("expected dag.ErrCycle, got %v", err)
	}
}

func TestArtifactSources_BuiltAndStale(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	as := ArtifactSources{Dirs: []SourceDir{{
		Source: filepath.Join(dir, "src"),
		Output: filepath.Join(dir, "out"),
	}}}

	testutil.MustWriteFile(t, filepath.Join(dir, "src", "App.java"), "class App {}")
	if as.IsBuilt() || !as.IsStale() {
		t.Fatal("module without output must be unbuilt and stale")
	}

	base := time.Now().Add(-time.Hour)
	testutil.MustTouch(t, filepath.Join(dir, "src", "App.java"), base)
	testutil.MustWriteFile(t, filepath.Join(dir, "out", "App.class"), "bytes")
	testutil.MustTouch(t, filepath.Join(dir, "out", "App.class"), base.Add(time.Minute))
	if !as.IsBuilt() || as.IsStale() {
		t.Errorf("built=%v stale=%v, want built and fresh", as.IsBuilt(), as.IsStale())
	}

	testutil.MustTouch(t, filepath.Join(dir, "src", "App.java"), base.Add(2*time.Minute))
	if !as.IsStale() {
		t.Error("edited source should make the output stale")
	}
	if (ArtifactSources{}).IsBuilt() {
		t.Error("artifact without directories is never built")
	}
}

func TestWatcher_ModulesFor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ws := mustParse(t, root)
	w, err := NewWatcher(ws, WatchConfig{Modules: []coords.PackageKey{
		coords.NewKey("org.acme", "lib", "", ""),
		coords.NewKey("org.acme", "app", "", ""),
	}})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	changed := []string{
		filepath.Join(root, "lib", "build", "test-classes", "LibTest.class"),
		filepath.Join(root, "app", "target", "classes", "App.class"),
		filepath.Join(root, "lib", "build", "classes-extra", "X.class"),
	}
	got := w.modulesFor(changed)
	want := []coords.PackageKey{coords.NewKey("org.acme", "app", "", ""), coords.NewKey("org.acme", "lib", "", "")}
	if !slices.Equal(got, want) {
		t.Errorf("modulesFor = %v, want %v", got, want)
	}
}

func TestWatcher_EmptyModulesWatchesNothing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := NewWatcher(mustParse(t, root), WatchConfig{})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if keys := w.Modules(); len(keys) != 0 {
		t.Errorf("Modules() = %v, want none", keys)
	}
	changed := []string{filepath.Join(root, "app", "target", "classes", "App.class")}
	if keys := w.modulesFor(changed); len(keys) != 0 {
		t.Errorf("modulesFor = %v, want none", keys)
	}
}

func TestWatcher_ReportsChangedModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ws := mustParse(t, root)
	libOut := filepath.Join(root, "lib", "build", "classes")
	testutil.MustMkdirAll(t, libOut)

	changed := make(chan []coords.PackageKey, 4)
	w, err := NewWatcher(ws, WatchConfig{
		Modules:  []coords.PackageKey{coords.NewKey("org.acme", "lib", "", "")},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, keys []coords.PackageKey) error {
			changed <- keys
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	testutil.MustWriteFile(t, filepath.Join(libOut, "Lib.class"), "bytes")

	select {
	case keys := <-changed:
		if len(keys) != 1 || keys[0].Name != "lib" {
			t.Errorf("changed = %v, want [lib]", keys)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for module change")
	}
}
