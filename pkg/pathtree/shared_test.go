// SPDX-License-Identifier: MPL-2.0

package pathtree

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/invowk/appmodel/internal/testutil"

	"golang.org/x/sync/errgroup"
)

func writeSharedFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shared.jar")
	testutil.WriteZip(t, path, map[string]string{
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\n",
		"org/acme/Known.class": "known-content",
	})
	return path
}

func TestRegistry_ForPathReturnsSameEntry(t *testing.T) {
	t.Parallel()

	path := writeSharedFixture(t)
	reg := NewRegistry()

	a, err := reg.ForPath(path)
	if err != nil {
		t.Fatalf("ForPath: %v", err)
	}
	rel, err := filepath.Rel(".", path)
	if err != nil {
		rel = path
	}
	b, err := reg.ForPath(rel)
	if err != nil {
		t.Fatalf("ForPath(relative): %v", err)
	}
	if a != b {
		t.Error("relative and absolute paths should map to the same entry")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestSharedArchiveTree_RefCounting(t *testing.T) {
	t.Parallel()

	tree, err := NewRegistry().ForPath(writeSharedFixture(t))
	if err != nil {
		t.Fatalf("ForPath: %v", err)
	}

	h1, err := tree.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h2, err := tree.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if tree.Users() != 2 {
		t.Fatalf("Users() = %d, want 2", tree.Users())
	}

	testutil.MustClose(t, h1)
	if data, readErr := h2.ReadFile("org/acme/Known.class"); readErr != nil || string(data) != "known-content" {
		t.Fatalf("read through surviving handle = %q, %v", data, readErr)
	}

	testutil.MustClose(t, h2)
	testutil.MustClose(t, h2)
	if tree.Users() != 0 {
		t.Errorf("Users() = %d after closing all handles", tree.Users())
	}

	// The entry survives and can be reopened.
	h3, err := tree.Open()
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer testutil.DeferClose(t, h3)()
	if !h3.Contains("org/acme/Known.class") {
		t.Error("reopened handle cannot see known entry")
	}
}

func TestSharedArchiveTree_FSClosedWithHandle(t *testing.T) {
	t.Parallel()

	tree, err := NewRegistry().ForPath(writeSharedFixture(t))
	if err != nil {
		t.Fatalf("ForPath: %v", err)
	}
	h, err := tree.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	fsys := h.FS()
	if data, readErr := fs.ReadFile(fsys, "org/acme/Known.class"); readErr != nil || string(data) != "known-content" {
		t.Fatalf("fs.ReadFile = %q, %v", data, readErr)
	}

	testutil.MustClose(t, h)
	if _, err := fsys.Open("org/acme/Known.class"); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close = %v, want ErrClosed", err)
	}
	if _, err := h.FS().Open("META-INF/MANIFEST.MF"); !errors.Is(err, ErrClosed) {
		t.Errorf("FS() after Close = %v, want ErrClosed", err)
	}
}

func TestSharedArchiveTree_OpenErrorDoesNotChangeState(t *testing.T) {
	t.Parallel()

	tree, err := NewRegistry().ForPath(filepath.Join(t.TempDir(), "missing.jar"))
	if err != nil {
		t.Fatalf("ForPath: %v", err)
	}
	if _, err := tree.Open(); err == nil {
		t.Fatal("expected open error for missing archive")
	}
	if tree.Users() != 0 {
		t.Errorf("failed open must not count a user, got %d", tree.Users())
	}
}

func TestSharedArchiveTree_ConcurrentOpenReadClose(t *testing.T) {
	t.Parallel()

	tree, err := NewRegistry().ForPath(writeSharedFixture(t))
	if err != nil {
		t.Fatalf("ForPath: %v", err)
	}

	const workers = 128
	const iterations = 20

	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			for i := range iterations {
				h, openErr := tree.Open()
				if openErr != nil {
					return fmt.Errorf("worker %d iteration %d: open: %w", w, i, openErr)
				}
				if !h.IsOpen() {
					return fmt.Errorf("worker %d iteration %d: handle not open", w, i)
				}
				data, readErr := h.ReadFile("org/acme/Known.class")
				if readErr != nil {
					_ = h.Close()
					return fmt.Errorf("worker %d iteration %d: read: %w", w, i, readErr)
				}
				if string(data) != "known-content" {
					_ = h.Close()
					return fmt.Errorf("worker %d iteration %d: unexpected content %q", w, i, data)
				}
				if closeErr := h.Close(); closeErr != nil {
					return fmt.Errorf("worker %d iteration %d: close: %w", w, i, closeErr)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if tree.Users() != 0 {
		t.Errorf("Users() = %d after all workers finished", tree.Users())
	}
}

func TestSharedArchiveTree_WalkUsesTemporaryHandle(t *testing.T) {
	t.Parallel()

	tree, err := NewRegistry().ForPath(writeSharedFixture(t))
	if err != nil {
		t.Fatalf("ForPath: %v", err)
	}

	count := 0
	err = tree.Walk(func(v PathVisit) error {
		if !v.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if count != 2 {
		t.Errorf("Walk visited %d files, want 2", count)
	}
	if tree.Users() != 0 {
		t.Errorf("Walk leaked %d users", tree.Users())
	}
}
