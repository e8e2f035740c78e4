// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

const testSchemaSource = `
#Entry: {
	name:   string & !=""
	scope?: "compile" | "runtime"
	tags?: [...string]
}
`

type testEntry struct {
	Name  string   `json:"name"`
	Scope string   `json:"scope,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := CompileSchema([]byte(testSchemaSource), "#Entry")
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	return s
}

func TestCompileSchema_Errors(t *testing.T) {
	t.Parallel()

	if _, err := CompileSchema([]byte(`#Entry: {`), "#Entry"); err == nil {
		t.Error("expected syntax error")
	}
	if _, err := CompileSchema([]byte(testSchemaSource), "#Missing"); err == nil {
		t.Error("expected missing definition error")
	}
	defer func() {
		if recover() == nil {
			t.Error("MustCompileSchema should panic on a bad schema")
		}
	}()
	MustCompileSchema([]byte(testSchemaSource), "#Missing")
}

func TestDecode(t *testing.T) {
	t.Parallel()

	s := testSchema(t)
	if s.Definition() != "#Entry" {
		t.Errorf("Definition() = %q", s.Definition())
	}

	tests := []struct {
		name    string
		doc     string
		want    testEntry
		wantErr error
	}{
		{name: "complete", doc: `name: "lib", scope: "runtime", tags: ["a"]`, want: testEntry{Name: "lib", Scope: "runtime", Tags: []string{"a"}}},
		{name: "optional fields absent", doc: `name: "lib"`, want: testEntry{Name: "lib"}},
		{name: "unknown scope", doc: `name: "lib", scope: "system"`, wantErr: ErrValidation},
		{name: "empty name", doc: `name: ""`, wantErr: ErrValidation},
		{name: "closed definition", doc: `name: "lib", version: "1.0"`, wantErr: ErrValidation},
		{name: "syntax error", doc: `name: "lib`, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode[testEntry](s, []byte(tt.doc), WithFilename("entry.cue"))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !strings.Contains(err.Error(), "entry.cue") {
					t.Fatalf("Decode() error = %v, want %v naming entry.cue", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Name != tt.want.Name || got.Scope != tt.want.Scope || len(got.Tags) != len(tt.want.Tags) {
				t.Errorf("Decode() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestDecode_NonConcreteIntoMap(t *testing.T) {
	t.Parallel()

	got, err := Decode[map[string]any](testSchema(t), []byte(`name: "lib", scope: "compile"`), WithConcrete(false))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if (*got)["name"] != "lib" || (*got)["scope"] != "compile" {
		t.Errorf("Decode() = %v", *got)
	}
}

func TestDecode_SizeLimit(t *testing.T) {
	t.Parallel()

	_, err := Decode[testEntry](testSchema(t), []byte(`name: "lib"`), WithMaxFileSize(4))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Decode() error = %v, want ErrFileTooLarge", err)
	}
}

func TestDecode_Concurrent(t *testing.T) {
	t.Parallel()

	s := testSchema(t)
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			if _, err := Decode[testEntry](s, []byte(`name: "lib", scope: "compile"`)); err != nil {
				t.Errorf("Decode() error = %v", err)
			}
		})
	}
	wg.Wait()
}

func TestDecode_DoesNotWaitForOtherDecodes(t *testing.T) {
	t.Parallel()

	s := testSchema(t)
	held := s.acquire()
	defer s.release(held)

	done := make(chan error, 1)
	go func() {
		_, err := Decode[testEntry](s, []byte(`name: "lib", scope: "compile"`))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Decode() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Decode() blocked while another decode held the schema")
	}
}
