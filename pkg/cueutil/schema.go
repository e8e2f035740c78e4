// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize bounds the size of documents accepted by Decode.
const DefaultMaxFileSize int64 = 4 << 20

type (
	// Schema is a compiled CUE definition that documents are checked
	// against. It is safe for concurrent use. A CUE context is not, so each
	// decode borrows its own compiled instance from a pool.
	Schema struct {
		src        []byte
		definition string
		pool       sync.Pool
	}

	// instance is the schema compiled into one CUE context.
	instance struct {
		cctx *cue.Context
		def  cue.Value
	}

	// Option configures Decode.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
	}
)

// WithFilename sets the name used in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(o *options) { o.maxFileSize = n }
}

// WithConcrete controls whether every field must be concrete after
// unification. Defaults to true; documents made of optional fields, like
// the config file, disable it.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}

// CompileSchema compiles src and selects definition, such as "#Descriptor".
func CompileSchema(src []byte, definition string) (*Schema, error) {
	first, err := compileInstance(src, definition)
	if err != nil {
		return nil, err
	}
	s := &Schema{src: src, definition: definition}
	s.pool.Put(first)
	return s, nil
}

func compileInstance(src []byte, definition string) (*instance, error) {
	cctx := cuecontext.New()
	v := cctx.CompileBytes(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath(definition))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema definition %s: %w", definition, err)
	}
	return &instance{cctx: cctx, def: def}, nil
}

// MustCompileSchema is CompileSchema for embedded schemas, which compile or
// indicate a build defect.
func MustCompileSchema(src []byte, definition string) *Schema {
	s, err := CompileSchema(src, definition)
	if err != nil {
		panic(err)
	}
	return s
}

// Definition returns the selected definition path.
func (s *Schema) Definition() string { return s.definition }

// acquire returns an instance no other goroutine is using. The source
// compiled once already, so recompiling cannot fail.
func (s *Schema) acquire() *instance {
	if inst, ok := s.pool.Get().(*instance); ok {
		return inst
	}
	inst, err := compileInstance(s.src, s.definition)
	if err != nil {
		panic(err)
	}
	return inst
}

func (s *Schema) release(inst *instance) { s.pool.Put(inst) }

// Decode checks data against s and decodes it into a T. Problems are
// reported as *ValidationError naming the file and field path.
func Decode[T any](s *Schema, data []byte, opts ...Option) (*T, error) {
	o := options{filename: "<input>", maxFileSize: DefaultMaxFileSize, concrete: true}
	for _, opt := range opts {
		opt(&o)
	}
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	inst := s.acquire()
	defer s.release(inst)

	doc := inst.cctx.CompileBytes(data, cue.Filename(o.filename))
	if err := doc.Err(); err != nil {
		return nil, FormatError(err, o.filename)
	}
	unified := inst.def.Unify(doc)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	out := new(T)
	if err := unified.Decode(out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return out, nil
}
