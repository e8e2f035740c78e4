// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

var (
	// ErrValidation is wrapped by ValidationError.
	ErrValidation = errors.New("document does not match its schema")
	// ErrFileTooLarge is wrapped by FileTooLargeError.
	ErrFileTooLarge = errors.New("document too large")
)

type (
	// Problem is one schema violation. Path is in JSON form, such as
	// dependencies[2].scope, and empty for document-level problems.
	Problem struct {
		Path    string
		Message string
	}

	// ValidationError lists the schema violations of one document.
	ValidationError struct {
		File     string
		Problems []Problem
	}

	// FileTooLargeError is returned by CheckFileSize.
	FileTooLargeError struct {
		File    string
		Size    int
		MaxSize int64
	}
)

// FormatError converts a CUE error into a *ValidationError naming the file
// and the JSON path of every problem:
//
//	lib-1.0.cue: dependencies[2].scope: 4 errors in empty disjunction
//	config.cue: validation failed:
//	  repository.remotes[0].url: invalid value
//	  mode: conflicting values
//
// Errors that carry no CUE detail are wrapped with the file name.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	// Errors wraps plain errors into a one-element list, so check first.
	var ce cueerrors.Error
	if !errors.As(err, &ce) {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	cueErrs := cueerrors.Errors(err)

	ve := &ValidationError{File: filePath, Problems: make([]Problem, 0, len(cueErrs))}
	for _, e := range cueErrs {
		p := Problem{Path: formatPath(cueerrors.Path(e)), Message: e.Error()}
		// CUE may repeat the path at the start of the message.
		if p.Path != "" {
			p.Message = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(p.Message, p.Path), ":"))
		}
		ve.Problems = append(ve.Problems, p)
	}
	return ve
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, p.String())
	}
	if len(lines) == 1 {
		return e.File + ": " + lines[0]
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.File, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrValidation for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// String renders "path: message", or the message alone.
func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// formatPath joins CUE path selectors, rendering numeric selectors as
// indices: ["dependencies", "0", "scope"] becomes "dependencies[0].scope".
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if _, err := strconv.ParseUint(part, 10, 64); err == nil && i > 0 {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// CheckFileSize rejects documents larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return &FileTooLargeError{File: filename, Size: len(data), MaxSize: maxSize}
	}
	return nil
}

// Error implements the error interface for FileTooLargeError.
func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s: file size %d bytes exceeds maximum %d bytes", e.File, e.Size, e.MaxSize)
}

// Unwrap returns ErrFileTooLarge for errors.Is() compatibility.
func (e *FileTooLargeError) Unwrap() error { return ErrFileTooLarge }
