// SPDX-License-Identifier: MPL-2.0

// Package cueutil checks user CUE documents against an embedded schema.
//
// Package descriptors and the configuration file are both read this way:
//
//	//go:embed descriptor_schema.cue
//	var descriptorSchemaSource []byte
//
//	var descriptorSchema = cueutil.MustCompileSchema(descriptorSchemaSource, "#Descriptor")
//
//	f, err := cueutil.Decode[descriptorFile](descriptorSchema, data, cueutil.WithFilename(path))
//
// Problems are reported as *ValidationError with the file name and the
// JSON path of every offending field.
package cueutil
