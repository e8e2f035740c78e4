// SPDX-License-Identifier: MPL-2.0

// Package constraints builds managed constraint tables: the version, scope and
// exclusions to apply to a package wherever it appears in a dependency graph.
//
// A table is merged from an ordered list of sources. Each source is either an
// explicit list of managed entries or the import of a bill of materials whose
// managed section is fetched on demand. The first source to mention a key
// wins, so callers list their sources from highest to lowest priority.
package constraints
