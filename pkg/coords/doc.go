// SPDX-License-Identifier: MPL-2.0

// Package coords defines the identity types shared by every stage of
// application model resolution.
//
// A [PackageKey] is the version-less identity of an artifact (group, name,
// classifier, type) and is what deduplication, exclusion matching and managed
// constraint lookups operate on. A [PackageCoords] adds a version, which may be
// a concrete version or a range expression. A [Dependency] is a declared edge
// carrying scope, optional flag and exclusions.
package coords
