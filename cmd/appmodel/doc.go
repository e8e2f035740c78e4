// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for appmodel.
//
// The command tree is built by NewRootCommand from an App, the composition
// root holding the configuration provider, the repository and the shared
// archive registry. Tests build an App with an in-memory repository and run
// commands against buffers.
package cmd
