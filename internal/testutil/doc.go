// SPDX-License-Identifier: MPL-2.0

// Package testutil holds fixtures shared by the package tests: repository
// and workspace directory trees, zip artifacts and output timestamps.
package testutil
