// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the operation, resource and suggestions of a CLI
// failure. Issue holds Markdown guidance for known resolution failures,
// rendered for the terminal with glamour.
package issue
