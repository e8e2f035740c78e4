// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/appmodel/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/appmodel/config.cue on macOS, %APPDATA%\appmodel\config.cue
// on Windows), falling back to ./config.cue. Every key can be overridden from the
// environment with the APPMODEL_ prefix, dots replaced by underscores.
//
// Configuration files are validated against a CUE schema (config_schema.cue); the merged
// result is validated again with Config.IsValid.
package config
