// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// configDirOverride replaces the platform config directory when non-empty.
var configDirOverride string

// SetConfigDirOverride makes ConfigDir return dir; an empty dir restores the
// platform directory. Tests use it because os.UserHomeDir ignores HOME on
// some platforms.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// ConfigDir returns the appmodel configuration directory:
// %APPDATA%\appmodel on Windows, ~/Library/Application Support/appmodel on
// macOS and $XDG_CONFIG_HOME/appmodel (default ~/.config/appmodel) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	base, err := platformConfigBase(runtime.GOOS, os.Getenv, os.UserHomeDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

// platformConfigBase returns the per-user configuration root of goos.
func platformConfigBase(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	if goos == "windows" {
		if dir := getenv("APPDATA"); dir != "" {
			return dir, nil
		}
		return filepath.Join(getenv("USERPROFILE"), "AppData", "Roaming"), nil
	}
	if goos != "darwin" {
		if dir := getenv("XDG_CONFIG_HOME"); dir != "" {
			return dir, nil
		}
	}

	h, err := home()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if goos == "darwin" {
		return filepath.Join(h, "Library", "Application Support"), nil
	}
	return filepath.Join(h, ".config"), nil
}

// configFileIn returns the config file path inside dir.
func configFileIn(dir string) string {
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
}

// findConfigFile returns the first existing config file, looking in cfgDir
// and then in the current directory, or "" when there is none.
func findConfigFile(cfgDir string) string {
	for _, candidate := range []string{configFileIn(cfgDir), configFileIn(".")} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
