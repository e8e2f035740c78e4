// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/invowk/appmodel/internal/issue"
	"github.com/invowk/appmodel/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "appmodel"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variables overriding config keys,
	// with dots replaced by underscores (APPMODEL_LOG_LEVEL).
	EnvPrefix = "APPMODEL"
)

//go:embed config_schema.cue
var configSchemaSource []byte

var configSchema = cueutil.MustCompileSchema(configSchemaSource, "#Config")

// newViper returns a viper instance seeded with the defaults. Every default
// also registers its key for environment lookups.
func newViper() *viper.Viper {
	d := DefaultConfig()
	v := viper.New()
	for key, value := range map[string]any{
		"repository.local":            d.Repository.Local,
		"repository.remotes":          d.Repository.Remotes,
		"workspace.manifest":          d.Workspace.Manifest,
		"mode":                        d.Mode,
		"allow_pending_modules":       d.AllowPendingModules,
		"excluded_artifacts":          d.ExcludedArtifacts,
		"log.level":                   d.Log.Level,
		"log.dependency_tree":         d.Log.DependencyTree,
		"log.dependency_tree_verbose": d.Log.DependencyTreeVerbose,
	} {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadWithOptions reads the configuration without touching package state. It
// returns the config and the file it came from, empty when only defaults and
// the environment apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load config canceled: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	path, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}

	v := newViper()
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadFailure("load configuration", path, err,
				"Check that the file contains valid CUE syntax",
				"Verify the configuration values match the expected schema")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment values bypass the schema.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", loadFailure("validate configuration", path, errs[0],
			"Check the values of "+EnvPrefix+"_* environment variables",
			"Remote ids must be unique")
	}
	return &cfg, path, nil
}

// resolveConfigPath picks the file to load. An explicit path must exist and
// is used exclusively.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		info, err := os.Stat(opts.ConfigFilePath)
		if err != nil || info.IsDir() {
			return "", loadFailure("load configuration", opts.ConfigFilePath,
				fmt.Errorf("config file not found: %s", opts.ConfigFilePath),
				"Verify the file path is correct",
				"Use 'appmodel config show' to see the default configuration")
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	return findConfigFile(cfgDir), nil
}

func loadFailure(operation, resource string, cause error, suggestions ...string) error {
	ec := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		WithIssue(issue.ConfigLoadFailedId)
	for _, s := range suggestions {
		ec = ec.WithSuggestion(s)
	}
	return ec.Wrap(cause).BuildError()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it over
// the viper defaults. Every field is optional, so the file decodes to a map
// holding only what it sets.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	values, err := cueutil.Decode[map[string]any](configSchema, data,
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(*values); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	_, err := ensureConfigDir()
	return err
}

func ensureConfigDir() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return cfgDir, nil
}

// CreateDefaultConfig writes the default configuration unless a config file
// already exists, and returns the file path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ensureConfigDir()
	if err != nil {
		return "", err
	}
	path := configFileIn(cfgDir)
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return path, err
	}
	return path, writeConfigFile(path, DefaultConfig())
}

// Save writes cfg to the config directory, replacing any existing file.
func Save(cfg *Config) error {
	cfgDir, err := ensureConfigDir()
	if err != nil {
		return err
	}
	return writeConfigFile(configFileIn(cfgDir), cfg)
}

func writeConfigFile(path string, cfg *Config) error {
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a config file that loads back to the same values.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder
	line := func(indent int, format string, args ...any) {
		sb.WriteString(strings.Repeat("\t", indent))
		fmt.Fprintf(&sb, format, args...)
		sb.WriteByte('\n')
	}

	line(0, "// appmodel configuration file\n")
	line(0, "repository: {")
	if cfg.Repository.Local != "" {
		line(1, "local: %q", cfg.Repository.Local)
	}
	if len(cfg.Repository.Remotes) > 0 {
		line(1, "remotes: [")
		for _, r := range cfg.Repository.Remotes {
			line(2, "{id: %q, url: %q},", r.ID, r.URL)
		}
		line(1, "]")
	}
	line(0, "}")

	if cfg.Workspace.Manifest != "" {
		line(0, "\nworkspace: manifest: %q", cfg.Workspace.Manifest)
	}
	line(0, "\nmode: %q", cfg.Mode)
	line(0, "allow_pending_modules: %v", cfg.AllowPendingModules)

	if len(cfg.ExcludedArtifacts) > 0 {
		line(0, "\nexcluded_artifacts: [")
		for _, p := range cfg.ExcludedArtifacts {
			line(1, "%q,", p)
		}
		line(0, "]")
	}

	line(0, "\nlog: {")
	line(1, "level: %q", cfg.Log.Level)
	line(1, "dependency_tree: %v", cfg.Log.DependencyTree)
	line(1, "dependency_tree_verbose: %v", cfg.Log.DependencyTreeVerbose)
	line(0, "}")
	return sb.String()
}
