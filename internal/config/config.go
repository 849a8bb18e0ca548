// Package config loads the project's TOML configuration file and
// resolves datasource URLs, grounded on the teacher's
// internal/config/config.go (TOML-backed LoadConfig, walk-up-to-project-
// root getConfigPath) and internal/config/environment.go (named
// environments layered over a .env file), generalized from Lockplane's
// single `postgres_url` field to the full per-environment shadow-database
// and migrations-directory configuration this engine needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the config file this package looks for, the teacher's
// `lockplane.toml` renamed to this project's domain.
const FileName = "schemaengine.toml"

// EnvironmentConfig is one named environment block from the config file.
type EnvironmentConfig struct {
	DatabaseURL       string `toml:"database_url"`
	ShadowDatabaseURL string `toml:"shadow_database_url"`
	MigrationsDir     string `toml:"migrations_dir"`
}

// Config is the parsed contents of schemaengine.toml.
type Config struct {
	DefaultEnvironment string                       `toml:"default_environment"`
	DatamodelPath      string                       `toml:"datamodel_path"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`

	configFilePath string
}

// ConfigDir is the directory schemaengine.toml lives in, the base every
// relative path in the file (datamodel_path, migrations_dir) resolves
// against.
func (c *Config) ConfigDir() string {
	if c.configFilePath == "" {
		return ""
	}
	return filepath.Dir(c.configFilePath)
}

// Load reads schemaengine.toml, searching the current directory and its
// ancestors the way the teacher's getConfigPath walks up to a project
// root (a `.git` or `go.mod` marker), so the tool works from any
// subdirectory of a project.
func Load() (*Config, error) {
	path, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.configFilePath = path
	return &cfg, nil
}

func findConfigPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: getwd: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		if isProjectRoot(dir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("config: %s not found in %s or any parent directory", FileName, dir)
}

func isProjectRoot(dir string) bool {
	for _, marker := range []string{".git", "go.mod"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// Environment looks up one named environment block, falling back to
// DefaultEnvironment (or "default" if that's also unset) when name is
// empty.
func (c *Config) Environment(name string) (EnvironmentConfig, bool) {
	if name == "" {
		name = c.DefaultEnvironment
	}
	if name == "" {
		name = "default"
	}
	env, ok := c.Environments[name]
	return env, ok
}
