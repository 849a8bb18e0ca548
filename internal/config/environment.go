package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
)

// ResolvedEnvironment is a named environment with every value resolved to
// a concrete string: schemaengine.toml values layered under a matching
// .env.<name> file, matching the teacher's environment.go precedence
// (dotenv overrides config file) but simplified to this engine's three
// fields instead of Lockplane's general config surface.
type ResolvedEnvironment struct {
	Name              string
	DatabaseURL       string
	ShadowDatabaseURL string
	MigrationsDir     string
	FromDotenv        bool
}

// ResolveEnvironment resolves name (or the config's default) against cfg
// and an optional .env.<name> file in the config directory.
func ResolveEnvironment(cfg *Config, name string) (*ResolvedEnvironment, error) {
	envCfg, _ := cfg.Environment(name)
	if name == "" {
		name = cfg.DefaultEnvironment
	}
	if name == "" {
		name = "default"
	}

	resolved := &ResolvedEnvironment{
		Name:              name,
		DatabaseURL:       envCfg.DatabaseURL,
		ShadowDatabaseURL: envCfg.ShadowDatabaseURL,
		MigrationsDir:     envCfg.MigrationsDir,
	}
	if resolved.MigrationsDir == "" {
		resolved.MigrationsDir = "migrations"
	}
	if !filepath.IsAbs(resolved.MigrationsDir) && cfg.ConfigDir() != "" {
		resolved.MigrationsDir = filepath.Join(cfg.ConfigDir(), resolved.MigrationsDir)
	}

	dotenvPath := filepath.Join(cfg.ConfigDir(), ".env."+name)
	if info, err := os.Stat(dotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(dotenvPath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", dotenvPath, err)
		}
		resolved.FromDotenv = true
		if v := values["DATABASE_URL"]; v != "" {
			resolved.DatabaseURL = v
		}
		if v := values["SHADOW_DATABASE_URL"]; v != "" {
			resolved.ShadowDatabaseURL = v
		}
	}

	if resolved.DatabaseURL == "" {
		return nil, fmt.Errorf("config: environment %q has no database_url (checked schemaengine.toml and %s)", name, dotenvPath)
	}
	return resolved, nil
}

var envCallRE = regexp.MustCompile(`^env\("([^"]+)"\)$`)

// ResolveDatasourceURL resolves a datamodel `url = ...` property value
// (spec §6.5: "Datasource URLs resolved via user-supplied env-var names
// declared with env(\"…\")"). A bare quoted literal is returned as-is; an
// env("NAME") call is resolved against the process environment.
func ResolveDatasourceURL(rawValue string) (string, error) {
	if m := envCallRE.FindStringSubmatch(rawValue); m != nil {
		name := m[1]
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("config: environment variable %q referenced by env(...) is not set", name)
		}
		return v, nil
	}
	return unquote(rawValue), nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// AdvisoryLockEnabled reports whether advisory locking should be used
// before apply/reset/dev-diagnostic touch the database (spec §4.9.5,
// §6.5): enabled unless PRISMA_SCHEMA_DISABLE_ADVISORY_LOCK is set to
// anything other than unset, "0", or "".
func AdvisoryLockEnabled() bool {
	v, ok := os.LookupEnv("PRISMA_SCHEMA_DISABLE_ADVISORY_LOCK")
	if !ok {
		return true
	}
	return v == "" || v == "0"
}
