package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveEnvironment_FromConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".git"), "")
	writeFile(t, filepath.Join(dir, FileName), `
[environments.dev]
database_url = "postgres://localhost/dev"
migrations_dir = "db/migrations"
`)
	chdir(t, dir)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	env, err := ResolveEnvironment(cfg, "dev")
	if err != nil {
		t.Fatalf("ResolveEnvironment() error: %v", err)
	}
	if env.DatabaseURL != "postgres://localhost/dev" {
		t.Errorf("DatabaseURL = %q", env.DatabaseURL)
	}
	want := filepath.Join(dir, "db", "migrations")
	if env.MigrationsDir != want {
		t.Errorf("MigrationsDir = %q, want %q", env.MigrationsDir, want)
	}
	if env.FromDotenv {
		t.Error("expected FromDotenv to be false with no .env file present")
	}
}

func TestResolveEnvironment_DotenvOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".git"), "")
	writeFile(t, filepath.Join(dir, FileName), `
[environments.dev]
database_url = "postgres://localhost/dev"
`)
	writeFile(t, filepath.Join(dir, ".env.dev"), "DATABASE_URL=postgres://localhost/overridden\n")
	chdir(t, dir)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	env, err := ResolveEnvironment(cfg, "dev")
	if err != nil {
		t.Fatalf("ResolveEnvironment() error: %v", err)
	}
	if env.DatabaseURL != "postgres://localhost/overridden" {
		t.Errorf("DatabaseURL = %q, want dotenv override", env.DatabaseURL)
	}
	if !env.FromDotenv {
		t.Error("expected FromDotenv to be true")
	}
}

func TestResolveEnvironment_MissingDatabaseURLErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".git"), "")
	writeFile(t, filepath.Join(dir, FileName), `
[environments.dev]
migrations_dir = "migrations"
`)
	chdir(t, dir)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ResolveEnvironment(cfg, "dev"); err == nil {
		t.Error("expected an error when no database_url resolves")
	}
}

func TestResolveDatasourceURL_EnvCall(t *testing.T) {
	t.Setenv("TEST_DATABASE_URL", "postgres://from-env")
	got, err := ResolveDatasourceURL(`env("TEST_DATABASE_URL")`)
	if err != nil {
		t.Fatalf("ResolveDatasourceURL() error: %v", err)
	}
	if got != "postgres://from-env" {
		t.Errorf("got %q, want postgres://from-env", got)
	}
}

func TestResolveDatasourceURL_UnsetEnvErrors(t *testing.T) {
	os.Unsetenv("TEST_DATABASE_URL_UNSET")
	if _, err := ResolveDatasourceURL(`env("TEST_DATABASE_URL_UNSET")`); err == nil {
		t.Error("expected an error for an unset env var")
	}
}

func TestResolveDatasourceURL_QuotedLiteral(t *testing.T) {
	got, err := ResolveDatasourceURL(`"postgres://literal"`)
	if err != nil {
		t.Fatalf("ResolveDatasourceURL() error: %v", err)
	}
	if got != "postgres://literal" {
		t.Errorf("got %q, want postgres://literal", got)
	}
}

func TestAdvisoryLockEnabled(t *testing.T) {
	t.Setenv("PRISMA_SCHEMA_DISABLE_ADVISORY_LOCK", "")
	if !AdvisoryLockEnabled() {
		t.Error("expected enabled when env var is empty")
	}
	t.Setenv("PRISMA_SCHEMA_DISABLE_ADVISORY_LOCK", "0")
	if !AdvisoryLockEnabled() {
		t.Error("expected enabled when env var is \"0\"")
	}
	t.Setenv("PRISMA_SCHEMA_DISABLE_ADVISORY_LOCK", "1")
	if AdvisoryLockEnabled() {
		t.Error("expected disabled when env var is \"1\"")
	}
}

func TestAdvisoryLockEnabled_Unset(t *testing.T) {
	os.Unsetenv("PRISMA_SCHEMA_DISABLE_ADVISORY_LOCK")
	if !AdvisoryLockEnabled() {
		t.Error("expected enabled when env var is unset")
	}
}
