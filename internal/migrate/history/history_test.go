package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()

	m, err := Write(dir, "20240101000000_init", "CREATE TABLE users (id int);")
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if m.Checksum == "" {
		t.Error("expected a non-empty checksum")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected one migration, got %d", len(loaded))
	}
	if loaded[0].Name != m.Name || loaded[0].Checksum != m.Checksum {
		t.Errorf("loaded migration mismatch: %+v vs %+v", loaded[0], m)
	}
}

func TestLoad_MissingDir_ReturnsNoneNoError(t *testing.T) {
	migrations, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if migrations != nil {
		t.Errorf("expected nil migrations, got %v", migrations)
	}
}

func TestLoad_SkipsDirectoryWithoutMigrationFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "20240101000000_empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(dir, "20240102000000_real", "SELECT 1;"); err != nil {
		t.Fatal(err)
	}

	migrations, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("expected the empty directory to be skipped, got %d migrations", len(migrations))
	}
	if migrations[0].Name != "20240102000000_real" {
		t.Errorf("Name = %q, want 20240102000000_real", migrations[0].Name)
	}
}

func TestLoad_OrdersLexically(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir, "20240103000000_third", "SELECT 3;"); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(dir, "20240101000000_first", "SELECT 1;"); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(dir, "20240102000000_second", "SELECT 2;"); err != nil {
		t.Fatal(err)
	}

	migrations, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []string{"20240101000000_first", "20240102000000_second", "20240103000000_third"}
	got := Names(migrations)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewName_NormalizesSlug(t *testing.T) {
	name := NewName("  Add Users Table!! ")
	if !strings.Contains(name, "_add_users_table") {
		t.Errorf("NewName() = %q, want to contain _add_users_table", name)
	}
}

func TestNewName_EmptySlugFallsBackToMigration(t *testing.T) {
	name := NewName("   ")
	if !strings.HasSuffix(name, "_migration") {
		t.Errorf("NewName() = %q, want suffix _migration", name)
	}
}

func TestByName_IndexesByDirectoryName(t *testing.T) {
	dir := t.TempDir()
	m, err := Write(dir, "20240101000000_init", "SELECT 1;")
	if err != nil {
		t.Fatal(err)
	}
	migrations, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	byName := ByName(migrations)
	if got, ok := byName[m.Name]; !ok || got.Checksum != m.Checksum {
		t.Errorf("ByName()[%q] = %+v, ok=%v", m.Name, got, ok)
	}
}
