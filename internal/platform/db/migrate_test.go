package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestMigratorLoad_SortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0002_stock.sql", "CREATE TABLE stock_snapshot ();")
	writeFile(t, dir, "0001_core.sql", "CREATE TABLE organization ();")
	writeFile(t, dir, "0010_camps.sql", "CREATE TABLE donation_camp ();")
	writeFile(t, dir, "notes.txt", "not a migration")
	writeFile(t, dir, "README.sql", "no numeric prefix")

	m := NewMigrator(nil, dir)
	migrations, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	wantVersions := []int{1, 2, 10}
	for i, w := range wantVersions {
		if migrations[i].Version != w {
			t.Errorf("position %d: version %d, want %d", i, migrations[i].Version, w)
		}
	}
	if migrations[0].SQL != "CREATE TABLE organization ();" {
		t.Errorf("migration content not loaded: %q", migrations[0].SQL)
	}
}

func TestMigratorLoad_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.Load(); err == nil {
		t.Error("expected error for missing directory")
	}
}
