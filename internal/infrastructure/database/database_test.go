package database

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAndHealthCheck(t *testing.T) {
	db := openTestDB(t)

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}
	if db.Path() == "" {
		t.Error("Path() returned empty string")
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := Open(Config{Path: path, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()
}

func TestCloseIsIdempotentOnNil(t *testing.T) {
	db := &DB{}
	if err := db.Close(); err != nil {
		t.Errorf("Close() on zero DB: %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_000000_initial_schema.up.sql", "20260301_000000", true, true},
		{"20260301_000000_initial_schema.down.sql", "20260301_000000", false, true},
		{"notes.txt", "", false, false},
		{"badname.sql", "", false, false},
		{"20260301.up.sql", "", false, false},
	}

	for _, tt := range tests {
		version, isUp, ok := parseMigrationFilename(tt.name)
		if version != tt.wantVersion || isUp != tt.wantUp || ok != tt.wantOK {
			t.Errorf("parseMigrationFilename(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tt.name, version, isUp, ok, tt.wantVersion, tt.wantUp, tt.wantOK)
		}
	}
}

func TestMigrationName(t *testing.T) {
	if got := migrationName("20260301_000000_initial_schema.up.sql"); got != "initial_schema" {
		t.Errorf("migrationName() = %q, want initial_schema", got)
	}
}

func TestMigrateWithNoEmbeddedFS(t *testing.T) {
	db := openTestDB(t)

	// MigrationsFS may be set by the migrations package in other tests of
	// this binary; Migrate with the real FS must also succeed cleanly.
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() error: %v", err)
	}
}
