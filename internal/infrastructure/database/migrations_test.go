package database

import (
	"context"
	"testing"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"20260815_120000_create_events.up.sql", "20260815_120000", "create_events", true},
		{"20260815_120000_create_events.down.sql", "", "", false},
		{"20260901_090000_add_detail_index.up.sql", "20260901_090000", "add_detail_index", true},
		{"README.md", "", "", false},
		{"noversion.up.sql", "", "", false},
	}

	for _, tt := range tests {
		version, name, ok := parseMigrationFilename(tt.filename)
		if ok != tt.wantOK {
			t.Errorf("parseMigrationFilename(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			continue
		}
		if version != tt.wantVersion || name != tt.wantName {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q), want (%q, %q)",
				tt.filename, version, name, tt.wantVersion, tt.wantName)
		}
	}
}

func TestMigrateNoEmbeddedFiles(t *testing.T) {
	// With no embedded filesystem set, Migrate only creates the
	// bookkeeping table.
	db := testOpen(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if err != nil {
		t.Fatalf("querying schema_migrations: %v", err)
	}
	if count != 0 {
		t.Errorf("applied migrations = %d, want 0", count)
	}
}

func TestApplyMigrationRecordsVersion(t *testing.T) {
	db := testOpen(t)
	ctx := context.Background()

	if err := db.createMigrationsTable(ctx); err != nil {
		t.Fatalf("createMigrationsTable() error = %v", err)
	}

	m := Migration{
		Version: "20260815_120000",
		Name:    "create_events",
		SQL:     "CREATE TABLE court_events (id TEXT PRIMARY KEY)",
	}
	if err := db.applyMigration(ctx, m); err != nil {
		t.Fatalf("applyMigration() error = %v", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		t.Fatalf("appliedVersions() error = %v", err)
	}
	if !applied["20260815_120000"] {
		t.Error("migration version not recorded")
	}

	// The migrated table must exist.
	if _, err := db.ExecContext(ctx, "INSERT INTO court_events (id) VALUES ('x')"); err != nil {
		t.Errorf("inserting into migrated table: %v", err)
	}
}

func TestApplyMigrationRollsBackOnBadSQL(t *testing.T) {
	db := testOpen(t)
	ctx := context.Background()

	if err := db.createMigrationsTable(ctx); err != nil {
		t.Fatalf("createMigrationsTable() error = %v", err)
	}

	m := Migration{Version: "20260815_120000", Name: "broken", SQL: "NOT VALID SQL"}
	if err := db.applyMigration(ctx, m); err == nil {
		t.Fatal("applyMigration() with bad SQL = nil, want error")
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		t.Fatalf("appliedVersions() error = %v", err)
	}
	if len(applied) != 0 {
		t.Error("failed migration was recorded as applied")
	}
}
