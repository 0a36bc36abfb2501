package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpAppliesInOrder(t *testing.T) {
	db := openTestDB(t)
	// Declared out of order on purpose.
	migrations := []Migration{
		{Version: 2, Name: "add column", SQL: "ALTER TABLE things ADD COLUMN note TEXT"},
		{Version: 1, Name: "create things", SQL: "CREATE TABLE things (id INTEGER PRIMARY KEY)"},
	}

	m := New(db, "sqlite", migrations)
	if err := m.Up(); err != nil {
		t.Fatalf("Up: %v", err)
	}

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}
	if _, err := db.Exec("INSERT INTO things (id, note) VALUES (1, 'x')"); err != nil {
		t.Errorf("schema incomplete: %v", err)
	}
}

func TestUpIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	migrations := []Migration{
		{Version: 1, Name: "create things", SQL: "CREATE TABLE things (id INTEGER PRIMARY KEY)"},
	}

	m := New(db, "sqlite", migrations)
	if err := m.Up(); err != nil {
		t.Fatalf("first Up: %v", err)
	}
	// A second run must not retry the CREATE.
	if err := m.Up(); err != nil {
		t.Fatalf("second Up: %v", err)
	}

	// A later release ships one more step.
	migrations = append(migrations, Migration{
		Version: 2, Name: "create links", SQL: "CREATE TABLE links (id INTEGER PRIMARY KEY)",
	})
	if err := New(db, "sqlite", migrations).Up(); err != nil {
		t.Fatalf("upgrade Up: %v", err)
	}
	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}
}

func TestUpRollsBackFailedStep(t *testing.T) {
	db := openTestDB(t)
	migrations := []Migration{
		{Version: 1, Name: "create things", SQL: "CREATE TABLE things (id INTEGER PRIMARY KEY)"},
		{Version: 2, Name: "broken", SQL: "THIS IS NOT SQL"},
	}

	m := New(db, "sqlite", migrations)
	if err := m.Up(); err == nil {
		t.Fatal("expected error from broken migration")
	}

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1 (broken step rolled back)", version)
	}
}
