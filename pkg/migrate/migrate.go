// Package migrate applies embedded, forward-only SQL migrations. Each caller
// compiles its schema history into the binary and brings any database file it
// opens up to date before use.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// DB is satisfied by both *sql.DB and *sql.Tx.
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Migrator tracks applied versions in a schema_migrations table and applies
// pending migrations in ascending version order, one transaction each.
type Migrator struct {
	db         *sql.DB
	dialect    string // "sqlite" or "postgres"
	table      string
	migrations []Migration
}

// New returns a migrator for the given dialect over the given migration set.
func New(db *sql.DB, dialect string, migrations []Migration) *Migrator {
	return &Migrator{
		db:         db,
		dialect:    dialect,
		table:      "schema_migrations",
		migrations: migrations,
	}
}

// Up applies every migration newer than the current version.
func (m *Migrator) Up() error {
	if err := m.createTable(); err != nil {
		return err
	}
	current, err := m.currentVersion(m.db)
	if err != nil {
		return err
	}

	pending := make([]Migration, len(m.migrations))
	copy(pending, m.migrations)
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, mig := range pending {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// CurrentVersion reports the highest applied version, creating the tracking
// table if needed.
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.createTable(); err != nil {
		return 0, err
	}
	return m.currentVersion(m.db)
}

func (m *Migrator) apply(mig Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(mig.SQL); err != nil {
		return err
	}
	if err := m.setVersion(tx, mig.Version); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Migrator) createTable() error {
	created := "DATETIME"
	if m.dialect == "postgres" {
		created = "TIMESTAMP"
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			applied_at %s DEFAULT CURRENT_TIMESTAMP
		)
	`, m.table, created)
	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}
	return nil
}

func (m *Migrator) currentVersion(db DB) (int, error) {
	var version int
	query := fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", m.table)
	if err := db.QueryRow(query).Scan(&version); err != nil {
		return 0, fmt.Errorf("current version: %w", err)
	}
	return version, nil
}

func (m *Migrator) setVersion(db DB, version int) error {
	var query string
	if m.dialect == "postgres" {
		query = fmt.Sprintf(`
			INSERT INTO %s (version, applied_at)
			VALUES ($1, CURRENT_TIMESTAMP)
			ON CONFLICT (version) DO UPDATE SET applied_at = CURRENT_TIMESTAMP
		`, m.table)
	} else {
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (version, applied_at)
			VALUES (?, CURRENT_TIMESTAMP)
		`, m.table)
	}
	_, err := db.Exec(query, version)
	return err
}
