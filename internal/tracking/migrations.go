package tracking

import (
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_run_id_index",
		Up:      migration002AddRunIDIndex,
	},
}

// runMigrations executes all pending migrations
func (l *Ledger) runMigrations() error {
	if err := l.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := l.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		l.logger.WithField("version", migration.Version).Debugf("Running migration %s", migration.Name)

		tx, err := l.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (l *Ledger) ensureMigrationsTable() error {
	_, err := l.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (l *Ledger) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := l.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// migration001InitialSchema creates the ledger table. serial is the row
// number shown to readers and file_name is unique across all runs.
func migration001InitialSchema(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS tracking_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		file_name TEXT UNIQUE NOT NULL,
		total_manual INTEGER NOT NULL,
		total_software INTEGER NOT NULL,
		manual_matched INTEGER NOT NULL,
		software_matched INTEGER NOT NULL,
		percentage TEXT NOT NULL,
		shaded BOOLEAN DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func migration002AddRunIDIndex(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_tracking_entries_run_id ON tracking_entries(run_id)`)
	return err
}
