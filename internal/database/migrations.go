package database

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations holds the compiled-in schema history. Append only; never edit
// an applied migration.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "001_create_emotion_entries",
		SQL: `
			CREATE TABLE IF NOT EXISTS emotion_entries (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				cell_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				intensity INTEGER NOT NULL,
				valence REAL NOT NULL,
				note TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '[]',
				dwell_seconds INTEGER NOT NULL DEFAULT 0,
				gps_accuracy INTEGER NOT NULL,
				visibility TEXT NOT NULL DEFAULT 'PUBLIC',
				created_at INTEGER NOT NULL,
				expires_at INTEGER
			);
			CREATE INDEX IF NOT EXISTS idx_entries_cell ON emotion_entries(cell_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_entries_user_created ON emotion_entries(user_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_entries_expires ON emotion_entries(expires_at) WHERE expires_at IS NOT NULL;
		`,
	},
	{
		Version: 2,
		Name:    "002_create_cell_aggregates",
		SQL: `
			CREATE TABLE IF NOT EXISTS cell_aggregates (
				cell_id TEXT PRIMARY KEY,
				dominant_emotion TEXT NOT NULL,
				mean_valence REAL NOT NULL,
				mean_intensity REAL NOT NULL,
				distribution TEXT NOT NULL,
				coherence REAL NOT NULL,
				trend REAL NOT NULL,
				entry_count INTEGER NOT NULL,
				last_entry_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);
		`,
	},
	{
		Version: 3,
		Name:    "003_create_user_trust",
		SQL: `
			CREATE TABLE IF NOT EXISTS user_trust (
				user_id TEXT PRIMARY KEY,
				trust REAL NOT NULL DEFAULT 1.0,
				updated_at INTEGER NOT NULL
			);
		`,
	},
}

// initMigrationsTable creates the migrations tracking table
func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// appliedMigrations returns the set of applied migration versions
func appliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// applyMigration applies a single migration inside a transaction
func applyMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", migration.Version, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}

	log.Printf("Applied migration %d: %s", migration.Version, migration.Name)
	return nil
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version < pending[j].Version
	})

	for _, m := range pending {
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}

	return nil
}
