// Package db provides database schema migration management.
package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	apperrors "github.com/quillnote/backend/internal/errors"
)

// Migration represents a database schema migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations holds every schema migration in order. New migrations are
// appended, never edited, once shipped.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial journal schema",
		SQL: `
		CREATE TABLE notes (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL CHECK(kind IN ('text','image','audio','video')),
			content TEXT NOT NULL DEFAULT '',
			media_ref TEXT NOT NULL DEFAULT '',
			transcription TEXT NOT NULL DEFAULT '',
			thumbnail_ref TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			sync_version INTEGER NOT NULL DEFAULT 0,
			last_synced_at INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE journals (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			sync_version INTEGER NOT NULL DEFAULT 0,
			last_synced_at INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE journal_notes (
			journal_id TEXT NOT NULL,
			content_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			sync_version INTEGER NOT NULL DEFAULT 0,
			last_synced_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (journal_id, content_id)
		);

		CREATE INDEX idx_journal_notes_content ON journal_notes(content_id);
		CREATE INDEX idx_notes_updated ON notes(updated_at);
		`,
	},
	{
		Version:     2,
		Description: "sync bookkeeping tables",
		SQL: `
		CREATE TABLE pending_changes (
			entity_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			operation TEXT NOT NULL CHECK(operation IN ('create','update','delete')),
			queued_at INTEGER NOT NULL,
			PRIMARY KEY (entity_id, entity_type)
		);

		CREATE TABLE sync_metadata (
			entity_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			last_synced_at INTEGER NOT NULL DEFAULT 0,
			server_version INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (entity_id, entity_type)
		);

		CREATE TABLE last_sync_times (
			entity_type TEXT PRIMARY KEY,
			last_sync_at INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE conflict_log (
			id TEXT PRIMARY KEY,
			entity_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			local_timestamp INTEGER NOT NULL,
			remote_timestamp INTEGER NOT NULL,
			resolution TEXT NOT NULL,
			detected_at INTEGER NOT NULL
		);
		`,
	},
	{
		Version:     3,
		Description: "account sessions",
		SQL: `
		CREATE TABLE account_sessions (
			id TEXT PRIMARY KEY,
			account_email TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			is_enabled INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		`,
	},
}

// Migrator applies the in-code schema migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum TEXT NOT NULL CHECK(length(checksum) = 64)
	);`
	_, err := m.db.Exec(query)
	return err
}

// CurrentVersion returns the current schema version.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Up applies all pending migrations in a transaction each.
func (m *Migrator) Up() error {
	if err := m.Initialize(); err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "failed to initialize migrations table", err)
	}

	current, err := m.CurrentVersion()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "failed to read current version", err)
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}

		tx, err := m.db.Begin()
		if err != nil {
			return apperrors.Wrap(apperrors.ErrMigration, "failed to begin transaction", err)
		}

		if _, err := tx.Exec(mig.SQL); err != nil {
			tx.Rollback()
			return apperrors.Wrap(apperrors.ErrMigration,
				fmt.Sprintf("migration %d (%s) failed", mig.Version, mig.Description), err)
		}

		checksum := sha256.Sum256([]byte(mig.SQL))
		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
			mig.Version, time.Now().Unix(), mig.Description, hex.EncodeToString(checksum[:]),
		)
		if err != nil {
			tx.Rollback()
			return apperrors.Wrap(apperrors.ErrMigration,
				fmt.Sprintf("failed to record migration %d", mig.Version), err)
		}

		if err := tx.Commit(); err != nil {
			return apperrors.Wrap(apperrors.ErrMigration,
				fmt.Sprintf("failed to commit migration %d", mig.Version), err)
		}
	}

	return nil
}

// Migrate opens the migrator and applies all pending migrations.
// Convenience wrapper used by the cmd binaries and tests.
func Migrate(db *sql.DB) error {
	return NewMigrator(db).Up()
}
