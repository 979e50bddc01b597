// Package db provides CRUD repository operations for Quillnote data models.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/quillnote/backend/internal/models"
	"github.com/quillnote/backend/internal/uuid"
)

// Repository provides CRUD operations for all models.
// Statements are prepared on first use and cached for reuse.
type Repository struct {
	db *sql.DB

	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
// Key is the query string, value is the prepared statement.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// JournalNote Operations
// =====================================================

const noteColumns = "id, kind, content, media_ref, transcription, thumbnail_ref, created_at, updated_at, sync_version, last_synced_at"

// CreateNote creates a new journal note from a local mutation.
func (r *Repository) CreateNote(note *models.JournalNote) error {
	now := time.Now().UnixMilli()
	if note.ID == "" {
		note.ID = models.UUID(uuid.New())
	}
	note.CreatedAt = now
	note.UpdatedAt = now
	note.SyncVersion = 1

	stmt, err := r.PrepareStmt("INSERT INTO notes (" + noteColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(note.ID, note.Kind, note.Content, note.MediaRef, note.Transcription,
		note.ThumbnailRef, note.CreatedAt, note.UpdatedAt, note.SyncVersion, note.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// GetNote retrieves a note by id. Returns sql.ErrNoRows if absent.
func (r *Repository) GetNote(id string) (*models.JournalNote, error) {
	stmt, err := r.PrepareStmt("SELECT " + noteColumns + " FROM notes WHERE id = ?")
	if err != nil {
		return nil, err
	}

	note := &models.JournalNote{}
	err = stmt.QueryRow(id).Scan(&note.ID, &note.Kind, &note.Content, &note.MediaRef,
		&note.Transcription, &note.ThumbnailRef, &note.CreatedAt, &note.UpdatedAt,
		&note.SyncVersion, &note.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// UpdateNote updates a note from a local mutation, bumping its
// timestamp and version.
func (r *Repository) UpdateNote(note *models.JournalNote) error {
	note.Touch()
	return r.UpsertNote(note)
}

// UpsertNote writes a note preserving the timestamps and version it
// carries. The sync engine uses this to apply remote winners without
// re-touching them.
func (r *Repository) UpsertNote(note *models.JournalNote) error {
	stmt, err := r.PrepareStmt(`
		INSERT INTO notes (` + noteColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			content = excluded.content,
			media_ref = excluded.media_ref,
			transcription = excluded.transcription,
			thumbnail_ref = excluded.thumbnail_ref,
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			last_synced_at = excluded.last_synced_at`)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(note.ID, note.Kind, note.Content, note.MediaRef, note.Transcription,
		note.ThumbnailRef, note.CreatedAt, note.UpdatedAt, note.SyncVersion, note.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note by id.
func (r *Repository) DeleteNote(id string) error {
	stmt, err := r.PrepareStmt("DELETE FROM notes WHERE id = ?")
	if err != nil {
		return err
	}
	_, err = stmt.Exec(id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// ListNotes returns notes ordered by most recently updated first.
func (r *Repository) ListNotes(limit, offset int) ([]*models.JournalNote, error) {
	stmt, err := r.PrepareStmt("SELECT " + noteColumns + " FROM notes ORDER BY updated_at DESC LIMIT ? OFFSET ?")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.JournalNote
	for rows.Next() {
		note := &models.JournalNote{}
		err := rows.Scan(&note.ID, &note.Kind, &note.Content, &note.MediaRef,
			&note.Transcription, &note.ThumbnailRef, &note.CreatedAt, &note.UpdatedAt,
			&note.SyncVersion, &note.LastSyncedAt)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// =====================================================
// Journal Operations
// =====================================================

const journalColumns = "id, title, description, created_at, updated_at, sync_version, last_synced_at"

// CreateJournal creates a new journal from a local mutation.
func (r *Repository) CreateJournal(journal *models.Journal) error {
	now := time.Now().UnixMilli()
	if journal.ID == "" {
		journal.ID = models.UUID(uuid.New())
	}
	journal.CreatedAt = now
	journal.UpdatedAt = now
	journal.SyncVersion = 1

	stmt, err := r.PrepareStmt("INSERT INTO journals (" + journalColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(journal.ID, journal.Title, journal.Description,
		journal.CreatedAt, journal.UpdatedAt, journal.SyncVersion, journal.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to create journal: %w", err)
	}
	return nil
}

// GetJournal retrieves a journal by id. Returns sql.ErrNoRows if absent.
func (r *Repository) GetJournal(id string) (*models.Journal, error) {
	stmt, err := r.PrepareStmt("SELECT " + journalColumns + " FROM journals WHERE id = ?")
	if err != nil {
		return nil, err
	}

	journal := &models.Journal{}
	err = stmt.QueryRow(id).Scan(&journal.ID, &journal.Title, &journal.Description,
		&journal.CreatedAt, &journal.UpdatedAt, &journal.SyncVersion, &journal.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	return journal, nil
}

// UpdateJournal updates a journal from a local mutation.
func (r *Repository) UpdateJournal(journal *models.Journal) error {
	journal.Touch()
	return r.UpsertJournal(journal)
}

// UpsertJournal writes a journal preserving its carried timestamps.
func (r *Repository) UpsertJournal(journal *models.Journal) error {
	stmt, err := r.PrepareStmt(`
		INSERT INTO journals (` + journalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			last_synced_at = excluded.last_synced_at`)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(journal.ID, journal.Title, journal.Description,
		journal.CreatedAt, journal.UpdatedAt, journal.SyncVersion, journal.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert journal: %w", err)
	}
	return nil
}

// DeleteJournal removes a journal and its note associations.
func (r *Repository) DeleteJournal(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM journal_notes WHERE journal_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete journal associations: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM journals WHERE id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	return tx.Commit()
}

// ListJournals returns journals ordered by most recently updated first.
func (r *Repository) ListJournals(limit, offset int) ([]*models.Journal, error) {
	stmt, err := r.PrepareStmt("SELECT " + journalColumns + " FROM journals ORDER BY updated_at DESC LIMIT ? OFFSET ?")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}
	defer rows.Close()

	var journals []*models.Journal
	for rows.Next() {
		journal := &models.Journal{}
		err := rows.Scan(&journal.ID, &journal.Title, &journal.Description,
			&journal.CreatedAt, &journal.UpdatedAt, &journal.SyncVersion, &journal.LastSyncedAt)
		if err != nil {
			return nil, err
		}
		journals = append(journals, journal)
	}
	return journals, rows.Err()
}

// =====================================================
// Association Operations
// =====================================================

const associationColumns = "journal_id, content_id, created_at, updated_at, sync_version, last_synced_at"

// CreateAssociation links a note into a journal.
func (r *Repository) CreateAssociation(assoc *models.Association) error {
	now := time.Now().UnixMilli()
	assoc.CreatedAt = now
	assoc.UpdatedAt = now
	assoc.SyncVersion = 1

	stmt, err := r.PrepareStmt("INSERT INTO journal_notes (" + associationColumns + ") VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(assoc.JournalID, assoc.ContentID,
		assoc.CreatedAt, assoc.UpdatedAt, assoc.SyncVersion, assoc.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to create association: %w", err)
	}
	return nil
}

// GetAssociation retrieves an association by its composite key.
func (r *Repository) GetAssociation(journalID, contentID string) (*models.Association, error) {
	stmt, err := r.PrepareStmt("SELECT " + associationColumns + " FROM journal_notes WHERE journal_id = ? AND content_id = ?")
	if err != nil {
		return nil, err
	}

	assoc := &models.Association{}
	err = stmt.QueryRow(journalID, contentID).Scan(&assoc.JournalID, &assoc.ContentID,
		&assoc.CreatedAt, &assoc.UpdatedAt, &assoc.SyncVersion, &assoc.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	return assoc, nil
}

// UpsertAssociation writes an association preserving its carried
// timestamps. Used by the sync engine when applying remote winners.
func (r *Repository) UpsertAssociation(assoc *models.Association) error {
	stmt, err := r.PrepareStmt(`
		INSERT INTO journal_notes (` + associationColumns + `) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(journal_id, content_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			last_synced_at = excluded.last_synced_at`)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(assoc.JournalID, assoc.ContentID,
		assoc.CreatedAt, assoc.UpdatedAt, assoc.SyncVersion, assoc.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert association: %w", err)
	}
	return nil
}

// DeleteAssociation removes an association by its composite key.
func (r *Repository) DeleteAssociation(journalID, contentID string) error {
	stmt, err := r.PrepareStmt("DELETE FROM journal_notes WHERE journal_id = ? AND content_id = ?")
	if err != nil {
		return err
	}
	_, err = stmt.Exec(journalID, contentID)
	if err != nil {
		return fmt.Errorf("failed to delete association: %w", err)
	}
	return nil
}

// ListAssociations returns the associations for a journal.
func (r *Repository) ListAssociations(journalID string) ([]*models.Association, error) {
	stmt, err := r.PrepareStmt("SELECT " + associationColumns + " FROM journal_notes WHERE journal_id = ? ORDER BY created_at")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(journalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list associations: %w", err)
	}
	defer rows.Close()

	var assocs []*models.Association
	for rows.Next() {
		assoc := &models.Association{}
		err := rows.Scan(&assoc.JournalID, &assoc.ContentID,
			&assoc.CreatedAt, &assoc.UpdatedAt, &assoc.SyncVersion, &assoc.LastSyncedAt)
		if err != nil {
			return nil, err
		}
		assocs = append(assocs, assoc)
	}
	return assocs, rows.Err()
}

// =====================================================
// ConflictLog Operations
// =====================================================

// CreateConflictLog records a resolved conflict for user awareness.
func (r *Repository) CreateConflictLog(entry *models.ConflictLog) error {
	if entry.ID == "" {
		entry.ID = models.UUID(uuid.New())
	}
	if entry.DetectedAt == 0 {
		entry.DetectedAt = time.Now().UnixMilli()
	}

	stmt, err := r.PrepareStmt(`
		INSERT INTO conflict_log (id, entity_id, entity_type, local_timestamp, remote_timestamp, resolution, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(entry.ID, entry.EntityID, entry.EntityType,
		entry.LocalTimestamp, entry.RemoteTimestamp, entry.Resolution, entry.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to create conflict log: %w", err)
	}
	return nil
}

// ListConflictLogs returns the most recent conflict log entries.
func (r *Repository) ListConflictLogs(limit int) ([]*models.ConflictLog, error) {
	stmt, err := r.PrepareStmt(`
		SELECT id, entity_id, entity_type, local_timestamp, remote_timestamp, resolution, detected_at
		FROM conflict_log ORDER BY detected_at DESC LIMIT ?`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflict logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ConflictLog
	for rows.Next() {
		entry := &models.ConflictLog{}
		err := rows.Scan(&entry.ID, &entry.EntityID, &entry.EntityType,
			&entry.LocalTimestamp, &entry.RemoteTimestamp, &entry.Resolution, &entry.DetectedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =====================================================
// AccountSession Operations
// =====================================================

// SaveAccountSession stores or replaces the device's account session.
// Only one session row is kept.
func (r *Repository) SaveAccountSession(session *models.AccountSession) error {
	now := time.Now().UnixMilli()
	if session.ID == "" {
		session.ID = models.UUID(uuid.New())
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM account_sessions WHERE id != ?", session.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear stale sessions: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO account_sessions (id, account_email, access_token, refresh_token, is_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_email = excluded.account_email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			is_enabled = excluded.is_enabled,
			updated_at = excluded.updated_at`,
		session.ID, session.AccountEmail, session.AccessToken, session.RefreshToken,
		session.IsEnabled, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save account session: %w", err)
	}
	return tx.Commit()
}

// GetAccountSession retrieves the stored account session.
// Returns sql.ErrNoRows when the device has never signed in.
func (r *Repository) GetAccountSession() (*models.AccountSession, error) {
	stmt, err := r.PrepareStmt(`
		SELECT id, account_email, access_token, refresh_token, is_enabled, created_at, updated_at
		FROM account_sessions LIMIT 1`)
	if err != nil {
		return nil, err
	}

	session := &models.AccountSession{}
	err = stmt.QueryRow().Scan(&session.ID, &session.AccountEmail, &session.AccessToken,
		&session.RefreshToken, &session.IsEnabled, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteAccountSession signs the device out.
func (r *Repository) DeleteAccountSession() error {
	_, err := r.db.Exec("DELETE FROM account_sessions")
	return err
}
