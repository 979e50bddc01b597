// Package db provides unit tests for CRUD repository operations.
package db

import (
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/quillnote/backend/internal/models"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// TestMigrateIdempotent verifies running migrations twice is safe.
func TestMigrateIdempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	version, err := NewMigrator(db).CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

// TestCreateAndGetNote verifies note round trip.
func TestCreateAndGetNote(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	note := &models.JournalNote{
		Kind:    models.NoteKindText,
		Content: "first entry",
	}
	if err := repo.CreateNote(note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	if note.ID == "" {
		t.Fatal("CreateNote should assign an id")
	}
	if note.SyncVersion != 1 {
		t.Errorf("SyncVersion = %d, want 1", note.SyncVersion)
	}

	got, err := repo.GetNote(string(note.ID))
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if got.Content != "first entry" {
		t.Errorf("content = %q, want %q", got.Content, "first entry")
	}
	if got.Kind != models.NoteKindText {
		t.Errorf("kind = %q, want text", got.Kind)
	}
}

// TestGetNote_missing verifies sql.ErrNoRows for absent notes.
func TestGetNote_missing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.GetNote("no-such-note")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

// TestUpsertNote_preservesTimestamps verifies sync writes don't re-touch.
func TestUpsertNote_preservesTimestamps(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	remote := &models.JournalNote{
		ID:           "remote-note",
		Kind:         models.NoteKindAudio,
		MediaRef:     "file:///a.m4a",
		CreatedAt:    5000,
		UpdatedAt:    9000,
		SyncVersion:  7,
		LastSyncedAt: 9000,
	}
	if err := repo.UpsertNote(remote); err != nil {
		t.Fatalf("UpsertNote failed: %v", err)
	}

	got, err := repo.GetNote("remote-note")
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if got.UpdatedAt != 9000 {
		t.Errorf("UpdatedAt = %d, want 9000", got.UpdatedAt)
	}
	if got.SyncVersion != 7 {
		t.Errorf("SyncVersion = %d, want 7", got.SyncVersion)
	}

	// Second upsert replaces content for the same id
	remote.Content = "transcribed"
	remote.UpdatedAt = 9500
	if err := repo.UpsertNote(remote); err != nil {
		t.Fatalf("second UpsertNote failed: %v", err)
	}
	got, _ = repo.GetNote("remote-note")
	if got.UpdatedAt != 9500 {
		t.Errorf("UpdatedAt after upsert = %d, want 9500", got.UpdatedAt)
	}
}

// TestUpdateNote_touches verifies local updates bump version and timestamp.
func TestUpdateNote_touches(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	note := &models.JournalNote{Kind: models.NoteKindText, Content: "v1"}
	if err := repo.CreateNote(note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	note.Content = "v2"
	if err := repo.UpdateNote(note); err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}

	got, _ := repo.GetNote(string(note.ID))
	if got.SyncVersion != 2 {
		t.Errorf("SyncVersion = %d, want 2", got.SyncVersion)
	}
	if got.Content != "v2" {
		t.Errorf("content = %q, want v2", got.Content)
	}
}

// TestDeleteNote verifies deletion.
func TestDeleteNote(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	note := &models.JournalNote{Kind: models.NoteKindText, Content: "gone"}
	if err := repo.CreateNote(note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	if err := repo.DeleteNote(string(note.ID)); err != nil {
		t.Fatalf("DeleteNote failed: %v", err)
	}

	if _, err := repo.GetNote(string(note.ID)); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

// TestJournalCRUD verifies journal operations.
func TestJournalCRUD(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	journal := &models.Journal{Title: "Travel", Description: "summer trip"}
	if err := repo.CreateJournal(journal); err != nil {
		t.Fatalf("CreateJournal failed: %v", err)
	}

	got, err := repo.GetJournal(string(journal.ID))
	if err != nil {
		t.Fatalf("GetJournal failed: %v", err)
	}
	if got.Title != "Travel" {
		t.Errorf("title = %q, want Travel", got.Title)
	}

	journal.Title = "Travel 2026"
	if err := repo.UpdateJournal(journal); err != nil {
		t.Fatalf("UpdateJournal failed: %v", err)
	}
	got, _ = repo.GetJournal(string(journal.ID))
	if got.Title != "Travel 2026" || got.SyncVersion != 2 {
		t.Errorf("got title=%q version=%d, want Travel 2026 / 2", got.Title, got.SyncVersion)
	}

	if err := repo.DeleteJournal(string(journal.ID)); err != nil {
		t.Fatalf("DeleteJournal failed: %v", err)
	}
	if _, err := repo.GetJournal(string(journal.ID)); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

// TestAssociationCRUD verifies the composite-key association table.
func TestAssociationCRUD(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	assoc := &models.Association{JournalID: "journal-1", ContentID: "note-1"}
	if err := repo.CreateAssociation(assoc); err != nil {
		t.Fatalf("CreateAssociation failed: %v", err)
	}

	got, err := repo.GetAssociation("journal-1", "note-1")
	if err != nil {
		t.Fatalf("GetAssociation failed: %v", err)
	}
	if got.SyncVersion != 1 {
		t.Errorf("SyncVersion = %d, want 1", got.SyncVersion)
	}

	list, err := repo.ListAssociations("journal-1")
	if err != nil {
		t.Fatalf("ListAssociations failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}

	if err := repo.DeleteAssociation("journal-1", "note-1"); err != nil {
		t.Fatalf("DeleteAssociation failed: %v", err)
	}
	if _, err := repo.GetAssociation("journal-1", "note-1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

// TestDeleteJournal_cascades verifies associations go with the journal.
func TestDeleteJournal_cascades(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	journal := &models.Journal{Title: "Food"}
	if err := repo.CreateJournal(journal); err != nil {
		t.Fatalf("CreateJournal failed: %v", err)
	}
	assoc := &models.Association{JournalID: journal.ID, ContentID: "note-9"}
	if err := repo.CreateAssociation(assoc); err != nil {
		t.Fatalf("CreateAssociation failed: %v", err)
	}

	if err := repo.DeleteJournal(string(journal.ID)); err != nil {
		t.Fatalf("DeleteJournal failed: %v", err)
	}

	list, err := repo.ListAssociations(string(journal.ID))
	if err != nil {
		t.Fatalf("ListAssociations failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("associations should be removed with journal, got %d", len(list))
	}
}

// TestConflictLog verifies conflict log persistence.
func TestConflictLog(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	entry := &models.ConflictLog{
		EntityID:        "note-3",
		EntityType:      models.EntityTypeNote,
		LocalTimestamp:  100,
		RemoteTimestamp: 200,
		Resolution:      "remote_wins",
	}
	if err := repo.CreateConflictLog(entry); err != nil {
		t.Fatalf("CreateConflictLog failed: %v", err)
	}

	logs, err := repo.ListConflictLogs(10)
	if err != nil {
		t.Fatalf("ListConflictLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs length = %d, want 1", len(logs))
	}
	if logs[0].Resolution != "remote_wins" {
		t.Errorf("resolution = %q, want remote_wins", logs[0].Resolution)
	}
	if logs[0].DetectedAt == 0 {
		t.Error("DetectedAt should be defaulted")
	}
}

// TestAccountSession_singleRow verifies only one session is kept.
func TestAccountSession_singleRow(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	first := &models.AccountSession{AccountEmail: "a@example.com", AccessToken: "t1", IsEnabled: true}
	if err := repo.SaveAccountSession(first); err != nil {
		t.Fatalf("SaveAccountSession failed: %v", err)
	}

	second := &models.AccountSession{AccountEmail: "b@example.com", AccessToken: "t2", IsEnabled: true}
	if err := repo.SaveAccountSession(second); err != nil {
		t.Fatalf("second SaveAccountSession failed: %v", err)
	}

	got, err := repo.GetAccountSession()
	if err != nil {
		t.Fatalf("GetAccountSession failed: %v", err)
	}
	if got.AccountEmail != "b@example.com" {
		t.Errorf("email = %q, want b@example.com", got.AccountEmail)
	}

	if err := repo.DeleteAccountSession(); err != nil {
		t.Fatalf("DeleteAccountSession failed: %v", err)
	}
	if _, err := repo.GetAccountSession(); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}
