package sync

import (
	"context"

	"github.com/quillnote/backend/internal/cloud"
	"github.com/quillnote/backend/internal/models"
)

// The engine depends on its collaborators only through the narrow
// interfaces below, declared here on the consumer side. The concrete
// implementations live in ledger, db, cloud, and media.

// Ledger tracks pending local changes and per-type sync watermarks.
type Ledger interface {
	PendingUploads(entityType models.EntityType) ([]models.PendingUpload, error)
	MarkSynced(entityID string, entityType models.EntityType, syncedAt, version int64) error
	LastSyncTime(entityType models.EntityType) (int64, error)
	UpdateLastSyncTime(entityType models.EntityType, ts int64) error
	PendingCount() (int, error)
}

// LocalStore is the slice of local persistence the engine touches.
type LocalStore interface {
	GetNote(id string) (*models.JournalNote, error)
	UpsertNote(note *models.JournalNote) error
	DeleteNote(id string) error

	GetJournal(id string) (*models.Journal, error)
	UpsertJournal(journal *models.Journal) error
	DeleteJournal(id string) error

	GetAssociation(journalID, contentID string) (*models.Association, error)
	UpsertAssociation(assoc *models.Association) error
	DeleteAssociation(journalID, contentID string) error

	CreateConflictLog(entry *models.ConflictLog) error
}

// FileStore holds attachment bytes content-addressed by id.
type FileStore interface {
	Put(data []byte) (string, error)
	GetByID(id string) ([]byte, error)
	ExistsID(id string) bool
}

// ContentAPI is the remote surface for notes.
type ContentAPI interface {
	Upload(ctx context.Context, token string, note *models.JournalNote) (cloud.UploadAck, error)
	Update(ctx context.Context, token string, note *models.JournalNote) (cloud.UploadAck, error)
	Delete(ctx context.Context, token, id string) error
	Changes(ctx context.Context, token string, since int64) (*cloud.ContentDelta, error)
}

// JournalAPI is the remote surface for journals.
type JournalAPI interface {
	Upload(ctx context.Context, token string, journal *models.Journal) (cloud.UploadAck, error)
	Update(ctx context.Context, token string, journal *models.Journal) (cloud.UploadAck, error)
	Delete(ctx context.Context, token, id string) error
	Changes(ctx context.Context, token string, since int64) (*cloud.JournalDelta, error)
}

// AssociationAPI is the remote surface for journal-note associations.
type AssociationAPI interface {
	Upload(ctx context.Context, token string, assoc *models.Association) (cloud.UploadAck, error)
	Delete(ctx context.Context, token, pendingID string) error
	Changes(ctx context.Context, token string, since int64) (*cloud.AssociationDelta, error)
}

// MediaAPI is the remote surface for attachment bytes.
type MediaAPI interface {
	Upload(ctx context.Context, token, mediaID string, data []byte) (cloud.UploadAck, error)
	Download(ctx context.Context, token, mediaID string) ([]byte, error)
}

// Syncer is the engine surface consumed by the HTTP handlers and the
// background scheduler.
type Syncer interface {
	// FullSync uploads pending changes then downloads remote changes.
	FullSync(ctx context.Context) *Result

	// UploadPendingChanges drains the ledger without downloading.
	UploadPendingChanges(ctx context.Context) *Result

	// DownloadRemoteChanges applies remote feeds without uploading.
	DownloadRemoteChanges(ctx context.Context) *Result

	// SyncStatus reports the current state without network I/O.
	SyncStatus() (*Status, error)

	// Sync requests a pass without waiting for it.
	Sync(startNow bool)
}

// Notifier receives sync lifecycle events. Callbacks run on the syncing
// goroutine and must not block.
type Notifier interface {
	SyncStarted()
	SyncFinished(result *Result)
}
