// Package sync orchestrates cloud synchronization: it drains the
// pending-change ledger upward and applies remote change feeds downward,
// resolving concurrent edits with last-write-wins.
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/quillnote/backend/internal/cloud"
	apperrors "github.com/quillnote/backend/internal/errors"
	"github.com/quillnote/backend/internal/logging"
	"github.com/quillnote/backend/internal/media"
	"github.com/quillnote/backend/internal/models"
	"github.com/quillnote/backend/internal/session"
	"github.com/quillnote/backend/internal/sync/conflict"
)

// errorHistorySize bounds the ring of recent sync errors kept in memory.
const errorHistorySize = 20

// SyncError describes one failed item within a sync pass.
type SyncError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id,omitempty"`
}

// Result summarizes one sync pass. Success is false iff any item failed;
// failed items stay pending and are retried on the next pass.
type Result struct {
	Success           bool        `json:"success"`
	Uploaded          int         `json:"uploaded"`
	Downloaded        int         `json:"downloaded"`
	ConflictsResolved int         `json:"conflicts_resolved"`
	Errors            []SyncError `json:"errors,omitempty"`
}

// Status is the current sync state, assembled without network I/O.
type Status struct {
	Enabled        bool   `json:"enabled"`
	Syncing        bool   `json:"syncing"`
	PendingUploads int    `json:"pending_uploads"`
	LastSyncTime   int64  `json:"last_sync_time"`
	HasErrors      bool   `json:"has_errors"`
	LastError      string `json:"last_error,omitempty"`
}

// Config carries the engine's collaborators as interfaces so callers
// and tests can substitute any piece.
type Config struct {
	Ledger       Ledger
	Resolver     *conflict.Resolver
	Repo         LocalStore
	Content      ContentAPI
	Journals     JournalAPI
	Associations AssociationAPI
	Media        MediaAPI
	Files        FileStore
	Session      session.Checker
}

// Engine drives sync passes. All exported methods are safe for
// concurrent use; at most one full sync runs at a time.
type Engine struct {
	ledger       Ledger
	resolver     *conflict.Resolver
	repo         LocalStore
	content      ContentAPI
	journals     JournalAPI
	associations AssociationAPI
	media        MediaAPI
	files        FileStore
	session      session.Checker

	mu       gosync.Mutex
	syncing  bool
	history  []SyncError
	lastErr  string
	trigger  func(startNow bool)
	notifier Notifier
}

// NewEngine creates an Engine from its collaborators.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		ledger:       cfg.Ledger,
		resolver:     cfg.Resolver,
		repo:         cfg.Repo,
		content:      cfg.Content,
		journals:     cfg.Journals,
		associations: cfg.Associations,
		media:        cfg.Media,
		files:        cfg.Files,
		session:      cfg.Session,
	}
}

// SetTrigger installs the scheduler hook used by Sync. Without a
// trigger, Sync falls back to running a full pass in a goroutine.
func (e *Engine) SetTrigger(fn func(startNow bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trigger = fn
}

// SetNotifier installs a lifecycle listener.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

// Sync requests a sync pass without waiting for it. startNow bypasses
// scheduler debouncing.
func (e *Engine) Sync(startNow bool) {
	e.mu.Lock()
	trigger := e.trigger
	e.mu.Unlock()

	if trigger != nil {
		trigger(startNow)
		return
	}
	go e.FullSync(context.Background())
}

// SyncStatus reports the current sync state using only local data.
func (e *Engine) SyncStatus() (*Status, error) {
	pending, err := e.ledger.PendingCount()
	if err != nil {
		return nil, err
	}

	lastSync, err := e.lastSyncAcrossTypes()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return &Status{
		Enabled:        e.session.IsAuthenticated(),
		Syncing:        e.syncing,
		PendingUploads: pending,
		LastSyncTime:   lastSync,
		HasErrors:      e.lastErr != "",
		LastError:      e.lastErr,
	}, nil
}

// Errors returns the recent sync error history, newest last.
func (e *Engine) Errors() []SyncError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SyncError, len(e.history))
	copy(out, e.history)
	return out
}

// FullSync uploads every pending change, then downloads remote changes
// for every entity type. A pass already in progress short-circuits.
func (e *Engine) FullSync(ctx context.Context) *Result {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return &Result{Success: false, Errors: []SyncError{{
			Code:    string(apperrors.ErrSyncFailed),
			Message: "sync already in progress",
		}}}
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	e.notify(func(n Notifier) { n.SyncStarted() })

	result := &Result{}
	token, err := e.session.AccessToken()
	if err != nil {
		e.recordError(result, err, "")
		e.finish(result)
		return result
	}

	for _, entityType := range models.AllEntityTypes {
		e.uploadType(ctx, token, entityType, result)
	}
	e.downloadNotes(ctx, token, result)
	e.downloadJournals(ctx, token, result)
	e.downloadAssociations(ctx, token, result)

	e.finish(result)
	return result
}

// UploadPendingChanges drains the ledger without downloading.
func (e *Engine) UploadPendingChanges(ctx context.Context) *Result {
	result := &Result{}
	token, err := e.session.AccessToken()
	if err != nil {
		e.recordError(result, err, "")
		e.finish(result)
		return result
	}

	for _, entityType := range models.AllEntityTypes {
		e.uploadType(ctx, token, entityType, result)
	}
	e.finish(result)
	return result
}

// DownloadRemoteChanges applies remote change feeds without uploading.
func (e *Engine) DownloadRemoteChanges(ctx context.Context) *Result {
	result := &Result{}
	token, err := e.session.AccessToken()
	if err != nil {
		e.recordError(result, err, "")
		e.finish(result)
		return result
	}

	e.downloadNotes(ctx, token, result)
	e.downloadJournals(ctx, token, result)
	e.downloadAssociations(ctx, token, result)
	e.finish(result)
	return result
}

// SyncContent syncs notes (and their media) in both directions.
func (e *Engine) SyncContent(ctx context.Context) *Result {
	return e.syncOne(ctx, func(token string, result *Result) {
		e.uploadType(ctx, token, models.EntityTypeNote, result)
		e.uploadType(ctx, token, models.EntityTypeMedia, result)
		e.downloadNotes(ctx, token, result)
	})
}

// SyncJournals syncs journals in both directions.
func (e *Engine) SyncJournals(ctx context.Context) *Result {
	return e.syncOne(ctx, func(token string, result *Result) {
		e.uploadType(ctx, token, models.EntityTypeJournal, result)
		e.downloadJournals(ctx, token, result)
	})
}

// SyncAssociations syncs journal-note associations in both directions.
func (e *Engine) SyncAssociations(ctx context.Context) *Result {
	return e.syncOne(ctx, func(token string, result *Result) {
		e.uploadType(ctx, token, models.EntityTypeAssociation, result)
		e.downloadAssociations(ctx, token, result)
	})
}

func (e *Engine) syncOne(ctx context.Context, run func(token string, result *Result)) *Result {
	result := &Result{}
	token, err := e.session.AccessToken()
	if err != nil {
		e.recordError(result, err, "")
		e.finish(result)
		return result
	}
	run(token, result)
	e.finish(result)
	return result
}

// uploadType pushes every pending change of one entity type. Item
// failures are recorded and do not abort the remaining items.
func (e *Engine) uploadType(ctx context.Context, token string, entityType models.EntityType, result *Result) {
	uploads, err := e.ledger.PendingUploads(entityType)
	if err != nil {
		e.recordError(result, err, "")
		return
	}

	for _, upload := range uploads {
		if err := e.uploadOne(ctx, token, entityType, upload); err != nil {
			e.recordError(result, err, upload.EntityID)
			continue
		}
		result.Uploaded++
	}
}

func (e *Engine) uploadOne(ctx context.Context, token string, entityType models.EntityType, upload models.PendingUpload) error {
	switch entityType {
	case models.EntityTypeNote:
		return e.uploadNote(ctx, token, upload)
	case models.EntityTypeJournal:
		return e.uploadJournal(ctx, token, upload)
	case models.EntityTypeAssociation:
		return e.uploadAssociation(ctx, token, upload)
	case models.EntityTypeMedia:
		return e.uploadMedia(ctx, token, upload)
	}
	return apperrors.New(apperrors.ErrInternal, fmt.Sprintf("unknown entity type %q", entityType))
}

func (e *Engine) uploadNote(ctx context.Context, token string, upload models.PendingUpload) error {
	if upload.Operation == models.PendingOpDelete {
		if err := e.content.Delete(ctx, token, upload.EntityID); err != nil && !isRemoteNotFound(err) {
			return err
		}
		// syncedAt 0 leaves the watermark untouched; the server's own
		// tombstone timestamp arrives on the next download pass.
		return e.ledger.MarkSynced(upload.EntityID, models.EntityTypeNote, 0, 0)
	}

	note, err := e.repo.GetNote(upload.EntityID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "pending note missing locally", err)
	}

	var ack cloud.UploadAck
	if upload.Operation == models.PendingOpCreate {
		ack, err = e.content.Upload(ctx, token, note)
	} else {
		ack, err = e.content.Update(ctx, token, note)
	}
	if err != nil {
		return err
	}

	note.SyncVersion = ack.ServerVersion
	note.LastSyncedAt = ack.Timestamp
	if err := e.repo.UpsertNote(note); err != nil {
		return err
	}
	return e.ledger.MarkSynced(upload.EntityID, models.EntityTypeNote, ack.Timestamp, ack.ServerVersion)
}

func (e *Engine) uploadJournal(ctx context.Context, token string, upload models.PendingUpload) error {
	if upload.Operation == models.PendingOpDelete {
		if err := e.journals.Delete(ctx, token, upload.EntityID); err != nil && !isRemoteNotFound(err) {
			return err
		}
		return e.ledger.MarkSynced(upload.EntityID, models.EntityTypeJournal, 0, 0)
	}

	journal, err := e.repo.GetJournal(upload.EntityID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "pending journal missing locally", err)
	}

	var ack cloud.UploadAck
	if upload.Operation == models.PendingOpCreate {
		ack, err = e.journals.Upload(ctx, token, journal)
	} else {
		ack, err = e.journals.Update(ctx, token, journal)
	}
	if err != nil {
		return err
	}

	journal.SyncVersion = ack.ServerVersion
	journal.LastSyncedAt = ack.Timestamp
	if err := e.repo.UpsertJournal(journal); err != nil {
		return err
	}
	return e.ledger.MarkSynced(upload.EntityID, models.EntityTypeJournal, ack.Timestamp, ack.ServerVersion)
}

func (e *Engine) uploadAssociation(ctx context.Context, token string, upload models.PendingUpload) error {
	if upload.Operation == models.PendingOpDelete {
		if err := e.associations.Delete(ctx, token, upload.EntityID); err != nil && !isRemoteNotFound(err) {
			return err
		}
		return e.ledger.MarkSynced(upload.EntityID, models.EntityTypeAssociation, 0, 0)
	}

	journalID, contentID, err := models.ParseAssociationPendingID(upload.EntityID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "bad association pending id", err)
	}

	assoc, err := e.repo.GetAssociation(string(journalID), string(contentID))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "pending association missing locally", err)
	}

	// Creates and updates both land on the server's upsert endpoint.
	ack, err := e.associations.Upload(ctx, token, assoc)
	if err != nil {
		return err
	}

	assoc.SyncVersion = ack.ServerVersion
	assoc.LastSyncedAt = ack.Timestamp
	if err := e.repo.UpsertAssociation(assoc); err != nil {
		return err
	}
	return e.ledger.MarkSynced(upload.EntityID, models.EntityTypeAssociation, ack.Timestamp, ack.ServerVersion)
}

// uploadMedia pushes attachment bytes. Media deletions never hit the
// network; the server garbage-collects unreferenced attachments.
func (e *Engine) uploadMedia(ctx context.Context, token string, upload models.PendingUpload) error {
	if upload.Operation == models.PendingOpDelete {
		return e.ledger.MarkSynced(upload.EntityID, models.EntityTypeMedia, 0, 0)
	}

	data, err := e.files.GetByID(upload.EntityID)
	if err != nil {
		return err
	}

	ack, err := e.media.Upload(ctx, token, upload.EntityID, data)
	if err != nil {
		return err
	}
	return e.ledger.MarkSynced(upload.EntityID, models.EntityTypeMedia, ack.Timestamp, ack.ServerVersion)
}

// downloadNotes applies the remote content feed: deletions first, then
// changed notes through conflict resolution, fetching missing
// attachments along the way. The last-sync watermark only advances when
// the whole phase applied cleanly.
func (e *Engine) downloadNotes(ctx context.Context, token string, result *Result) {
	since, err := e.ledger.LastSyncTime(models.EntityTypeNote)
	if err != nil {
		e.recordError(result, err, "")
		return
	}

	delta, err := e.content.Changes(ctx, token, since)
	if err != nil {
		e.recordError(result, err, "")
		return
	}

	errsBefore := len(result.Errors)

	for _, tomb := range delta.Deletions {
		if err := e.repo.DeleteNote(tomb.ID); err != nil {
			e.recordError(result, err, tomb.ID)
			continue
		}
		if err := e.ledger.MarkSynced(tomb.ID, models.EntityTypeNote, tomb.DeletedAt, 0); err != nil {
			e.recordError(result, err, tomb.ID)
			continue
		}
		result.Downloaded++
	}

	for _, remote := range delta.Changes {
		local, err := e.repo.GetNote(string(remote.ID))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			e.recordError(result, err, string(remote.ID))
			continue
		}

		decision := conflict.KeepRemote
		if local != nil {
			decision = e.resolver.Resolve(local, remote)
			if conflict.IsConflict(local, local.LastSyncedAt) {
				entry := e.resolver.Log(string(remote.ID), models.EntityTypeNote, local, remote, decision)
				if err := e.repo.CreateConflictLog(entry); err != nil {
					logging.Warn("Failed to persist conflict log entry", map[string]interface{}{
						"entity_id": remote.ID, "error": err.Error(),
					})
				}
				result.ConflictsResolved++
			}
		}
		if decision == conflict.KeepLocal {
			continue
		}

		if err := e.fetchAttachment(ctx, token, remote); err != nil {
			e.recordError(result, err, string(remote.ID))
			continue
		}
		if err := e.repo.UpsertNote(remote); err != nil {
			e.recordError(result, err, string(remote.ID))
			continue
		}
		// Remote won; any unsynced local edit is superseded.
		if err := e.ledger.MarkSynced(string(remote.ID), models.EntityTypeNote, remote.LastSyncedAt, remote.SyncVersion); err != nil {
			e.recordError(result, err, string(remote.ID))
			continue
		}
		result.Downloaded++
	}

	if len(result.Errors) == errsBefore && delta.LastTimestamp > 0 {
		if err := e.ledger.UpdateLastSyncTime(models.EntityTypeNote, delta.LastTimestamp); err != nil {
			e.recordError(result, err, "")
		}
	}
}

// fetchAttachment downloads a remote note's attachment when it is not
// stored locally, rewriting the note's ref to the local copy.
func (e *Engine) fetchAttachment(ctx context.Context, token string, note *models.JournalNote) error {
	if note.Kind == models.NoteKindText || note.MediaRef == "" {
		return nil
	}

	id, err := media.IDOf(note.MediaRef)
	if err != nil {
		logging.Warn("Skipping attachment with unrecognized media ref", map[string]interface{}{
			"entity_id": note.ID, "media_ref": note.MediaRef,
		})
		return nil
	}
	if e.files.ExistsID(id) {
		return nil
	}

	data, err := e.media.Download(ctx, token, id)
	if err != nil {
		return err
	}
	ref, err := e.files.Put(data)
	if err != nil {
		return err
	}
	note.MediaRef = ref
	return nil
}

func (e *Engine) downloadJournals(ctx context.Context, token string, result *Result) {
	since, err := e.ledger.LastSyncTime(models.EntityTypeJournal)
	if err != nil {
		e.recordError(result, err, "")
		return
	}

	delta, err := e.journals.Changes(ctx, token, since)
	if err != nil {
		e.recordError(result, err, "")
		return
	}

	errsBefore := len(result.Errors)

	for _, tomb := range delta.Deletions {
		if err := e.repo.DeleteJournal(tomb.ID); err != nil {
			e.recordError(result, err, tomb.ID)
			continue
		}
		if err := e.ledger.MarkSynced(tomb.ID, models.EntityTypeJournal, tomb.DeletedAt, 0); err != nil {
			e.recordError(result, err, tomb.ID)
			continue
		}
		result.Downloaded++
	}

	for _, remote := range delta.Changes {
		local, err := e.repo.GetJournal(string(remote.ID))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			e.recordError(result, err, string(remote.ID))
			continue
		}

		decision := conflict.KeepRemote
		if local != nil {
			decision = e.resolver.Resolve(local, remote)
			if conflict.IsConflict(local, local.LastSyncedAt) {
				entry := e.resolver.Log(string(remote.ID), models.EntityTypeJournal, local, remote, decision)
				if err := e.repo.CreateConflictLog(entry); err != nil {
					logging.Warn("Failed to persist conflict log entry", map[string]interface{}{
						"entity_id": remote.ID, "error": err.Error(),
					})
				}
				result.ConflictsResolved++
			}
		}
		if decision == conflict.KeepLocal {
			continue
		}

		if err := e.repo.UpsertJournal(remote); err != nil {
			e.recordError(result, err, string(remote.ID))
			continue
		}
		if err := e.ledger.MarkSynced(string(remote.ID), models.EntityTypeJournal, remote.LastSyncedAt, remote.SyncVersion); err != nil {
			e.recordError(result, err, string(remote.ID))
			continue
		}
		result.Downloaded++
	}

	if len(result.Errors) == errsBefore && delta.LastTimestamp > 0 {
		if err := e.ledger.UpdateLastSyncTime(models.EntityTypeJournal, delta.LastTimestamp); err != nil {
			e.recordError(result, err, "")
		}
	}
}

func (e *Engine) downloadAssociations(ctx context.Context, token string, result *Result) {
	since, err := e.ledger.LastSyncTime(models.EntityTypeAssociation)
	if err != nil {
		e.recordError(result, err, "")
		return
	}

	delta, err := e.associations.Changes(ctx, token, since)
	if err != nil {
		e.recordError(result, err, "")
		return
	}

	errsBefore := len(result.Errors)

	for _, tomb := range delta.Deletions {
		journalID, contentID, err := models.ParseAssociationPendingID(tomb.ID)
		if err != nil {
			e.recordError(result, err, tomb.ID)
			continue
		}
		if err := e.repo.DeleteAssociation(string(journalID), string(contentID)); err != nil {
			e.recordError(result, err, tomb.ID)
			continue
		}
		if err := e.ledger.MarkSynced(tomb.ID, models.EntityTypeAssociation, tomb.DeletedAt, 0); err != nil {
			e.recordError(result, err, tomb.ID)
			continue
		}
		result.Downloaded++
	}

	for _, remote := range delta.Changes {
		pendingID := remote.PendingID()

		local, err := e.repo.GetAssociation(string(remote.JournalID), string(remote.ContentID))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			e.recordError(result, err, pendingID)
			continue
		}

		decision := conflict.KeepRemote
		if local != nil {
			decision = e.resolver.Resolve(local, remote)
			if conflict.IsConflict(local, local.LastSyncedAt) {
				entry := e.resolver.Log(pendingID, models.EntityTypeAssociation, local, remote, decision)
				if err := e.repo.CreateConflictLog(entry); err != nil {
					logging.Warn("Failed to persist conflict log entry", map[string]interface{}{
						"entity_id": pendingID, "error": err.Error(),
					})
				}
				result.ConflictsResolved++
			}
		}
		if decision == conflict.KeepLocal {
			continue
		}

		if err := e.repo.UpsertAssociation(remote); err != nil {
			e.recordError(result, err, pendingID)
			continue
		}
		if err := e.ledger.MarkSynced(pendingID, models.EntityTypeAssociation, remote.LastSyncedAt, remote.SyncVersion); err != nil {
			e.recordError(result, err, pendingID)
			continue
		}
		result.Downloaded++
	}

	if len(result.Errors) == errsBefore && delta.LastTimestamp > 0 {
		if err := e.ledger.UpdateLastSyncTime(models.EntityTypeAssociation, delta.LastTimestamp); err != nil {
			e.recordError(result, err, "")
		}
	}
}

// lastSyncAcrossTypes returns the oldest per-type watermark, i.e. the
// point up to which every entity type is known to be synced.
func (e *Engine) lastSyncAcrossTypes() (int64, error) {
	oldest := int64(-1)
	for _, entityType := range models.AllEntityTypes {
		if entityType == models.EntityTypeMedia {
			continue // media has no change feed
		}
		ts, err := e.ledger.LastSyncTime(entityType)
		if err != nil {
			return 0, err
		}
		if oldest < 0 || ts < oldest {
			oldest = ts
		}
	}
	if oldest < 0 {
		return 0, nil
	}
	return oldest, nil
}

// recordError appends a typed error to the result and the history ring.
func (e *Engine) recordError(result *Result, err error, entityID string) {
	syncErr := SyncError{
		Code:     errorCode(err),
		Message:  err.Error(),
		EntityID: entityID,
	}
	result.Errors = append(result.Errors, syncErr)

	e.mu.Lock()
	e.history = append(e.history, syncErr)
	if len(e.history) > errorHistorySize {
		e.history = e.history[len(e.history)-errorHistorySize:]
	}
	e.mu.Unlock()

	logging.Error("Sync item failed", err, map[string]interface{}{
		"code": syncErr.Code, "entity_id": entityID,
	})
}

// finish settles the result's Success flag and notifies listeners.
func (e *Engine) finish(result *Result) {
	result.Success = len(result.Errors) == 0

	e.mu.Lock()
	if result.Success {
		e.lastErr = ""
	} else {
		e.lastErr = result.Errors[len(result.Errors)-1].Message
	}
	e.mu.Unlock()

	logging.Info("Sync pass finished", map[string]interface{}{
		"success":    result.Success,
		"uploaded":   result.Uploaded,
		"downloaded": result.Downloaded,
		"conflicts":  result.ConflictsResolved,
		"errors":     len(result.Errors),
	})
	e.notify(func(n Notifier) { n.SyncFinished(result) })
}

func (e *Engine) notify(fn func(Notifier)) {
	e.mu.Lock()
	n := e.notifier
	e.mu.Unlock()
	if n != nil {
		fn(n)
	}
}

// errorCode maps an error to its wire-level code.
func errorCode(err error) string {
	if apiErr, ok := cloud.IsAPIError(err); ok {
		return apiErr.Code
	}
	return string(apperrors.CodeOf(err))
}

// isRemoteNotFound reports whether the server says the entity is
// already gone, which deletes treat as success.
func isRemoteNotFound(err error) bool {
	apiErr, ok := cloud.IsAPIError(err)
	return ok && apiErr.HTTPStatus == 404
}
