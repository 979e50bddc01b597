// Package ledger provides the durable pending-operation ledger for
// offline-first synchronization. Every local mutation is recorded here
// until the matching upload is acknowledged by the cloud.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/quillnote/backend/internal/errors"
	"github.com/quillnote/backend/internal/logging"
	"github.com/quillnote/backend/internal/models"
)

// Ledger records which local entities have unsynced mutations and what
// kind. At most one pending operation exists per (entity id, entity
// type); newer mutations are merged into the existing row.
type Ledger struct {
	db *sql.DB

	mu        sync.Mutex
	count     int // latest pending count, replayed to new observers
	observers map[int]chan int
	nextObs   int
}

// New creates a Ledger over an already-migrated database and primes
// the observable pending count.
func New(db *sql.DB) (*Ledger, error) {
	l := &Ledger{
		db:        db,
		observers: make(map[int]chan int),
	}

	count, err := l.PendingCount()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to read pending count", err)
	}
	l.count = count

	return l, nil
}

// mergePending applies the pending-operation merge table.
// The bool result is false when the pending entry must be cleared
// (a locally created entity deleted before it ever left the device).
func mergePending(existing, incoming models.PendingOp) (models.PendingOp, bool) {
	switch existing {
	case models.PendingOpCreate:
		if incoming == models.PendingOpDelete {
			return "", false
		}
		return models.PendingOpCreate, true
	case models.PendingOpUpdate:
		return incoming, true
	case models.PendingOpDelete:
		if incoming == models.PendingOpDelete {
			return models.PendingOpDelete, true
		}
		// Re-create after a queued delete, and an update of a
		// deleted-but-unsynced entity, both become CREATE.
		return models.PendingOpCreate, true
	default:
		return incoming, true
	}
}

// Enqueue records a local mutation, merging it with any pending
// operation already queued for the same entity.
func (l *Ledger) Enqueue(entityID string, entityType models.EntityType, op models.PendingOp) error {
	if entityID == "" {
		return apperrors.New(apperrors.ErrValidation, "entity id is empty")
	}
	if !entityType.IsValid() {
		return apperrors.New(apperrors.ErrValidation, fmt.Sprintf("unknown entity type %q", entityType))
	}
	if !op.IsValid() {
		return apperrors.New(apperrors.ErrValidation, fmt.Sprintf("unknown operation %q", op))
	}

	tx, err := l.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to begin transaction", err)
	}

	var existing models.PendingOp
	err = tx.QueryRow(
		"SELECT operation FROM pending_changes WHERE entity_id = ? AND entity_type = ?",
		entityID, entityType,
	).Scan(&existing)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.Exec(
			"INSERT INTO pending_changes (entity_id, entity_type, operation, queued_at) VALUES (?, ?, ?, ?)",
			entityID, entityType, op, time.Now().UnixMilli())
	case err != nil:
		tx.Rollback()
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to read pending entry", err)
	default:
		merged, keep := mergePending(existing, op)
		if !keep {
			_, err = tx.Exec(
				"DELETE FROM pending_changes WHERE entity_id = ? AND entity_type = ?",
				entityID, entityType)
		} else if merged != existing {
			_, err = tx.Exec(
				"UPDATE pending_changes SET operation = ?, queued_at = ? WHERE entity_id = ? AND entity_type = ?",
				merged, time.Now().UnixMilli(), entityID, entityType)
		}
	}
	if err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to write pending entry", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to commit pending entry", err)
	}

	l.notifyCountChanged()
	return nil
}

// PendingUploads returns the queued operations for one entity type.
func (l *Ledger) PendingUploads(entityType models.EntityType) ([]models.PendingUpload, error) {
	rows, err := l.db.Query(
		"SELECT entity_id, operation FROM pending_changes WHERE entity_type = ? ORDER BY queued_at",
		entityType)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list pending uploads", err)
	}
	defer rows.Close()

	var uploads []models.PendingUpload
	for rows.Next() {
		var u models.PendingUpload
		if err := rows.Scan(&u.EntityID, &u.Operation); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan pending upload", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// PendingChanges returns every queued operation across all entity types.
func (l *Ledger) PendingChanges() ([]models.PendingChange, error) {
	rows, err := l.db.Query(
		"SELECT entity_id, entity_type, operation, queued_at FROM pending_changes ORDER BY queued_at")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list pending changes", err)
	}
	defer rows.Close()

	var changes []models.PendingChange
	for rows.Next() {
		var c models.PendingChange
		if err := rows.Scan(&c.EntityID, &c.EntityType, &c.Operation, &c.QueuedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan pending change", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// MarkSynced removes the pending entry for an entity and advances its
// sync metadata. syncedAt is epoch milliseconds. Calling MarkSynced for
// an entity with no pending entry is a no-op, so retried acknowledgments
// are safe. The per-type last-sync time and the per-entity metadata only
// ever move forward.
func (l *Ledger) MarkSynced(entityID string, entityType models.EntityType, syncedAt, version int64) error {
	tx, err := l.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to begin transaction", err)
	}

	if _, err := tx.Exec(
		"DELETE FROM pending_changes WHERE entity_id = ? AND entity_type = ?",
		entityID, entityType); err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to clear pending entry", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO sync_metadata (entity_id, entity_type, last_synced_at, server_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id, entity_type) DO UPDATE SET
			last_synced_at = MAX(last_synced_at, excluded.last_synced_at),
			server_version = MAX(server_version, excluded.server_version)`,
		entityID, entityType, syncedAt, version); err != nil {
		tx.Rollback()
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to write sync metadata", err)
	}

	if err := advanceLastSyncTime(tx, entityType, syncedAt); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to commit mark-synced", err)
	}

	l.notifyCountChanged()
	return nil
}

// SyncMetadata returns the recorded metadata for one entity, or nil
// when the entity has never synced.
func (l *Ledger) SyncMetadata(entityID string, entityType models.EntityType) (*models.SyncMetadata, error) {
	meta := &models.SyncMetadata{}
	err := l.db.QueryRow(
		"SELECT entity_id, entity_type, last_synced_at, server_version FROM sync_metadata WHERE entity_id = ? AND entity_type = ?",
		entityID, entityType,
	).Scan(&meta.EntityID, &meta.EntityType, &meta.LastSyncedAt, &meta.ServerVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to read sync metadata", err)
	}
	return meta, nil
}

// LastSyncTime returns the per-type last-sync timestamp in epoch
// milliseconds, or 0 when the type has never synced.
func (l *Ledger) LastSyncTime(entityType models.EntityType) (int64, error) {
	var ts int64
	err := l.db.QueryRow(
		"SELECT last_sync_at FROM last_sync_times WHERE entity_type = ?", entityType,
	).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to read last sync time", err)
	}
	return ts, nil
}

// UpdateLastSyncTime advances the per-type last-sync timestamp.
// A timestamp older than the stored one is ignored.
func (l *Ledger) UpdateLastSyncTime(entityType models.EntityType, ts int64) error {
	tx, err := l.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to begin transaction", err)
	}
	if err := advanceLastSyncTime(tx, entityType, ts); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to commit last sync time", err)
	}
	return nil
}

func advanceLastSyncTime(tx *sql.Tx, entityType models.EntityType, ts int64) error {
	_, err := tx.Exec(`
		INSERT INTO last_sync_times (entity_type, last_sync_at) VALUES (?, ?)
		ON CONFLICT(entity_type) DO UPDATE SET
			last_sync_at = MAX(last_sync_at, excluded.last_sync_at)`,
		entityType, ts)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to advance last sync time", err)
	}
	return nil
}

// ResetSyncStatus force re-enqueues an UPDATE for a stuck entity so the
// next upload pass retries it.
func (l *Ledger) ResetSyncStatus(entityID string, entityType models.EntityType) error {
	if entityID == "" {
		return apperrors.New(apperrors.ErrValidation, "entity id is empty")
	}

	_, err := l.db.Exec(`
		INSERT INTO pending_changes (entity_id, entity_type, operation, queued_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id, entity_type) DO UPDATE SET
			operation = excluded.operation,
			queued_at = excluded.queued_at`,
		entityID, entityType, models.PendingOpUpdate, time.Now().UnixMilli())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to reset sync status", err)
	}

	logging.Info("Sync status reset", map[string]interface{}{
		"entity_id":   entityID,
		"entity_type": entityType,
	})

	l.notifyCountChanged()
	return nil
}

// PendingCount returns the total pending count across all entity types.
func (l *Ledger) PendingCount() (int, error) {
	var count int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM pending_changes").Scan(&count); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to count pending changes", err)
	}
	return count, nil
}

// ObservePendingCount returns a channel that first replays the current
// pending count and then receives every subsequent change. Slow
// observers only ever see the latest value; intermediate values may be
// skipped. The returned cancel function releases the observer.
func (l *Ledger) ObservePendingCount() (<-chan int, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan int, 1)
	ch <- l.count

	id := l.nextObs
	l.nextObs++
	l.observers[id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.observers[id]; ok {
			delete(l.observers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// notifyCountChanged recomputes the pending count and broadcasts it.
func (l *Ledger) notifyCountChanged() {
	count, err := l.PendingCount()
	if err != nil {
		logging.Error("Failed to refresh pending count", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.count = count
	for _, ch := range l.observers {
		// Replace a stale undelivered value with the latest one
		select {
		case ch <- count:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- count
		}
	}
}
