// Package conflict provides conflict resolution for multi-device
// synchronization using a "last write wins" strategy.
package conflict

import (
	"time"

	"github.com/quillnote/backend/internal/logging"
	"github.com/quillnote/backend/internal/models"
)

// Syncable is any entity the resolver can decide on. All synchronizable
// domain types expose their last-updated timestamp in epoch milliseconds.
type Syncable interface {
	UpdatedAtMillis() int64
}

// Decision is the outcome of resolving one entity.
type Decision int

const (
	// KeepLocal retains the local version; the remote change is dropped.
	KeepLocal Decision = iota
	// KeepRemote overwrites the local version with the remote one.
	KeepRemote
)

// String returns a readable form of the decision.
func (d Decision) String() string {
	if d == KeepRemote {
		return "remote_wins"
	}
	return "local_wins"
}

// ResolutionStrategy defines how conflicts are resolved.
type ResolutionStrategy string

const (
	ResolutionStrategyLastWriteWins ResolutionStrategy = "last_write_wins"
)

// Resolver handles conflict resolution during synchronization.
type Resolver struct {
	strategy ResolutionStrategy
}

// NewResolver creates a new Resolver with the specified strategy.
func NewResolver(strategy ResolutionStrategy) *Resolver {
	return &Resolver{strategy: strategy}
}

// Resolve decides whether the local or remote version of an entity
// should be kept. local is nil when the entity does not exist locally,
// in which case the remote version always wins (a new entity arriving
// from another device).
//
// Under last-write-wins the remote version wins only when it is
// strictly newer; on equal timestamps the local version is retained,
// which keeps repeated downloads of an already-applied change from
// rewriting local state.
func (r *Resolver) Resolve(local, remote Syncable) Decision {
	if local == nil {
		return KeepRemote
	}

	if remote.UpdatedAtMillis() > local.UpdatedAtMillis() {
		return KeepRemote
	}
	return KeepLocal
}

// Log builds a conflict log entry for a resolved concurrent edit.
// Callers persist it for user awareness.
func (r *Resolver) Log(entityID string, entityType models.EntityType, local, remote Syncable, decision Decision) *models.ConflictLog {
	entry := &models.ConflictLog{
		EntityID:        entityID,
		EntityType:      entityType,
		RemoteTimestamp: remote.UpdatedAtMillis(),
		Resolution:      decision.String(),
		DetectedAt:      time.Now().UnixMilli(),
	}
	if local != nil {
		entry.LocalTimestamp = local.UpdatedAtMillis()
	}

	logging.Info("Conflict resolved using last-write-wins", map[string]interface{}{
		"entity_id":        entityID,
		"entity_type":      entityType,
		"local_timestamp":  entry.LocalTimestamp,
		"remote_timestamp": entry.RemoteTimestamp,
		"resolution":       entry.Resolution,
	})

	return entry
}

// IsConflict reports whether both sides changed since the last sync,
// i.e. the remote change would overwrite unsynced local edits. A nil
// local or a local copy unchanged since its last sync is not a conflict.
func IsConflict(local Syncable, lastSyncedAt int64) bool {
	if local == nil {
		return false
	}
	return local.UpdatedAtMillis() > lastSyncedAt
}
