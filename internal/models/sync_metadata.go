// Package models provides data model definitions for the Quillnote sync core.
package models

import "time"

// SyncMetadata records the confirmed sync state of one entity.
// LastSyncedAt is epoch milliseconds and never decreases; a synced
// timestamp is only overwritten by a value >= the current one.
type SyncMetadata struct {
	EntityID      string     `db:"entity_id" json:"entity_id"`
	EntityType    EntityType `db:"entity_type" json:"entity_type"`
	LastSyncedAt  int64      `db:"last_synced_at" json:"last_synced_at"`
	ServerVersion int64      `db:"server_version" json:"server_version"`
}

// TableName returns the table name for SyncMetadata.
func (SyncMetadata) TableName() string {
	return "sync_metadata"
}

// LastSyncedAtTime returns LastSyncedAt as time.Time.
func (m *SyncMetadata) LastSyncedAtTime() time.Time {
	return time.UnixMilli(m.LastSyncedAt)
}
