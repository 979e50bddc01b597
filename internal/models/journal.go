// Package models provides data model definitions for the Quillnote sync core.
package models

import "time"

// Journal represents a named collection of notes.
// Timestamps are epoch milliseconds.
type Journal struct {
	ID           UUID   `db:"id" json:"id"`
	Title        string `db:"title" json:"title"`
	Description  string `db:"description" json:"description,omitempty"`
	CreatedAt    int64  `db:"created_at" json:"created_at"`
	UpdatedAt    int64  `db:"updated_at" json:"updated_at"`
	SyncVersion  int64  `db:"sync_version" json:"sync_version"`
	LastSyncedAt int64  `db:"last_synced_at" json:"last_synced_at,omitempty"`
}

// TableName returns the table name for Journal.
func (Journal) TableName() string {
	return "journals"
}

// UpdatedAtMillis returns the last-updated timestamp in epoch milliseconds.
func (j *Journal) UpdatedAtMillis() int64 {
	return j.UpdatedAt
}

// UpdatedAtTime returns UpdatedAt as time.Time.
func (j *Journal) UpdatedAtTime() time.Time {
	return time.UnixMilli(j.UpdatedAt)
}

// Touch updates the UpdatedAt timestamp and bumps the sync version.
func (j *Journal) Touch() {
	j.UpdatedAt = time.Now().UnixMilli()
	j.SyncVersion++
}
