// Package models provides data model definitions for the Quillnote sync core.
package models

import "time"

// ConflictLog records resolved concurrent edits for user awareness.
// Timestamps are epoch milliseconds.
type ConflictLog struct {
	ID              UUID       `db:"id" json:"id"`
	EntityID        string     `db:"entity_id" json:"entity_id"`
	EntityType      EntityType `db:"entity_type" json:"entity_type"`
	LocalTimestamp  int64      `db:"local_timestamp" json:"local_timestamp"`
	RemoteTimestamp int64      `db:"remote_timestamp" json:"remote_timestamp"`
	Resolution      string     `db:"resolution" json:"resolution"` // local_wins, remote_wins
	DetectedAt      int64      `db:"detected_at" json:"detected_at"`
}

// TableName returns the table name for ConflictLog.
func (ConflictLog) TableName() string {
	return "conflict_log"
}

// DetectedAtTime returns the DetectedAt as time.Time.
func (c *ConflictLog) DetectedAtTime() time.Time {
	return time.UnixMilli(c.DetectedAt)
}
