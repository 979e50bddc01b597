// Package models provides data model definitions for the Quillnote sync core.
package models

import "time"

// EntityType identifies which adapter and repository a pending
// operation applies to.
type EntityType string

const (
	EntityTypeNote        EntityType = "note"
	EntityTypeJournal     EntityType = "journal"
	EntityTypeAssociation EntityType = "association"
	EntityTypeMedia       EntityType = "media"
)

// AllEntityTypes lists every entity type in upload order. Journals and
// associations reference content, so notes sync first.
var AllEntityTypes = []EntityType{
	EntityTypeNote,
	EntityTypeJournal,
	EntityTypeAssociation,
	EntityTypeMedia,
}

// IsValid reports whether the entity type is known.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeNote, EntityTypeJournal, EntityTypeAssociation, EntityTypeMedia:
		return true
	}
	return false
}

// PendingOp is the kind of local mutation awaiting upload.
type PendingOp string

const (
	PendingOpCreate PendingOp = "create"
	PendingOpUpdate PendingOp = "update"
	PendingOpDelete PendingOp = "delete"
)

// IsValid reports whether the operation is known.
func (op PendingOp) IsValid() bool {
	switch op {
	case PendingOpCreate, PendingOpUpdate, PendingOpDelete:
		return true
	}
	return false
}

// PendingChange is one queued, not-yet-acknowledged local mutation.
// At most one row exists per (EntityID, EntityType); newer mutations
// are merged into the existing row by the ledger.
type PendingChange struct {
	EntityID   string     `db:"entity_id" json:"entity_id"`
	EntityType EntityType `db:"entity_type" json:"entity_type"`
	Operation  PendingOp  `db:"operation" json:"operation"`
	QueuedAt   int64      `db:"queued_at" json:"queued_at"`
}

// TableName returns the table name for PendingChange.
func (PendingChange) TableName() string {
	return "pending_changes"
}

// QueuedAtTime returns QueuedAt as time.Time.
func (p *PendingChange) QueuedAtTime() time.Time {
	return time.UnixMilli(p.QueuedAt)
}

// PendingUpload is the ledger's answer to "what needs uploading":
// the entity id plus the operation to perform against the cloud.
type PendingUpload struct {
	EntityID  string    `json:"entity_id"`
	Operation PendingOp `json:"operation"`
}
