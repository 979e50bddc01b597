// Package models provides data model definitions for the Quillnote sync core.
package models

import (
	"fmt"
	"strings"
)

// Association links a note into a journal. Associations have no primary
// key of their own; the (JournalID, ContentID) pair identifies them.
// Timestamps are epoch milliseconds.
type Association struct {
	JournalID    UUID  `db:"journal_id" json:"journal_id"`
	ContentID    UUID  `db:"content_id" json:"content_id"`
	CreatedAt    int64 `db:"created_at" json:"created_at"`
	UpdatedAt    int64 `db:"updated_at" json:"updated_at"`
	SyncVersion  int64 `db:"sync_version" json:"sync_version"`
	LastSyncedAt int64 `db:"last_synced_at" json:"last_synced_at,omitempty"`
}

// TableName returns the table name for Association.
func (Association) TableName() string {
	return "journal_notes"
}

// UpdatedAtMillis returns the last-updated timestamp in epoch milliseconds.
func (a *Association) UpdatedAtMillis() int64 {
	return a.UpdatedAt
}

// PendingID serializes the composite key into the single pending-id
// string used by the ledger.
func (a *Association) PendingID() string {
	return AssociationPendingID(a.JournalID, a.ContentID)
}

// AssociationPendingID builds the ledger pending-id for a
// (journalID, contentID) pair.
func AssociationPendingID(journalID, contentID UUID) string {
	return string(journalID) + ":" + string(contentID)
}

// ParseAssociationPendingID splits a ledger pending-id back into its
// (journalID, contentID) pair.
func ParseAssociationPendingID(pendingID string) (journalID, contentID UUID, err error) {
	parts := strings.SplitN(pendingID, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed association pending id: %q", pendingID)
	}
	return UUID(parts[0]), UUID(parts[1]), nil
}
