// Package models provides data model definitions for the Quillnote sync core.
package models

import "time"

// NoteKind discriminates the JournalNote variants.
type NoteKind string

const (
	NoteKindText  NoteKind = "text"
	NoteKindImage NoteKind = "image"
	NoteKindAudio NoteKind = "audio"
	NoteKindVideo NoteKind = "video"
)

// IsValid reports whether the kind is one of the known variants.
func (k NoteKind) IsValid() bool {
	switch k {
	case NoteKindText, NoteKindImage, NoteKindAudio, NoteKindVideo:
		return true
	}
	return false
}

// JournalNote represents a single journal entry. It is a tagged union
// discriminated by Kind:
//   - text:  Content is set, MediaRef is empty
//   - image: MediaRef points at the captured image
//   - audio: MediaRef points at the recording, Transcription is optional
//   - video: MediaRef points at the recording, ThumbnailRef is optional
//
// All timestamps are epoch milliseconds.
type JournalNote struct {
	ID            UUID     `db:"id" json:"id"`
	Kind          NoteKind `db:"kind" json:"kind"`
	Content       string   `db:"content" json:"content,omitempty"`
	MediaRef      string   `db:"media_ref" json:"media_ref,omitempty"`
	Transcription string   `db:"transcription" json:"transcription,omitempty"`
	ThumbnailRef  string   `db:"thumbnail_ref" json:"thumbnail_ref,omitempty"`
	CreatedAt     int64    `db:"created_at" json:"created_at"`
	UpdatedAt     int64    `db:"updated_at" json:"updated_at"`
	SyncVersion   int64    `db:"sync_version" json:"sync_version"`
	LastSyncedAt  int64    `db:"last_synced_at" json:"last_synced_at,omitempty"`
}

// TableName returns the table name for JournalNote.
func (JournalNote) TableName() string {
	return "notes"
}

// UpdatedAtMillis returns the last-updated timestamp in epoch milliseconds.
// It makes JournalNote resolvable by the conflict resolver.
func (n *JournalNote) UpdatedAtMillis() int64 {
	return n.UpdatedAt
}

// CreatedAtTime returns CreatedAt as time.Time.
func (n *JournalNote) CreatedAtTime() time.Time {
	return time.UnixMilli(n.CreatedAt)
}

// UpdatedAtTime returns UpdatedAt as time.Time.
func (n *JournalNote) UpdatedAtTime() time.Time {
	return time.UnixMilli(n.UpdatedAt)
}

// Touch updates the UpdatedAt timestamp and bumps the sync version.
func (n *JournalNote) Touch() {
	n.UpdatedAt = time.Now().UnixMilli()
	n.SyncVersion++
}
