// Package cloud provides unit tests for the journal, association, and
// media adapters.
package cloud

import (
	"context"
	"testing"

	apperrors "github.com/quillnote/backend/internal/errors"
	"github.com/quillnote/backend/internal/models"
)

// TestJournalAdapter_roundTrip verifies upload, update, delete, changes.
func TestJournalAdapter_roundTrip(t *testing.T) {
	client := newFakeClient()
	client.acks["UploadJournal"] = UploadAck{ID: "j1", ServerVersion: 1, Timestamp: 100}
	adapter := NewJournalAdapter(client)
	ctx := context.Background()

	journal := &models.Journal{ID: "j1", Title: "Travel", Description: "trips", CreatedAt: 10, UpdatedAt: 20}

	ack, err := adapter.Upload(ctx, "tok", journal)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if ack.Timestamp != 100 {
		t.Errorf("ack timestamp = %d, want 100", ack.Timestamp)
	}
	req := client.callsTo("UploadJournal")[0].Body.(JournalUpload)
	if req.Title != "Travel" || req.LastUpdated != 20 {
		t.Errorf("req = %+v, want Travel/20", req)
	}

	if _, err := adapter.Update(ctx, "tok", journal); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := adapter.Delete(ctx, "tok", "j1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if client.callsTo("DeleteJournal")[0].ID != "j1" {
		t.Error("Delete should target j1")
	}
}

// TestJournalChanges verifies journal feed reconstruction.
func TestJournalChanges(t *testing.T) {
	client := newFakeClient()
	client.journal = JournalChangesResponse{
		Changes: []JournalChange{
			{ID: "j1", Title: "Food", LastUpdated: 300, ServerVersion: 4},
			{ID: "j2", Title: "Old", IsDeleted: true, LastUpdated: 350},
		},
		Deletions:     []Deletion{{ID: "j3", DeletedAt: 400}},
		LastTimestamp: 900,
	}
	adapter := NewJournalAdapter(client)

	delta, err := adapter.Changes(context.Background(), "tok", 0)
	if err != nil {
		t.Fatalf("Changes failed: %v", err)
	}
	if len(delta.Changes) != 1 || delta.Changes[0].Title != "Food" {
		t.Errorf("changes = %+v, want only Food", delta.Changes)
	}
	want := []Tombstone{{ID: "j2", DeletedAt: 350}, {ID: "j3", DeletedAt: 400}}
	if len(delta.Deletions) != 2 || delta.Deletions[0] != want[0] || delta.Deletions[1] != want[1] {
		t.Errorf("deletions = %v, want %v", delta.Deletions, want)
	}
	if delta.LastTimestamp != 900 {
		t.Errorf("lastTimestamp = %d, want 900", delta.LastTimestamp)
	}
}

// TestAssociationAdapter verifies composite-key handling.
func TestAssociationAdapter(t *testing.T) {
	client := newFakeClient()
	adapter := NewAssociationAdapter(client)
	ctx := context.Background()

	assoc := &models.Association{JournalID: "j1", ContentID: "n1", CreatedAt: 10, UpdatedAt: 20}
	if _, err := adapter.Upload(ctx, "tok", assoc); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	req := client.callsTo("UploadAssociation")[0].Body.(AssociationUpload)
	if req.JournalID != "j1" || req.ContentID != "n1" {
		t.Errorf("req = %+v, want j1/n1", req)
	}

	if err := adapter.Delete(ctx, "tok", "j1:n1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if client.callsTo("DeleteAssociation")[0].ID != "j1:n1" {
		t.Error("Delete should split the pending id into the composite key")
	}

	if err := adapter.Delete(ctx, "tok", "malformed"); err == nil {
		t.Error("Delete should reject malformed pending ids")
	}
}

// TestAssociationChanges verifies association feed reconstruction.
func TestAssociationChanges(t *testing.T) {
	client := newFakeClient()
	client.assoc = AssociationChangesResponse{
		Changes: []AssociationChange{
			{JournalID: "j1", ContentID: "n1", LastUpdated: 100, ServerVersion: 1},
			{JournalID: "j1", ContentID: "n2", IsDeleted: true, LastUpdated: 200},
		},
		Deletions:     []AssociationDeletion{{JournalID: "j2", ContentID: "n3", DeletedAt: 300}},
		LastTimestamp: 500,
	}
	adapter := NewAssociationAdapter(client)

	delta, err := adapter.Changes(context.Background(), "tok", 0)
	if err != nil {
		t.Fatalf("Changes failed: %v", err)
	}
	if len(delta.Changes) != 1 || delta.Changes[0].PendingID() != "j1:n1" {
		t.Errorf("changes = %+v, want j1:n1", delta.Changes)
	}
	want := []Tombstone{{ID: "j1:n2", DeletedAt: 200}, {ID: "j2:n3", DeletedAt: 300}}
	if len(delta.Deletions) != 2 || delta.Deletions[0] != want[0] || delta.Deletions[1] != want[1] {
		t.Errorf("deletions = %v, want %v", delta.Deletions, want)
	}
}

// TestMediaAdapter verifies validation and pass-through.
func TestMediaAdapter(t *testing.T) {
	client := newFakeClient()
	client.acks["UploadMedia"] = UploadAck{ID: "m1", Timestamp: 700}
	client.media = []byte("jpeg bytes")
	adapter := NewMediaAdapter(client)
	ctx := context.Background()

	ack, err := adapter.Upload(ctx, "tok", "m1", []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if ack.Timestamp != 700 {
		t.Errorf("ack timestamp = %d, want 700", ack.Timestamp)
	}

	data, err := adapter.Download(ctx, "tok", "m1")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("data = %q, want jpeg bytes", data)
	}

	if _, err := adapter.Upload(ctx, "tok", "", []byte("x")); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty id: err = %v, want VALIDATION_ERROR", err)
	}
	if _, err := adapter.Upload(ctx, "tok", "m1", nil); !apperrors.Is(err, apperrors.ErrMediaInvalid) {
		t.Errorf("empty payload: err = %v, want MEDIA_INVALID", err)
	}
}
