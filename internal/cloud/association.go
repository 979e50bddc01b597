package cloud

import (
	"context"

	"github.com/quillnote/backend/internal/models"
)

// AssociationAdapter translates note-to-journal associations to and
// from their wire DTOs. Associations carry no payload beyond the
// composite key, so create and update are the same RPC; the server
// upserts on (journalId, contentId).
type AssociationAdapter struct {
	client Client
}

// NewAssociationAdapter creates an AssociationAdapter over an API client.
func NewAssociationAdapter(client Client) *AssociationAdapter {
	return &AssociationAdapter{client: client}
}

// Upload creates or refreshes an association remotely.
func (a *AssociationAdapter) Upload(ctx context.Context, token string, assoc *models.Association) (UploadAck, error) {
	req := AssociationUpload{
		JournalID:   string(assoc.JournalID),
		ContentID:   string(assoc.ContentID),
		CreatedAt:   assoc.CreatedAt,
		LastUpdated: assoc.UpdatedAt,
	}
	return a.client.UploadAssociation(ctx, token, req)
}

// Delete removes an association remotely by its composite key,
// serialized in the ledger's pending-id form.
func (a *AssociationAdapter) Delete(ctx context.Context, token, pendingID string) error {
	journalID, contentID, err := models.ParseAssociationPendingID(pendingID)
	if err != nil {
		return err
	}
	return a.client.DeleteAssociation(ctx, token, string(journalID), string(contentID))
}

// AssociationDelta is the domain-side view of an association changes feed.
// Deletion tombstone IDs are pending-id strings.
type AssociationDelta struct {
	Changes       []*models.Association
	Deletions     []Tombstone
	LastTimestamp int64
}

// Changes fetches remote association changes since the given timestamp.
func (a *AssociationAdapter) Changes(ctx context.Context, token string, since int64) (*AssociationDelta, error) {
	resp, err := a.client.GetAssociationChanges(ctx, token, since)
	if err != nil {
		return nil, err
	}

	delta := &AssociationDelta{LastTimestamp: resp.LastTimestamp}

	for _, change := range resp.Changes {
		if change.IsDeleted {
			delta.Deletions = append(delta.Deletions, Tombstone{
				ID:        models.AssociationPendingID(models.UUID(change.JournalID), models.UUID(change.ContentID)),
				DeletedAt: change.LastUpdated,
			})
			continue
		}
		delta.Changes = append(delta.Changes, &models.Association{
			JournalID:    models.UUID(change.JournalID),
			ContentID:    models.UUID(change.ContentID),
			CreatedAt:    change.CreatedAt,
			UpdatedAt:    change.LastUpdated,
			SyncVersion:  change.ServerVersion,
			LastSyncedAt: change.LastUpdated,
		})
	}

	for _, deletion := range resp.Deletions {
		delta.Deletions = append(delta.Deletions, Tombstone{
			ID:        models.AssociationPendingID(models.UUID(deletion.JournalID), models.UUID(deletion.ContentID)),
			DeletedAt: deletion.DeletedAt,
		})
	}

	return delta, nil
}
