package cloud

import (
	"context"

	"github.com/quillnote/backend/internal/models"
)

// JournalAdapter translates journals to and from the journal wire DTOs.
type JournalAdapter struct {
	client Client
}

// NewJournalAdapter creates a JournalAdapter over an API client.
func NewJournalAdapter(client Client) *JournalAdapter {
	return &JournalAdapter{client: client}
}

// Upload creates a journal remotely.
func (a *JournalAdapter) Upload(ctx context.Context, token string, journal *models.Journal) (UploadAck, error) {
	req := JournalUpload{
		ID:          string(journal.ID),
		Title:       journal.Title,
		Description: journal.Description,
		CreatedAt:   journal.CreatedAt,
		LastUpdated: journal.UpdatedAt,
	}
	return a.client.UploadJournal(ctx, token, req)
}

// Update pushes a modified journal to the cloud.
func (a *JournalAdapter) Update(ctx context.Context, token string, journal *models.Journal) (UploadAck, error) {
	req := JournalUpdate{
		Title:       journal.Title,
		Description: journal.Description,
		LastUpdated: journal.UpdatedAt,
	}
	return a.client.UpdateJournal(ctx, token, string(journal.ID), req)
}

// Delete removes a journal remotely.
func (a *JournalAdapter) Delete(ctx context.Context, token, id string) error {
	return a.client.DeleteJournal(ctx, token, id)
}

// JournalDelta is the domain-side view of a journal changes feed.
type JournalDelta struct {
	Changes       []*models.Journal
	Deletions     []Tombstone
	LastTimestamp int64
}

// Changes fetches remote journal changes since the given timestamp.
func (a *JournalAdapter) Changes(ctx context.Context, token string, since int64) (*JournalDelta, error) {
	resp, err := a.client.GetJournalChanges(ctx, token, since)
	if err != nil {
		return nil, err
	}

	delta := &JournalDelta{LastTimestamp: resp.LastTimestamp}

	for _, change := range resp.Changes {
		if change.IsDeleted {
			delta.Deletions = append(delta.Deletions, Tombstone{ID: change.ID, DeletedAt: change.LastUpdated})
			continue
		}
		delta.Changes = append(delta.Changes, &models.Journal{
			ID:           models.UUID(change.ID),
			Title:        change.Title,
			Description:  change.Description,
			CreatedAt:    change.CreatedAt,
			UpdatedAt:    change.LastUpdated,
			SyncVersion:  change.ServerVersion,
			LastSyncedAt: change.LastUpdated,
		})
	}

	for _, deletion := range resp.Deletions {
		delta.Deletions = append(delta.Deletions, Tombstone{ID: deletion.ID, DeletedAt: deletion.DeletedAt})
	}

	return delta, nil
}
