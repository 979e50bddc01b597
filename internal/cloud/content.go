package cloud

import (
	"context"
	"fmt"

	apperrors "github.com/quillnote/backend/internal/errors"
	"github.com/quillnote/backend/internal/models"
)

// ContentAdapter translates journal notes to and from the content wire
// DTOs. It performs no retries; failed items stay pending in the ledger
// and are retried on the next pass.
type ContentAdapter struct {
	client Client
}

// NewContentAdapter creates a ContentAdapter over an API client.
func NewContentAdapter(client Client) *ContentAdapter {
	return &ContentAdapter{client: client}
}

// wireTypeOf maps a note kind to its wire type tag.
func wireTypeOf(kind models.NoteKind) (string, error) {
	switch kind {
	case models.NoteKindText:
		return WireTypeText, nil
	case models.NoteKindImage:
		return WireTypeImage, nil
	case models.NoteKindAudio:
		return WireTypeAudio, nil
	case models.NoteKindVideo:
		return WireTypeVideo, nil
	default:
		return "", apperrors.New(apperrors.ErrValidation, fmt.Sprintf("unrecognized note kind %q", kind))
	}
}

// kindOfWireType maps a wire type tag back to a note kind.
func kindOfWireType(wireType string) (models.NoteKind, error) {
	switch wireType {
	case WireTypeText:
		return models.NoteKindText, nil
	case WireTypeImage:
		return models.NoteKindImage, nil
	case WireTypeAudio:
		return models.NoteKindAudio, nil
	case WireTypeVideo:
		return models.NoteKindVideo, nil
	default:
		return "", apperrors.New(apperrors.ErrValidation, fmt.Sprintf("unrecognized wire content type %q", wireType))
	}
}

// Upload serializes a note into an upload DTO and creates it remotely.
// Returns the server-confirmed timestamp and version.
func (a *ContentAdapter) Upload(ctx context.Context, token string, note *models.JournalNote) (UploadAck, error) {
	wireType, err := wireTypeOf(note.Kind)
	if err != nil {
		return UploadAck{}, err
	}

	req := ContentUpload{
		ID:          string(note.ID),
		Type:        wireType,
		CreatedAt:   note.CreatedAt,
		LastUpdated: note.UpdatedAt,
	}
	if note.Kind == models.NoteKindText {
		req.Content = note.Content
	} else {
		req.MediaURI = note.MediaRef
		req.Transcription = note.Transcription
		req.ThumbnailURI = note.ThumbnailRef
	}

	return a.client.UploadContent(ctx, token, req)
}

// Update pushes a modified note to the cloud.
func (a *ContentAdapter) Update(ctx context.Context, token string, note *models.JournalNote) (UploadAck, error) {
	if _, err := wireTypeOf(note.Kind); err != nil {
		return UploadAck{}, err
	}

	req := ContentUpdate{
		LastUpdated: note.UpdatedAt,
	}
	if note.Kind == models.NoteKindText {
		req.Content = note.Content
	} else {
		req.MediaURI = note.MediaRef
		req.Transcription = note.Transcription
		req.ThumbnailURI = note.ThumbnailRef
	}

	return a.client.UpdateContent(ctx, token, string(note.ID), req)
}

// Delete removes a note remotely.
func (a *ContentAdapter) Delete(ctx context.Context, token, id string) error {
	return a.client.DeleteContent(ctx, token, id)
}

// Tombstone is the domain-side view of one remote deletion. DeletedAt
// is the server-confirmed epoch-millisecond time of the delete, used as
// the synced-at timestamp when the deletion is applied locally.
type Tombstone struct {
	ID        string
	DeletedAt int64
}

// ContentDelta is the domain-side view of a content changes feed.
type ContentDelta struct {
	Changes       []*models.JournalNote
	Deletions     []Tombstone
	LastTimestamp int64
}

// Changes fetches remote note changes since the given epoch-millisecond
// timestamp and reconstructs domain entities from the wire DTOs.
// Changes flagged isDeleted are reported as deletions.
func (a *ContentAdapter) Changes(ctx context.Context, token string, since int64) (*ContentDelta, error) {
	resp, err := a.client.GetContentChanges(ctx, token, since)
	if err != nil {
		return nil, err
	}

	delta := &ContentDelta{LastTimestamp: resp.LastTimestamp}

	for _, change := range resp.Changes {
		if change.IsDeleted {
			delta.Deletions = append(delta.Deletions, Tombstone{ID: change.ID, DeletedAt: change.LastUpdated})
			continue
		}

		kind, err := kindOfWireType(change.Type)
		if err != nil {
			return nil, err
		}

		note := &models.JournalNote{
			ID:            models.UUID(change.ID),
			Kind:          kind,
			CreatedAt:     change.CreatedAt,
			UpdatedAt:     change.LastUpdated,
			SyncVersion:   change.ServerVersion,
			LastSyncedAt:  change.LastUpdated,
			Transcription: change.Transcription,
			ThumbnailRef:  change.ThumbnailURI,
		}
		if kind == models.NoteKindText {
			note.Content = change.Content
		} else {
			note.MediaRef = change.MediaURI
		}
		delta.Changes = append(delta.Changes, note)
	}

	for _, deletion := range resp.Deletions {
		delta.Deletions = append(delta.Deletions, Tombstone{ID: deletion.ID, DeletedAt: deletion.DeletedAt})
	}

	return delta, nil
}
