package cloud

import (
	"context"

	apperrors "github.com/quillnote/backend/internal/errors"
)

// MediaAdapter moves binary attachments referenced by note mediaUri
// values. The cloud service stores media by opaque id; unreferenced
// media is garbage-collected server-side, so there is no delete RPC.
type MediaAdapter struct {
	client Client
}

// NewMediaAdapter creates a MediaAdapter over an API client.
func NewMediaAdapter(client Client) *MediaAdapter {
	return &MediaAdapter{client: client}
}

// Upload sends one attachment's bytes.
func (a *MediaAdapter) Upload(ctx context.Context, token, mediaID string, data []byte) (UploadAck, error) {
	if mediaID == "" {
		return UploadAck{}, apperrors.New(apperrors.ErrValidation, "media id is empty")
	}
	if len(data) == 0 {
		return UploadAck{}, apperrors.New(apperrors.ErrMediaInvalid, "media payload is empty")
	}
	return a.client.UploadMedia(ctx, token, mediaID, data)
}

// Download fetches one attachment's bytes.
func (a *MediaAdapter) Download(ctx context.Context, token, mediaID string) ([]byte, error) {
	if mediaID == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "media id is empty")
	}
	return a.client.DownloadMedia(ctx, token, mediaID)
}
