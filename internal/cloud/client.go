package cloud

import (
	"context"
	"fmt"
)

// APIError is a typed failure from the cloud service. Code and Message
// come from the server's error envelope; HTTPStatus is the response
// status, or 0 when the request never reached the server.
type APIError struct {
	Code       string
	Message    string
	HTTPStatus int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("cloud api: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("cloud api: %s (HTTP %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// IsAPIError extracts an APIError from an error chain.
func IsAPIError(err error) (*APIError, bool) {
	apiErr, ok := err.(*APIError)
	return apiErr, ok
}

// Client is the stateless RPC boundary to the remote service. All calls
// are one network round-trip and return either a typed result or a
// typed error; no retries happen at this layer.
type Client interface {
	UploadContent(ctx context.Context, token string, req ContentUpload) (UploadAck, error)
	UpdateContent(ctx context.Context, token, id string, req ContentUpdate) (UploadAck, error)
	DeleteContent(ctx context.Context, token, id string) error
	GetContentChanges(ctx context.Context, token string, since int64) (ContentChangesResponse, error)

	UploadJournal(ctx context.Context, token string, req JournalUpload) (UploadAck, error)
	UpdateJournal(ctx context.Context, token, id string, req JournalUpdate) (UploadAck, error)
	DeleteJournal(ctx context.Context, token, id string) error
	GetJournalChanges(ctx context.Context, token string, since int64) (JournalChangesResponse, error)

	UploadAssociation(ctx context.Context, token string, req AssociationUpload) (UploadAck, error)
	DeleteAssociation(ctx context.Context, token, journalID, contentID string) error
	GetAssociationChanges(ctx context.Context, token string, since int64) (AssociationChangesResponse, error)

	UploadMedia(ctx context.Context, token, mediaID string, data []byte) (UploadAck, error)
	DownloadMedia(ctx context.Context, token, mediaID string) ([]byte, error)
}
