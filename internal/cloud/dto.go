// Package cloud translates domain entities to and from the wire DTOs of
// the Quillnote cloud service and drives its HTTP JSON API.
package cloud

// Wire content type tags. These discriminate note variants on the wire
// and never leak into domain types.
const (
	WireTypeText  = "TEXT"
	WireTypeImage = "IMAGE"
	WireTypeAudio = "AUDIO"
	WireTypeVideo = "VIDEO"
)

// ContentUpload is the request body for uploading a new note.
// All timestamps are epoch milliseconds.
type ContentUpload struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Content       string `json:"content,omitempty"`
	MediaURI      string `json:"mediaUri,omitempty"`
	Transcription string `json:"transcription,omitempty"`
	ThumbnailURI  string `json:"thumbnailUri,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	LastUpdated   int64  `json:"lastUpdated"`
}

// ContentUpdate is the request body for updating an existing note.
type ContentUpdate struct {
	Content       string `json:"content,omitempty"`
	MediaURI      string `json:"mediaUri,omitempty"`
	Transcription string `json:"transcription,omitempty"`
	ThumbnailURI  string `json:"thumbnailUri,omitempty"`
	LastUpdated   int64  `json:"lastUpdated"`
}

// ContentChange is one server-side note in a changes feed.
type ContentChange struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Content       string `json:"content,omitempty"`
	MediaURI      string `json:"mediaUri,omitempty"`
	Transcription string `json:"transcription,omitempty"`
	ThumbnailURI  string `json:"thumbnailUri,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	LastUpdated   int64  `json:"lastUpdated"`
	ServerVersion int64  `json:"serverVersion"`
	IsDeleted     bool   `json:"isDeleted"`
}

// Deletion is one server-side tombstone in a changes feed.
type Deletion struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deletedAt"`
}

// ContentChangesResponse is the response body of getContentChanges.
type ContentChangesResponse struct {
	Changes       []ContentChange `json:"changes"`
	Deletions     []Deletion      `json:"deletions"`
	LastTimestamp int64           `json:"lastTimestamp"`
}

// JournalUpload is the request body for uploading a new journal.
type JournalUpload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	LastUpdated int64  `json:"lastUpdated"`
}

// JournalUpdate is the request body for updating an existing journal.
type JournalUpdate struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	LastUpdated int64  `json:"lastUpdated"`
}

// JournalChange is one server-side journal in a changes feed.
type JournalChange struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	LastUpdated   int64  `json:"lastUpdated"`
	ServerVersion int64  `json:"serverVersion"`
	IsDeleted     bool   `json:"isDeleted"`
}

// JournalChangesResponse is the response body of getJournalChanges.
type JournalChangesResponse struct {
	Changes       []JournalChange `json:"changes"`
	Deletions     []Deletion      `json:"deletions"`
	LastTimestamp int64           `json:"lastTimestamp"`
}

// AssociationUpload is the request body for uploading an association.
// Associations are keyed by (journalId, contentId) on both sides.
type AssociationUpload struct {
	JournalID   string `json:"journalId"`
	ContentID   string `json:"contentId"`
	CreatedAt   int64  `json:"createdAt"`
	LastUpdated int64  `json:"lastUpdated"`
}

// AssociationChange is one server-side association in a changes feed.
type AssociationChange struct {
	JournalID     string `json:"journalId"`
	ContentID     string `json:"contentId"`
	CreatedAt     int64  `json:"createdAt"`
	LastUpdated   int64  `json:"lastUpdated"`
	ServerVersion int64  `json:"serverVersion"`
	IsDeleted     bool   `json:"isDeleted"`
}

// AssociationDeletion is one association tombstone in a changes feed.
type AssociationDeletion struct {
	JournalID string `json:"journalId"`
	ContentID string `json:"contentId"`
	DeletedAt int64  `json:"deletedAt"`
}

// AssociationChangesResponse is the response body of getAssociationChanges.
type AssociationChangesResponse struct {
	Changes       []AssociationChange   `json:"changes"`
	Deletions     []AssociationDeletion `json:"deletions"`
	LastTimestamp int64                 `json:"lastTimestamp"`
}

// UploadAck is the server's acknowledgment of an upload, update, or
// media transfer. Timestamp is the server-confirmed epoch-millisecond
// time of the write.
type UploadAck struct {
	ID            string `json:"id"`
	ServerVersion int64  `json:"serverVersion"`
	Timestamp     int64  `json:"timestamp"`
}

// errorBody is the JSON error envelope returned with non-2xx statuses.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
