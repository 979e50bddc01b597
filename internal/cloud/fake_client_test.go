// Package cloud provides a recording fake API client shared by adapter
// and engine tests.
package cloud

import (
	"context"
)

// fakeCall records one invocation on the fake client.
type fakeCall struct {
	Method string
	Token  string
	ID     string
	Body   interface{}
	Since  int64
}

// fakeClient is a recording implementation of Client. Responses and
// errors can be primed per method name.
type fakeClient struct {
	calls  []fakeCall
	errs   map[string]error
	acks   map[string]UploadAck
	content ContentChangesResponse
	journal JournalChangesResponse
	assoc   AssociationChangesResponse
	media   []byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		errs: make(map[string]error),
		acks: make(map[string]UploadAck),
	}
}

func (f *fakeClient) record(call fakeCall) { f.calls = append(f.calls, call) }

func (f *fakeClient) callsTo(method string) []fakeCall {
	var out []fakeCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeClient) UploadContent(ctx context.Context, token string, req ContentUpload) (UploadAck, error) {
	f.record(fakeCall{Method: "UploadContent", Token: token, ID: req.ID, Body: req})
	return f.acks["UploadContent"], f.errs["UploadContent"]
}

func (f *fakeClient) UpdateContent(ctx context.Context, token, id string, req ContentUpdate) (UploadAck, error) {
	f.record(fakeCall{Method: "UpdateContent", Token: token, ID: id, Body: req})
	return f.acks["UpdateContent"], f.errs["UpdateContent"]
}

func (f *fakeClient) DeleteContent(ctx context.Context, token, id string) error {
	f.record(fakeCall{Method: "DeleteContent", Token: token, ID: id})
	return f.errs["DeleteContent"]
}

func (f *fakeClient) GetContentChanges(ctx context.Context, token string, since int64) (ContentChangesResponse, error) {
	f.record(fakeCall{Method: "GetContentChanges", Token: token, Since: since})
	return f.content, f.errs["GetContentChanges"]
}

func (f *fakeClient) UploadJournal(ctx context.Context, token string, req JournalUpload) (UploadAck, error) {
	f.record(fakeCall{Method: "UploadJournal", Token: token, ID: req.ID, Body: req})
	return f.acks["UploadJournal"], f.errs["UploadJournal"]
}

func (f *fakeClient) UpdateJournal(ctx context.Context, token, id string, req JournalUpdate) (UploadAck, error) {
	f.record(fakeCall{Method: "UpdateJournal", Token: token, ID: id, Body: req})
	return f.acks["UpdateJournal"], f.errs["UpdateJournal"]
}

func (f *fakeClient) DeleteJournal(ctx context.Context, token, id string) error {
	f.record(fakeCall{Method: "DeleteJournal", Token: token, ID: id})
	return f.errs["DeleteJournal"]
}

func (f *fakeClient) GetJournalChanges(ctx context.Context, token string, since int64) (JournalChangesResponse, error) {
	f.record(fakeCall{Method: "GetJournalChanges", Token: token, Since: since})
	return f.journal, f.errs["GetJournalChanges"]
}

func (f *fakeClient) UploadAssociation(ctx context.Context, token string, req AssociationUpload) (UploadAck, error) {
	f.record(fakeCall{Method: "UploadAssociation", Token: token, ID: req.JournalID + ":" + req.ContentID, Body: req})
	return f.acks["UploadAssociation"], f.errs["UploadAssociation"]
}

func (f *fakeClient) DeleteAssociation(ctx context.Context, token, journalID, contentID string) error {
	f.record(fakeCall{Method: "DeleteAssociation", Token: token, ID: journalID + ":" + contentID})
	return f.errs["DeleteAssociation"]
}

func (f *fakeClient) GetAssociationChanges(ctx context.Context, token string, since int64) (AssociationChangesResponse, error) {
	f.record(fakeCall{Method: "GetAssociationChanges", Token: token, Since: since})
	return f.assoc, f.errs["GetAssociationChanges"]
}

func (f *fakeClient) UploadMedia(ctx context.Context, token, mediaID string, data []byte) (UploadAck, error) {
	f.record(fakeCall{Method: "UploadMedia", Token: token, ID: mediaID, Body: data})
	return f.acks["UploadMedia"], f.errs["UploadMedia"]
}

func (f *fakeClient) DownloadMedia(ctx context.Context, token, mediaID string) ([]byte, error) {
	f.record(fakeCall{Method: "DownloadMedia", Token: token, ID: mediaID})
	return f.media, f.errs["DownloadMedia"]
}
