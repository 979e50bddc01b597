// Package handlers provides unit tests for the sync REST endpoints.
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/quillnote/backend/internal/db"
	"github.com/quillnote/backend/internal/models"
	syncpkg "github.com/quillnote/backend/internal/sync"
	"github.com/quillnote/backend/internal/sync/ledger"
)

// stubSyncer is a canned sync engine for handler tests.
type stubSyncer struct {
	status    *syncpkg.Status
	statusErr error
	requests  []bool
}

func (s *stubSyncer) FullSync(ctx context.Context) *syncpkg.Result {
	return &syncpkg.Result{Success: true}
}

func (s *stubSyncer) UploadPendingChanges(ctx context.Context) *syncpkg.Result {
	return &syncpkg.Result{Success: true}
}

func (s *stubSyncer) DownloadRemoteChanges(ctx context.Context) *syncpkg.Result {
	return &syncpkg.Result{Success: true}
}

func (s *stubSyncer) SyncStatus() (*syncpkg.Status, error) {
	return s.status, s.statusErr
}

func (s *stubSyncer) Sync(startNow bool) {
	s.requests = append(s.requests, startNow)
}

func newTestHandler(t *testing.T, syncer *stubSyncer) (*SyncHandler, *ledger.Ledger, *db.Repository) {
	t.Helper()
	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	led, err := ledger.New(database)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	repo := db.NewRepository(database)
	return NewSyncHandler(syncer, led, repo), led, repo
}

// TestGetStatus verifies the status endpoint returns the engine's view.
func TestGetStatus(t *testing.T) {
	syncer := &stubSyncer{status: &syncpkg.Status{Enabled: true, PendingUploads: 3}}
	h, _, _ := newTestHandler(t, syncer)

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status syncpkg.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !status.Enabled || status.PendingUploads != 3 {
		t.Errorf("status = %+v", status)
	}
}

// TestTriggerSync verifies the trigger endpoint forwards start_now and
// returns 202.
func TestTriggerSync(t *testing.T) {
	syncer := &stubSyncer{}
	h, _, _ := newTestHandler(t, syncer)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"start_now":true}`))
	h.TriggerSync(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(syncer.requests) != 1 || !syncer.requests[0] {
		t.Errorf("requests = %v, want one urgent request", syncer.requests)
	}
}

// TestTriggerSyncEmptyBody verifies a bodyless POST defaults to a
// debounced request.
func TestTriggerSyncEmptyBody(t *testing.T) {
	syncer := &stubSyncer{}
	h, _, _ := newTestHandler(t, syncer)

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(syncer.requests) != 1 || syncer.requests[0] {
		t.Errorf("requests = %v, want one non-urgent request", syncer.requests)
	}
}

// TestGetPending verifies queued changes show up on the endpoint.
func TestGetPending(t *testing.T) {
	syncer := &stubSyncer{}
	h, led, _ := newTestHandler(t, syncer)

	if err := led.Enqueue("note-1", models.EntityTypeNote, models.PendingOpCreate); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	rec := httptest.NewRecorder()
	h.GetPending(rec, httptest.NewRequest(http.MethodGet, "/api/sync/pending", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Count   int               `json:"count"`
		Changes []json.RawMessage `json:"changes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

// TestGetConflictsBadLimit verifies limit validation.
func TestGetConflictsBadLimit(t *testing.T) {
	syncer := &stubSyncer{}
	h, _, _ := newTestHandler(t, syncer)

	rec := httptest.NewRecorder()
	h.GetConflicts(rec, httptest.NewRequest(http.MethodGet, "/api/sync/conflicts?limit=zero", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestGetConflicts verifies logged conflicts are listed.
func TestGetConflicts(t *testing.T) {
	syncer := &stubSyncer{}
	h, _, repo := newTestHandler(t, syncer)

	entry := &models.ConflictLog{
		EntityID: "note-1", EntityType: models.EntityTypeNote,
		LocalTimestamp: 1000, RemoteTimestamp: 2000,
		Resolution: "remote_wins", DetectedAt: 3000,
	}
	if err := repo.CreateConflictLog(entry); err != nil {
		t.Fatalf("CreateConflictLog failed: %v", err)
	}

	rec := httptest.NewRecorder()
	h.GetConflicts(rec, httptest.NewRequest(http.MethodGet, "/api/sync/conflicts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}
