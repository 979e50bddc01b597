// Package handlers provides REST API handlers for sync operations and
// local status inspection.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/quillnote/backend/internal/db"
	syncpkg "github.com/quillnote/backend/internal/sync"
	"github.com/quillnote/backend/internal/sync/ledger"
)

// SyncHandler handles sync status and trigger endpoints.
type SyncHandler struct {
	syncer syncpkg.Syncer
	ledger *ledger.Ledger
	repo   *db.Repository
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncer syncpkg.Syncer, ledger *ledger.Ledger, repo *db.Repository) *SyncHandler {
	return &SyncHandler{syncer: syncer, ledger: ledger, repo: repo}
}

// Health handles GET /api/health.
func (h *SyncHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "quillnote-desktop",
	})
}

// GetStatus handles GET /api/sync/status. The answer is assembled from
// local state only; no network calls happen here.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.syncer.SyncStatus()
	if err != nil {
		http.Error(w, "Failed to read sync status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// TriggerSync handles POST /api/sync. The request is accepted and runs
// in the background; clients follow progress over the WebSocket.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var request struct {
		StartNow bool `json:"start_now"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.syncer.Sync(request.StartNow)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted":  true,
		"start_now": request.StartNow,
	})
}

// GetPending handles GET /api/sync/pending.
func (h *SyncHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	changes, err := h.ledger.PendingChanges()
	if err != nil {
		http.Error(w, "Failed to read pending changes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(changes),
		"changes": changes,
	})
}

// GetConflicts handles GET /api/sync/conflicts?limit=N.
func (h *SyncHandler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	logs, err := h.repo.ListConflictLogs(limit)
	if err != nil {
		http.Error(w, "Failed to read conflict log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(logs),
		"conflicts": logs,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
