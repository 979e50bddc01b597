// Package main provides the FFI bridge for mobile platforms.
// Build as shared library: libquillnote.so (Android) / quillnote.framework (iOS).
// All exported functions use C calling convention and return JSON as C
// strings the caller frees with FreeString.
package main

/*
#cgo CFLAGS: -Wall -Wextra
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/quillnote/backend/internal/cloud"
	"github.com/quillnote/backend/internal/db"
	"github.com/quillnote/backend/internal/media"
	"github.com/quillnote/backend/internal/models"
	"github.com/quillnote/backend/internal/session"
	syncpkg "github.com/quillnote/backend/internal/sync"
	"github.com/quillnote/backend/internal/sync/conflict"
	"github.com/quillnote/backend/internal/sync/ledger"
)

var (
	once     sync.Once
	database *db.DB
	repo     *db.Repository
	led      *ledger.Ledger
	engine   *syncpkg.Engine
	lastErr  string
	lastMu   sync.RWMutex
)

//export Init
// Init initializes the Quillnote sync core. dataDir holds the local
// database and media files; apiURL is the cloud service base URL.
func Init(dataDir, apiURL *C.char) {
	dir := C.GoString(dataDir)
	url := C.GoString(apiURL)

	once.Do(func() {
		var err error
		database, err = db.Open(dir)
		if err != nil {
			setLastError(fmt.Sprintf("Failed to open database: %v", err))
			return
		}

		if err := db.Migrate(database.DB); err != nil {
			setLastError(fmt.Sprintf("Failed to apply migrations: %v", err))
			return
		}

		repo = db.NewRepository(database.DB)

		led, err = ledger.New(database.DB)
		if err != nil {
			setLastError(fmt.Sprintf("Failed to initialize ledger: %v", err))
			return
		}

		files, err := media.NewStore(dir + "/media")
		if err != nil {
			setLastError(fmt.Sprintf("Failed to initialize media store: %v", err))
			return
		}

		client := cloud.NewHTTPClient(&cloud.Config{BaseURL: url})
		engine = syncpkg.NewEngine(syncpkg.Config{
			Ledger:       led,
			Resolver:     conflict.NewResolver(conflict.ResolutionStrategyLastWriteWins),
			Repo:         repo,
			Content:      cloud.NewContentAdapter(client),
			Journals:     cloud.NewJournalAdapter(client),
			Associations: cloud.NewAssociationAdapter(client),
			Media:        cloud.NewMediaAdapter(client),
			Files:        files,
			Session:      session.NewTokenSession(repo, 30*time.Second),
		})
	})
}

//export Cleanup
// Cleanup releases resources held by the core.
func Cleanup() {
	if repo != nil {
		repo.Close()
	}
	if database != nil {
		database.Close()
	}
}

//export FullSync
// FullSync runs one full sync pass and returns the result as JSON.
func FullSync() *C.char {
	if engine == nil {
		return errJSON("core not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return marshalJSON(engine.FullSync(ctx))
}

//export SyncStatus
// SyncStatus returns the current sync state as JSON without touching
// the network.
func SyncStatus() *C.char {
	if engine == nil {
		return errJSON("core not initialized")
	}

	status, err := engine.SyncStatus()
	if err != nil {
		setLastError(err.Error())
		return errJSON(err.Error())
	}
	return marshalJSON(status)
}

//export EnqueueChange
// EnqueueChange records a local mutation for upload. entityType is one
// of note/journal/association/media; op is create/update/delete.
func EnqueueChange(entityID, entityType, op *C.char) *C.char {
	if led == nil {
		return errJSON("core not initialized")
	}

	err := led.Enqueue(C.GoString(entityID), models.EntityType(C.GoString(entityType)), models.PendingOp(C.GoString(op)))
	if err != nil {
		setLastError(err.Error())
		return errJSON(err.Error())
	}
	return C.CString(`{"status":"queued"}`)
}

//export PendingCount
// PendingCount returns the number of queued uploads, or -1 on error.
func PendingCount() C.int {
	if led == nil {
		return -1
	}

	count, err := led.PendingCount()
	if err != nil {
		setLastError(err.Error())
		return -1
	}
	return C.int(count)
}

//export GetLastError
// GetLastError returns the last error message.
// Returns a C string that must be freed by the caller.
func GetLastError() *C.char {
	lastMu.RLock()
	defer lastMu.RUnlock()

	return C.CString(lastErr)
}

//export FreeString
// FreeString frees a C string returned by this library.
func FreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func setLastError(message string) {
	lastMu.Lock()
	defer lastMu.Unlock()
	lastErr = message
}

func marshalJSON(v interface{}) *C.char {
	bytes, err := json.Marshal(v)
	if err != nil {
		setLastError(err.Error())
		return errJSON(err.Error())
	}
	return C.CString(string(bytes))
}

func errJSON(message string) *C.char {
	encoded, _ := json.Marshal(map[string]string{"error": message})
	return C.CString(string(encoded))
}

func main() {
	// Required for c-shared build mode; never executed when used as a
	// shared library.
}
