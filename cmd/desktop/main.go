// Package main provides the embedded sync server for desktop platforms.
// Desktop clients communicate via REST/WebSocket on localhost:8090.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/quillnote/backend/cmd/desktop/handlers"
	"github.com/quillnote/backend/internal/cloud"
	"github.com/quillnote/backend/internal/db"
	"github.com/quillnote/backend/internal/logging"
	"github.com/quillnote/backend/internal/media"
	"github.com/quillnote/backend/internal/session"
	syncpkg "github.com/quillnote/backend/internal/sync"
	"github.com/quillnote/backend/internal/sync/conflict"
	"github.com/quillnote/backend/internal/sync/ledger"
	"github.com/quillnote/backend/internal/sync/scheduler"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	logging.Init(os.Stdout, logging.LevelInfo)

	port := envOr("QUILLNOTE_PORT", "8090")
	dataDir := envOr("QUILLNOTE_DATA_DIR", "./data")
	apiURL := envOr("QUILLNOTE_API_URL", "https://sync.quillnote.app/v1")

	database, err := db.Open(dataDir)
	if err != nil {
		logging.Error("Failed to open database", err, nil)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database.DB); err != nil {
		logging.Error("Failed to run migrations", err, nil)
		os.Exit(1)
	}

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	led, err := ledger.New(database.DB)
	if err != nil {
		logging.Error("Failed to initialize pending-change ledger", err, nil)
		os.Exit(1)
	}

	files, err := media.NewStore(dataDir + "/media")
	if err != nil {
		logging.Error("Failed to initialize media store", err, nil)
		os.Exit(1)
	}

	client := cloud.NewHTTPClient(&cloud.Config{BaseURL: apiURL})
	engine := syncpkg.NewEngine(syncpkg.Config{
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

	sched := scheduler.New(engine, nil)
	engine.SetTrigger(sched.Request)

	hub := NewWSHub()
	engine.SetNotifier(hub)

	// Mirror the pending-upload count to connected clients.
	counts, cancelCounts := led.ObservePendingCount()
	defer cancelCounts()
	go func() {
		for count := range counts {
			hub.BroadcastPendingCount(count)
		}
	}()

	syncHandler := handlers.NewSyncHandler(engine, led, repo)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/api/health", syncHandler.Health)
	router.Get("/api/sync/status", syncHandler.GetStatus)
	router.Post("/api/sync", syncHandler.TriggerSync)
	router.Get("/api/sync/pending", syncHandler.GetPending)
	router.Get("/api/sync/conflicts", syncHandler.GetConflicts)
	router.Get("/ws", HandleWebSocket(hub))

	server := &http.Server{
		Addr:    "localhost:" + port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logging.Info("Quillnote desktop server starting", map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		sched.Start(groupCtx)
		<-groupCtx.Done()
		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logging.Error("Server exited with error", err, nil)
		os.Exit(1)
	}
	logging.Info("Server stopped", nil)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
