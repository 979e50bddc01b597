// Package main provides the one-shot sync CLI. It opens the local
// database, runs a single full sync pass against the cloud service and
// prints the result as JSON. The exit code reflects the pass outcome,
// which makes it usable from cron and scripts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/quillnote/backend/internal/cloud"
	"github.com/quillnote/backend/internal/db"
	"github.com/quillnote/backend/internal/logging"
	"github.com/quillnote/backend/internal/media"
	"github.com/quillnote/backend/internal/session"
	syncpkg "github.com/quillnote/backend/internal/sync"
	"github.com/quillnote/backend/internal/sync/conflict"
	"github.com/quillnote/backend/internal/sync/ledger"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	var (
		dataDir = flag.String("data", envOr("QUILLNOTE_DATA_DIR", "./data"), "data directory")
		apiURL  = flag.String("api", envOr("QUILLNOTE_API_URL", "https://sync.quillnote.app/v1"), "cloud API base URL")
		timeout = flag.Duration("timeout", 5*time.Minute, "sync deadline")
		version = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("quillnote-sync v%s\n", Version)
		return 0
	}

	logging.Init(os.Stderr, logging.LevelInfo)

	database, err := db.Open(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return 1
	}
	defer database.Close()

	if err := db.Migrate(database.DB); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	led, err := ledger.New(database.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize ledger: %v\n", err)
		return 1
	}

	files, err := media.NewStore(*dataDir + "/media")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize media store: %v\n", err)
		return 1
	}

	client := cloud.NewHTTPClient(&cloud.Config{BaseURL: *apiURL})
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result := engine.FullSync(ctx)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		return 1
	}

	if !result.Success {
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
