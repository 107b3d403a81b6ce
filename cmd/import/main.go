package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bible-guessr-api/core"
)

// Standalone bulk importer for the verse corpus. The API process runs
// the same import at startup when BIBLE_JSON is set; this binary exists
// for one-off loads against an already-running deployment.
func main() {
	path := flag.String("corpus", "", "path to verse corpus JSON (defaults to BIBLE_JSON)")
	flag.Parse()

	cfg := core.Load()
	if *path != "" {
		cfg.BibleJSONPath = *path
	}
	if cfg.BibleJSONPath == "" {
		log.Fatal("no corpus given: set -corpus or BIBLE_JSON")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	repo := core.NewPgVerseRepository(db)
	if err := core.PopulateVerses(ctx, repo, cfg.BibleJSONPath); err != nil {
		log.Fatalf("verse import failed: %v", err)
	}
}
