package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/infra/db/postgres"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Applies the schema and optionally seeds a demo episode. The DDL in
// deploy/postgres/init.sql is written with IF NOT EXISTS throughout, so
// re-running this against a live database is safe.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	schemaPath := flag.String("schema", "deploy/postgres/init.sql", "path to schema file")
	seed := flag.Bool("seed", false, "seed a demo episode after applying the schema")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	ddl, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(ddl)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("schema applied")

	if *seed {
		seedDemoEpisode(ctx, pool)
	}
}

// seedDemoEpisode enqueues the processing chain for a fixed episode ref so a
// fresh install has something to chew on.
func seedDemoEpisode(ctx context.Context, pool *pgxpool.Pool) {
	tm := postgres.NewTxManager(pool)
	queue := postgres.NewJobQueue(pool, tm)

	const episodeRef = "demo-episode-001"
	transcribe, err := model.NewProcessingJob(episodeRef, model.JobKindTranscribe, 0)
	if err != nil {
		log.Fatalf("build transcribe job: %v", err)
	}
	generate, err := model.NewProcessingJob(episodeRef, model.JobKindGenerate, 0)
	if err != nil {
		log.Fatalf("build generate job: %v", err)
	}
	if err := queue.Enqueue(ctx, nil, transcribe); err != nil {
		log.Fatalf("enqueue transcribe: %v", err)
	}
	if err := queue.Enqueue(ctx, nil, generate); err != nil {
		log.Fatalf("enqueue generate: %v", err)
	}
	log.Printf("seeded demo episode %s (jobs %s, %s)", episodeRef, transcribe.ID, generate.ID)
}
