package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/project-jmr/go-warehouse/internal/common/indexer"
	"github.com/project-jmr/go-warehouse/internal/config"
	"github.com/project-jmr/go-warehouse/internal/domain"
	"github.com/project-jmr/go-warehouse/internal/module/loader"
	"github.com/project-jmr/go-warehouse/internal/scheduler"
	"github.com/project-jmr/go-warehouse/internal/source"
	"github.com/project-jmr/go-warehouse/internal/warehouse"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Offer Warehouse Loader")

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := warehouse.Open(cfg.Postgres.ConnectionString)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer db.Close()
	log.Println("PostgreSQL connected")

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	var src source.BatchSource
	switch cfg.Source.Kind {
	case "dir":
		src = source.NewDirSource(cfg.Source.Dir)
		log.Printf("Batch source: directory %s", cfg.Source.Dir)
	default:
		minioSrc, err := source.NewMinIOSource(ctx, source.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			log.Fatalf("MinIO connection failed: %v", err)
		}
		src = minioSrc
		log.Printf("Batch source: bucket %s", cfg.MinIO.Bucket)
	}

	var idx indexer.Indexer
	if cfg.Elasticsearch.Enabled {
		esIndexer, err := indexer.NewElasticsearchIndexer(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index)
		if err != nil {
			log.Fatalf("Elasticsearch connection failed: %v", err)
		}
		if err := esIndexer.EnsureIndex(ctx); err != nil {
			log.Printf("Warning: failed to ensure index: %v", err)
		}
		idx = esIndexer
		log.Printf("Elasticsearch mirror enabled, index: %s", cfg.Elasticsearch.Index)
	}

	orch := loader.NewOrchestrator(src, warehouse.NewLoader(db), idx, loader.Config{
		Concurrency:  cfg.Loader.Concurrency,
		BatchTimeout: cfg.Loader.BatchTimeout,
		MaxAttempts:  cfg.Loader.MaxAttempts,
		RetryBackoff: cfg.Loader.RetryBackoff,
	})

	if cfg.Loader.Schedule == "" {
		summary, err := orch.Run(ctx)
		if err != nil {
			log.Fatalf("Run failed: %v", err)
		}
		printSummary(summary)
		if summary.BatchesFailed > 0 {
			os.Exit(1)
		}
		return
	}

	// Scheduled mode: re-run the ingest on the configured cron spec
	sched := scheduler.New(cfg.Loader.Schedule, func() {
		summary, err := orch.Run(ctx)
		if err != nil {
			log.Printf("Scheduled run failed: %v", err)
			return
		}
		printSummary(summary)
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, stopping...")
	sched.Stop()
	cancel()
}

func printSummary(s *domain.Summary) {
	log.Printf("Summary: batches=%d batches_failed=%d inserted=%d skipped_duplicate=%d failed=%d filtered=%d skill_links=%d",
		s.Batches, s.BatchesFailed, s.Inserted, s.Skipped, s.Failed, s.Filtered, s.SkillLinks)

	tables := make([]string, 0, len(s.DimensionsCreated))
	for table := range s.DimensionsCreated {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		log.Printf("  %s: %d row(s) created", table, s.DimensionsCreated[table])
	}
}
