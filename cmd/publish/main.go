package main

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/project-jmr/go-warehouse/internal/config"
	"github.com/project-jmr/go-warehouse/internal/module/loader"
	"github.com/project-jmr/go-warehouse/internal/queue"
	"github.com/project-jmr/go-warehouse/internal/source"
)

// Reads every payload from the configured batch source and pushes its
// records onto the Redis queue, so the worker path can replay batches
// that would normally arrive from the scrapers.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Offer Queue Publisher")

	cfg := config.Load()
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	log.Println("Redis connected")

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

	pub := queue.NewPublisher(rdb, cfg.Redis.OfferQueue)

	names, err := src.List(ctx)
	if err != nil {
		log.Fatalf("Listing batches failed: %v", err)
	}

	published := 0
	failedBatches := 0
	for _, name := range names {
		data, err := src.Read(ctx, name)
		if err != nil {
			failedBatches++
			log.Printf("Skipping batch %s: %v", name, err)
			continue
		}

		offers, err := loader.DecodeOffers(data)
		if err != nil {
			failedBatches++
			log.Printf("Skipping malformed batch %s: %v", name, err)
			continue
		}

		if err := pub.PublishBatch(ctx, offers); err != nil {
			failedBatches++
			log.Printf("Publish failed for batch %s: %v", name, err)
			continue
		}
		published += len(offers)
		log.Printf("Published %d offers from %s", len(offers), name)
	}

	if length, err := pub.QueueLength(ctx); err != nil {
		log.Printf("Queue length check failed: %v", err)
	} else {
		log.Printf("Done: %d offers published from %d batches, queue length now %d",
			published, len(names)-failedBatches, length)
	}

	if failedBatches > 0 {
		os.Exit(1)
	}
}
