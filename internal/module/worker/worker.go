package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/project-jmr/go-warehouse/internal/common/cleaner"
	"github.com/project-jmr/go-warehouse/internal/common/indexer"
	"github.com/project-jmr/go-warehouse/internal/common/normalizer"
	"github.com/project-jmr/go-warehouse/internal/domain"
	"github.com/project-jmr/go-warehouse/internal/queue"
	"github.com/project-jmr/go-warehouse/internal/warehouse"
)

// OfferLoader is the warehouse contract the worker drives
type OfferLoader interface {
	// PopulateCalendar must complete before LoadOffer runs for the batch
	PopulateCalendar(ctx context.Context, offers []*domain.Offer) error
	LoadOffer(ctx context.Context, offer *domain.Offer) (*warehouse.LoadResult, error)
}

// SeenCache is the advisory fast-path skip over already-loaded job URLs;
// the warehouse unique constraint stays authoritative
type SeenCache interface {
	IsSeen(ctx context.Context, jobURL string) (bool, error)
	MarkSeen(ctx context.Context, jobURL string) error
}

// Worker drains raw offers from the queue and loads them into the
// warehouse. It is the streaming counterpart of the batch orchestrator:
// scrapers publish as they go, the worker loads continuously.
type Worker struct {
	consumer   *queue.Consumer
	normalizer *normalizer.Normalizer
	cleaner    *cleaner.Cleaner
	dedup      SeenCache // optional fast-path skip, may be nil
	loader     OfferLoader
	indexer    indexer.Indexer // optional search mirror, may be nil

	batchSize   int
	concurrency int
}

// Config holds worker configuration
type Config struct {
	Concurrency int
	BatchSize   int
}

// NewWorker creates a new worker
func NewWorker(
	consumer *queue.Consumer,
	ddp SeenCache,
	ldr OfferLoader,
	idx indexer.Indexer,
	cfg Config,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	return &Worker{
		consumer:    consumer,
		normalizer:  normalizer.NewNormalizer(),
		cleaner:     cleaner.NewCleaner(),
		dedup:       ddp,
		loader:      ldr,
		indexer:     idx,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
	}
}

// Run starts the worker pool
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("Starting worker pool with %d workers", w.concurrency)

	var wg sync.WaitGroup
	errChan := make(chan error, w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := w.runSingle(ctx, workerID); err != nil {
				errChan <- fmt.Errorf("worker %d: %w", workerID, err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	case <-done:
		return nil
	}
}

func (w *Worker) runSingle(ctx context.Context, workerID int) error {
	log.Printf("Worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d stopping", workerID)
			return nil
		default:
		}

		// ConsumeBatch uses BRPOP for the first item (blocking), so no CPU spinning
		rawOffers, err := w.consumer.ConsumeBatch(ctx, w.batchSize)
		if err != nil {
			log.Printf("Worker %d consume error: %v", workerID, err)
			continue
		}

		if len(rawOffers) == 0 {
			continue // Timeout from BRPOP, try again
		}

		log.Printf("Worker %d processing %d offers", workerID, len(rawOffers))
		w.processBatch(ctx, rawOffers)
	}
}

// processBatch normalizes a drained batch, pre-materializes its calendar
// range and loads each offer; every dropped offer is logged with its
// reason, per-offer failures are logged and skipped
func (w *Worker) processBatch(ctx context.Context, rawOffers []domain.RawOffer) {
	filtered := 0
	offers := make([]*domain.Offer, 0, len(rawOffers))
	for _, raw := range rawOffers {
		offer, err := w.normalizer.NormalizeOffer(raw)
		if err != nil {
			log.Printf("Dropping offer: %v", err)
			continue
		}
		if offer.IsDataProfile != nil && !*offer.IsDataProfile {
			filtered++
			log.Printf("Filtering non-data offer %s", offer.JobURL)
			continue
		}
		offer.Description = w.cleaner.CleanToText(offer.Description)
		offers = append(offers, offer)
	}
	if filtered > 0 {
		log.Printf("Filtered %d of %d offers as non-data profiles", filtered, len(rawOffers))
	}
	if len(offers) == 0 {
		return
	}

	if err := w.loader.PopulateCalendar(ctx, offers); err != nil {
		log.Printf("Calendar populate error: %v", err)
		return
	}

	skippedSeen := 0
	var inserted []*domain.Offer
	for _, offer := range offers {
		if w.dedup != nil {
			seen, err := w.dedup.IsSeen(ctx, offer.JobURL)
			if err != nil {
				log.Printf("Dedup check error for %s: %v", offer.JobURL, err)
			} else if seen {
				skippedSeen++
				log.Printf("Skipping %s: already loaded", offer.JobURL)
				continue
			}
		}

		res, err := w.loader.LoadOffer(ctx, offer)
		if err != nil {
			log.Printf("Load error for %s: %v", offer.JobURL, err)
			continue
		}

		if res.Outcome != domain.OutcomeFailed && w.dedup != nil {
			if err := w.dedup.MarkSeen(ctx, offer.JobURL); err != nil {
				log.Printf("Dedup mark error for %s: %v", offer.JobURL, err)
			}
		}
		if res.Outcome == domain.OutcomeInserted {
			inserted = append(inserted, offer)
		}
	}
	if skippedSeen > 0 {
		log.Printf("Skipped %d of %d offers already in the seen cache", skippedSeen, len(offers))
	}

	if w.indexer != nil && len(inserted) > 0 {
		if err := w.indexer.BulkIndex(ctx, inserted); err != nil {
			log.Printf("Search mirror error: %v", err)
		} else {
			log.Printf("Mirrored %d offers to search index", len(inserted))
		}
	}
}
