package loader

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/project-jmr/go-warehouse/internal/common/cleaner"
	"github.com/project-jmr/go-warehouse/internal/common/indexer"
	"github.com/project-jmr/go-warehouse/internal/common/normalizer"
	"github.com/project-jmr/go-warehouse/internal/domain"
	"github.com/project-jmr/go-warehouse/internal/source"
	"github.com/project-jmr/go-warehouse/internal/warehouse"
)

// OfferLoader is the warehouse contract the orchestrator drives
type OfferLoader interface {
	// PopulateCalendar must complete before LoadOffer runs for the batch
	PopulateCalendar(ctx context.Context, offers []*domain.Offer) error
	LoadOffer(ctx context.Context, offer *domain.Offer) (*warehouse.LoadResult, error)
}

// Config holds orchestrator tuning
type Config struct {
	// Concurrent offer loaders per batch; 1 means sequential
	Concurrency int
	// Soft timeout per batch; an expired batch is marked failed
	BatchTimeout time.Duration
	// Retry policy for transient storage errors at batch level
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Orchestrator iterates batches from a source, normalizes their offers
// and drives the fact loader, accumulating a run summary. Per-offer and
// per-batch failures are counted and logged, never fatal; only a failing
// source listing aborts the run.
type Orchestrator struct {
	source     source.BatchSource
	loader     OfferLoader
	indexer    indexer.Indexer // optional search mirror, may be nil
	normalizer *normalizer.Normalizer
	cleaner    *cleaner.Cleaner
	cfg        Config
}

// NewOrchestrator creates an orchestrator. idx may be nil to disable the
// search mirror.
func NewOrchestrator(src source.BatchSource, ldr OfferLoader, idx indexer.Indexer, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Orchestrator{
		source:     src,
		loader:     ldr,
		indexer:    idx,
		normalizer: normalizer.NewNormalizer(),
		cleaner:    cleaner.NewCleaner(),
		cfg:        cfg,
	}
}

// Run processes every batch the source yields and returns the summary
func (o *Orchestrator) Run(ctx context.Context) (*domain.Summary, error) {
	names, err := o.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	summary := domain.NewSummary()
	for _, name := range names {
		summary.Batches++
		if err := o.runBatch(ctx, name, summary); err != nil {
			summary.BatchesFailed++
			log.Printf("Batch %s failed: %v", name, err)
		}
	}

	log.Printf("Run complete: %d batches (%d failed), %d inserted, %d skipped, %d failed, %d filtered",
		summary.Batches, summary.BatchesFailed,
		summary.Inserted, summary.Skipped, summary.Failed, summary.Filtered)
	return summary, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, name string, summary *domain.Summary) error {
	if o.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.BatchTimeout)
		defer cancel()
	}

	var data []byte
	err := o.withRetry(ctx, "read batch "+name, func(ctx context.Context) error {
		var readErr error
		data, readErr = o.source.Read(ctx, name)
		return readErr
	})
	if err != nil {
		return err
	}

	rawRecords, err := DecodeOffers(data)
	if err != nil {
		return fmt.Errorf("malformed batch: %w", err)
	}

	offers := o.normalizeBatch(rawRecords, summary)
	log.Printf("Batch %s: %d offers after normalization and pre-filter", name, len(offers))

	err = o.withRetry(ctx, "populate calendar for "+name, func(ctx context.Context) error {
		return o.loader.PopulateCalendar(ctx, offers)
	})
	if err != nil {
		return err
	}

	inserted := o.loadOffers(ctx, offers, summary)

	if o.indexer != nil && len(inserted) > 0 {
		if err := o.indexer.BulkIndex(ctx, inserted); err != nil {
			log.Printf("Search mirror error for batch %s: %v", name, err)
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("batch timed out: %w", ctx.Err())
	}
	return nil
}

// normalizeBatch converts raw records to typed offers, dropping records
// without a job_url (failed) and records the enrichment pass explicitly
// flagged as non-data profiles (filtered)
func (o *Orchestrator) normalizeBatch(rawRecords []domain.RawOffer, summary *domain.Summary) []*domain.Offer {
	offers := make([]*domain.Offer, 0, len(rawRecords))
	for _, raw := range rawRecords {
		offer, err := o.normalizer.NormalizeOffer(raw)
		if err != nil {
			summary.Failed++
			log.Printf("Dropping offer: %v", err)
			continue
		}
		if offer.IsDataProfile != nil && !*offer.IsDataProfile {
			summary.Filtered++
			continue
		}
		offer.Description = o.cleaner.CleanToText(offer.Description)
		offers = append(offers, offer)
	}
	return offers
}

// loadOffers drives the fact loader over a bounded worker pool and
// returns the offers that produced new fact rows
func (o *Orchestrator) loadOffers(ctx context.Context, offers []*domain.Offer, summary *domain.Summary) []*domain.Offer {
	jobs := make(chan *domain.Offer)
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		inserted []*domain.Offer
	)

	for i := 0; i < o.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for offer := range jobs {
				res, err := o.loader.LoadOffer(ctx, offer)
				if err != nil {
					log.Printf("Load error for %s: %v", offer.JobURL, err)
				}

				mu.Lock()
				summary.Record(res.Outcome)
				if res.Outcome == domain.OutcomeInserted {
					summary.SkillLinks += res.SkillLinks
					for table, n := range res.DimensionsCreated {
						summary.DimensionsCreated[table] += n
					}
					inserted = append(inserted, offer)
				}
				mu.Unlock()
			}
		}()
	}

	for _, offer := range offers {
		jobs <- offer
	}
	close(jobs)
	wg.Wait()

	return inserted
}

// withRetry wraps batch-level storage calls in the retry policy
func (o *Orchestrator) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := o.cfg.RetryBackoff
	var err error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == o.cfg.MaxAttempts || ctx.Err() != nil {
			break
		}
		log.Printf("%s: attempt %d/%d failed: %v (retrying in %s)",
			op, attempt, o.cfg.MaxAttempts, err, backoff)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
