package loader_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/project-jmr/go-warehouse/internal/domain"
	"github.com/project-jmr/go-warehouse/internal/module/loader"
	"github.com/project-jmr/go-warehouse/internal/warehouse"
)

// fakeSource serves in-memory batch payloads, optionally failing the
// first reads to exercise the retry policy
type fakeSource struct {
	names     []string
	batches   map[string][]byte
	listErr   error
	failReads int

	mu    sync.Mutex
	reads int
}

func (f *fakeSource) List(ctx context.Context) ([]string, error) {
	return f.names, f.listErr
}

func (f *fakeSource) Read(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	f.reads++
	flaky := f.reads <= f.failReads
	f.mu.Unlock()
	if flaky {
		return nil, errors.New("connection reset")
	}
	data, ok := f.batches[name]
	if !ok {
		return nil, errors.New("no such batch")
	}
	return data, nil
}

// fakeWarehouse implements OfferLoader over a map, treating repeated
// job_urls as duplicates the way the real dup check does
type fakeWarehouse struct {
	mu        sync.Mutex
	seen      map[string]bool
	companies map[string]bool
	failing   map[string]bool
	calendars int
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		seen:      make(map[string]bool),
		companies: make(map[string]bool),
		failing:   make(map[string]bool),
	}
}

func (f *fakeWarehouse) PopulateCalendar(ctx context.Context, offers []*domain.Offer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendars++
	return nil
}

func (f *fakeWarehouse) LoadOffer(ctx context.Context, offer *domain.Offer) (*warehouse.LoadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing[offer.JobURL] {
		return &warehouse.LoadResult{Outcome: domain.OutcomeFailed}, errors.New("constraint violation")
	}
	if f.seen[offer.JobURL] {
		return &warehouse.LoadResult{Outcome: domain.OutcomeSkippedDuplicate}, nil
	}
	f.seen[offer.JobURL] = true

	res := &warehouse.LoadResult{
		Outcome:           domain.OutcomeInserted,
		SkillLinks:        len(offer.HardSkills) + len(offer.SoftSkills),
		DimensionsCreated: make(map[string]int),
	}
	if offer.Company != "" && !f.companies[offer.Company] {
		f.companies[offer.Company] = true
		res.DimensionsCreated["dim_company"] = 1
	}
	return res, nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []*domain.Offer
}

func (f *fakeIndexer) BulkIndex(ctx context.Context, offers []*domain.Offer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, offers...)
	return nil
}

func batchPayload(t *testing.T, records []map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	return data
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	records := make([]map[string]any, 0, 10)
	for i := 1; i <= 10; i++ {
		rec := map[string]any{
			"job_url":     fmt.Sprintf("https://jobs.example/%d", i),
			"titre":       "Data Engineer",
			"hard_skills": "sql, python",
		}
		if i == 4 {
			delete(rec, "job_url") // unusable record, no natural key
		}
		records = append(records, rec)
	}

	src := &fakeSource{
		names:   []string{"batch-1.json"},
		batches: map[string][]byte{"batch-1.json": batchPayload(t, records)},
	}
	wh := newFakeWarehouse()
	wh.failing["https://jobs.example/7"] = true

	orch := loader.NewOrchestrator(src, wh, nil, loader.Config{Concurrency: 4})
	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Batches != 1 || summary.BatchesFailed != 0 {
		t.Errorf("batches = %d/%d failed, want 1/0", summary.Batches, summary.BatchesFailed)
	}
	if summary.Inserted != 8 {
		t.Errorf("Inserted = %d, want 8", summary.Inserted)
	}
	if summary.Failed != 2 { // one missing job_url, one storage failure
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
	if summary.SkillLinks != 16 {
		t.Errorf("SkillLinks = %d, want 16", summary.SkillLinks)
	}
}

func TestRun_SecondRunSkipsDuplicates(t *testing.T) {
	records := []map[string]any{
		{"job_url": "u1", "titre": "Data Engineer", "company_name": "Acme"},
		{"job_url": "u2", "titre": "Data Analyst", "company_name": "Acme"},
		{"job_url": "u3", "titre": "ML Engineer", "company_name": "Globex"},
	}
	payload := batchPayload(t, records)

	src := &fakeSource{
		names:   []string{"day-1.json", "day-2.json"}, // identical payloads
		batches: map[string][]byte{"day-1.json": payload, "day-2.json": payload},
	}
	wh := newFakeWarehouse()
	idx := &fakeIndexer{}

	orch := loader.NewOrchestrator(src, wh, idx, loader.Config{})
	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", summary.Inserted)
	}
	if summary.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", summary.Skipped)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0", summary.Failed)
	}
	// Company rows are created once, counted once
	if summary.DimensionsCreated["dim_company"] != 2 {
		t.Errorf("dim_company created = %d, want 2", summary.DimensionsCreated["dim_company"])
	}
	// Only newly inserted offers reach the search mirror
	if len(idx.indexed) != 3 {
		t.Errorf("indexed %d offers, want 3", len(idx.indexed))
	}
}

func TestRun_MalformedBatchIsCountedNotFatal(t *testing.T) {
	src := &fakeSource{
		names: []string{"broken.json", "good.json"},
		batches: map[string][]byte{
			"broken.json": []byte(`{"job_url": `),
			"good.json":   batchPayload(t, []map[string]any{{"job_url": "u1"}}),
		},
	}
	wh := newFakeWarehouse()

	orch := loader.NewOrchestrator(src, wh, nil, loader.Config{})
	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Batches != 2 || summary.BatchesFailed != 1 {
		t.Errorf("batches = %d/%d failed, want 2/1", summary.Batches, summary.BatchesFailed)
	}
	if summary.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", summary.Inserted)
	}
	// The malformed batch never reaches the calendar populator
	if wh.calendars != 1 {
		t.Errorf("calendar populated %d times, want 1", wh.calendars)
	}
}

func TestRun_NonDataProfilesFiltered(t *testing.T) {
	records := []map[string]any{
		{"job_url": "u1", "titre": "Data Engineer", "is_data_profile": true},
		{"job_url": "u2", "titre": "Accountant", "is_data_profile": false},
		{"job_url": "u3", "titre": "Data Scientist"}, // never classified, kept
	}
	src := &fakeSource{
		names:   []string{"b.json"},
		batches: map[string][]byte{"b.json": batchPayload(t, records)},
	}
	wh := newFakeWarehouse()

	orch := loader.NewOrchestrator(src, wh, nil, loader.Config{})
	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Filtered != 1 {
		t.Errorf("Filtered = %d, want 1", summary.Filtered)
	}
	if summary.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", summary.Inserted)
	}
}

func TestRun_TransientReadErrorRetried(t *testing.T) {
	src := &fakeSource{
		names:     []string{"b.json"},
		batches:   map[string][]byte{"b.json": batchPayload(t, []map[string]any{{"job_url": "u1"}})},
		failReads: 2,
	}
	wh := newFakeWarehouse()

	orch := loader.NewOrchestrator(src, wh, nil, loader.Config{
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
	})
	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.BatchesFailed != 0 {
		t.Errorf("BatchesFailed = %d, want 0", summary.BatchesFailed)
	}
	if summary.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", summary.Inserted)
	}
	if src.reads != 3 {
		t.Errorf("source read %d times, want 3", src.reads)
	}
}

func TestRun_ExhaustedRetriesFailTheBatch(t *testing.T) {
	src := &fakeSource{
		names:     []string{"b.json"},
		batches:   map[string][]byte{"b.json": batchPayload(t, []map[string]any{{"job_url": "u1"}})},
		failReads: 5,
	}
	wh := newFakeWarehouse()

	orch := loader.NewOrchestrator(src, wh, nil, loader.Config{
		MaxAttempts:  2,
		RetryBackoff: time.Millisecond,
	})
	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.BatchesFailed != 1 {
		t.Errorf("BatchesFailed = %d, want 1", summary.BatchesFailed)
	}
	if summary.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0", summary.Inserted)
	}
}

func TestRun_ListFailureIsFatal(t *testing.T) {
	src := &fakeSource{listErr: errors.New("bucket unreachable")}
	orch := loader.NewOrchestrator(src, newFakeWarehouse(), nil, loader.Config{})

	if _, err := orch.Run(context.Background()); err == nil {
		t.Fatal("expected error when the source listing fails")
	}
}
