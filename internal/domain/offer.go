package domain

import "time"

// Offer represents a normalized job offer ready for warehouse loading
type Offer struct {
	JobURL          string     `json:"job_url"`
	Title           string     `json:"title"`
	Source          string     `json:"source"` // scraping site ("via" in raw records)
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	Contract        string     `json:"contract"`
	WorkType        string     `json:"work_type"`
	Location        Location   `json:"location"`
	Company         string     `json:"company"`
	Profile         string     `json:"profile"`
	EducationLevel  string     `json:"education_level"`
	Seniority       string     `json:"seniority"`
	Sectors         []string   `json:"sectors"`
	SalaryRange     string     `json:"salary_range"`
	Description     string     `json:"description"`
	HardSkills      []string   `json:"hard_skills"`
	SoftSkills      []string   `json:"soft_skills"`

	// Enrichment flag: nil when the upstream LLM pass never ran,
	// false when the record was classified as not a data profile.
	IsDataProfile *bool `json:"is_data_profile,omitempty"`
}

// Location holds a parsed job location
type Location struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Remote  bool   `json:"remote"`
}

// RawOffer is a semi-structured offer record as decoded from a JSON batch.
// Field names and shapes vary per scraping site; the normalizer flattens
// them into an Offer.
type RawOffer map[string]any

// LoadOutcome is the result of loading a single offer into the warehouse
type LoadOutcome int

const (
	// OutcomeInserted - a new fact row (plus skill links) was committed
	OutcomeInserted LoadOutcome = iota
	// OutcomeSkippedDuplicate - a fact row with this job_url already exists
	OutcomeSkippedDuplicate
	// OutcomeFailed - the offer's transaction was rolled back
	OutcomeFailed
)

func (o LoadOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeSkippedDuplicate:
		return "skipped_duplicate"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Summary accumulates the externally visible result of a run
type Summary struct {
	Batches       int `json:"batches"`
	BatchesFailed int `json:"batches_failed"`

	Inserted   int `json:"inserted"`
	Skipped    int `json:"skipped_duplicate"`
	Failed     int `json:"failed"`
	Filtered   int `json:"filtered_out"` // rejected by the is_data_profile pre-filter
	SkillLinks int `json:"skill_links"`

	// Dimension rows created during the run, keyed by table name
	DimensionsCreated map[string]int `json:"dimensions_created"`
}

// NewSummary returns an empty summary
func NewSummary() *Summary {
	return &Summary{DimensionsCreated: make(map[string]int)}
}

// Merge folds another summary into this one
func (s *Summary) Merge(other *Summary) {
	s.Batches += other.Batches
	s.BatchesFailed += other.BatchesFailed
	s.Inserted += other.Inserted
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Filtered += other.Filtered
	s.SkillLinks += other.SkillLinks
	for table, n := range other.DimensionsCreated {
		s.DimensionsCreated[table] += n
	}
}

// Record counts one offer outcome
func (s *Summary) Record(outcome LoadOutcome) {
	switch outcome {
	case OutcomeInserted:
		s.Inserted++
	case OutcomeSkippedDuplicate:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
