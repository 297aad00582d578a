package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

// LoadResult reports what a single LoadOffer call committed
type LoadResult struct {
	Outcome domain.LoadOutcome
	// Dimension rows created inside this offer's transaction, keyed by
	// table name. Empty unless Outcome is OutcomeInserted.
	DimensionsCreated map[string]int
	// Skill association rows actually inserted (conflicts excluded)
	SkillLinks int
}

// Loader inserts normalized offers into the star schema
type Loader struct {
	db       *DB
	calendar *Calendar
}

// NewLoader creates a fact loader
func NewLoader(db *DB) *Loader {
	return &Loader{
		db:       db,
		calendar: NewCalendar(db),
	}
}

// PopulateCalendar runs the calendar populator for a batch. Must complete
// before LoadOffer is called for any offer of that batch.
func (l *Loader) PopulateCalendar(ctx context.Context, offers []*domain.Offer) error {
	return l.calendar.Populate(ctx, offers)
}

// LoadOffer loads one offer: duplicate check on job_url, dimension
// resolution, one fact row, one association row per distinct skill.
// Everything runs in a single transaction so a failed offer leaves no
// partial state. Re-loading an existing job_url is a no-op reported as
// OutcomeSkippedDuplicate.
func (l *Loader) LoadOffer(ctx context.Context, offer *domain.Offer) (*LoadResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return &LoadResult{Outcome: domain.OutcomeFailed}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT offer_id FROM fact_offer WHERE job_url = $1`, offer.JobURL).Scan(&existing)
	if err == nil {
		return &LoadResult{Outcome: domain.OutcomeSkippedDuplicate}, nil
	}
	if err != sql.ErrNoRows {
		return &LoadResult{Outcome: domain.OutcomeFailed}, fmt.Errorf("duplicate check: %w", err)
	}

	resolver := NewResolver(tx)

	contractID, err := resolver.Resolve(ctx, DimContract, offer.Contract)
	if err != nil {
		return failed(err)
	}
	workTypeID, err := resolver.Resolve(ctx, DimWorkType, offer.WorkType)
	if err != nil {
		return failed(err)
	}
	companyID, err := resolver.Resolve(ctx, DimCompany, offer.Company)
	if err != nil {
		return failed(err)
	}
	profileID, err := resolver.Resolve(ctx, DimProfile, offer.Profile)
	if err != nil {
		return failed(err)
	}
	educationID, err := resolver.Resolve(ctx, DimEducation, offer.EducationLevel)
	if err != nil {
		return failed(err)
	}
	experienceID, err := resolver.Resolve(ctx, DimExperience, offer.Seniority)
	if err != nil {
		return failed(err)
	}
	locationID, err := resolver.Resolve(ctx, DimLocation, offer.Location.City, locationCountry(offer.Location))
	if err != nil {
		return failed(err)
	}

	// The fact keeps one sector; the first is the primary classification
	var sectorID sql.NullInt64
	if len(offer.Sectors) > 0 {
		sectorID, err = resolver.Resolve(ctx, DimSector, offer.Sectors[0])
		if err != nil {
			return failed(err)
		}
	}

	dateID := DefaultDate
	if offer.PublicationDate != nil {
		dateID = *offer.PublicationDate
	}
	// Cheap idempotent upsert covering dates outside the batch range
	if err := EnsureDate(ctx, tx, dateID); err != nil {
		return failed(err)
	}

	source := offer.Source
	if source == "" {
		source = UnknownSentinel
	}

	var offerID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO fact_offer (
			job_url, title, source, date_id, contract_id, work_type_id,
			location_id, company_id, profile_id, education_id,
			experience_id, sector_id, remote, salary_range, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING offer_id`,
		offer.JobURL, offer.Title, source, dateID, contractID, workTypeID,
		locationID, companyID, profileID, educationID,
		experienceID, sectorID, offer.Location.Remote,
		nullString(offer.SalaryRange), nullString(offer.Description),
	).Scan(&offerID)
	if err != nil {
		return &LoadResult{Outcome: domain.OutcomeFailed}, fmt.Errorf("insert fact_offer: %w", err)
	}

	links := 0
	for _, group := range []struct {
		skillType string
		skills    []string
	}{
		{"hard", offer.HardSkills},
		{"soft", offer.SoftSkills},
	} {
		for _, skill := range group.skills {
			skillID, err := resolver.Resolve(ctx, DimSkill, skill, group.skillType)
			if err != nil {
				return failed(err)
			}
			if !skillID.Valid {
				continue
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO fact_offer_skill (offer_id, skill_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				offerID, skillID.Int64)
			if err != nil {
				return &LoadResult{Outcome: domain.OutcomeFailed}, fmt.Errorf("insert fact_offer_skill: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				links += int(n)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &LoadResult{Outcome: domain.OutcomeFailed}, fmt.Errorf("commit offer: %w", err)
	}

	return &LoadResult{
		Outcome:           domain.OutcomeInserted,
		DimensionsCreated: resolver.Created(),
		SkillLinks:        links,
	}, nil
}

func failed(err error) (*LoadResult, error) {
	return &LoadResult{Outcome: domain.OutcomeFailed}, err
}

// locationCountry falls back to the region when no country was parsed,
// matching how the location natural key was built upstream
func locationCountry(loc domain.Location) string {
	if loc.Country != "" {
		return loc.Country
	}
	return loc.Region
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
