package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DBTX is satisfied by *sql.DB and *sql.Tx, so dimension resolution can
// run inside a per-offer transaction or standalone
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the warehouse connection
type DB struct {
	*sql.DB
}

// Open connects to the warehouse and verifies the connection.
// A connect failure here is fatal to the run.
func Open(connStr string) (*DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{DB: db}, nil
}

// schemaStatements creates the star schema. Natural keys carry unique
// constraints so get-or-create stays atomic under concurrent loaders;
// dim_location needs an expression index because country may be NULL.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dim_calendar (
		date_id DATE PRIMARY KEY,
		year INTEGER NOT NULL,
		quarter INTEGER NOT NULL,
		month_number INTEGER NOT NULL,
		month_name TEXT NOT NULL,
		day INTEGER NOT NULL,
		year_month TEXT NOT NULL,
		day_of_week INTEGER NOT NULL,
		week_of_year INTEGER NOT NULL,
		date_str TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_contract (
		contract_id SERIAL PRIMARY KEY,
		contract_type TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS dim_work_type (
		work_type_id SERIAL PRIMARY KEY,
		work_type TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS dim_location (
		location_id SERIAL PRIMARY KEY,
		city TEXT,
		country TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dim_location_natural_key
		ON dim_location (COALESCE(city, ''), COALESCE(country, ''))`,
	`CREATE TABLE IF NOT EXISTS dim_company (
		company_id SERIAL PRIMARY KEY,
		company_name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS dim_profile (
		profile_id SERIAL PRIMARY KEY,
		profile TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS dim_education (
		education_id SERIAL PRIMARY KEY,
		education_level TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS dim_experience (
		experience_id SERIAL PRIMARY KEY,
		seniority TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS dim_sector (
		sector_id SERIAL PRIMARY KEY,
		sector TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS dim_skill (
		skill_id SERIAL PRIMARY KEY,
		skill TEXT NOT NULL,
		skill_type TEXT NOT NULL,
		UNIQUE (skill, skill_type)
	)`,
	`CREATE TABLE IF NOT EXISTS fact_offer (
		offer_id SERIAL PRIMARY KEY,
		job_url TEXT NOT NULL UNIQUE,
		title TEXT,
		source TEXT,
		date_id DATE REFERENCES dim_calendar(date_id),
		contract_id INTEGER REFERENCES dim_contract(contract_id),
		work_type_id INTEGER REFERENCES dim_work_type(work_type_id),
		location_id INTEGER REFERENCES dim_location(location_id),
		company_id INTEGER REFERENCES dim_company(company_id),
		profile_id INTEGER REFERENCES dim_profile(profile_id),
		education_id INTEGER REFERENCES dim_education(education_id),
		experience_id INTEGER REFERENCES dim_experience(experience_id),
		sector_id INTEGER REFERENCES dim_sector(sector_id),
		remote BOOLEAN NOT NULL DEFAULT FALSE,
		salary_range TEXT,
		description TEXT,
		loaded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS fact_offer_skill (
		offer_id INTEGER NOT NULL REFERENCES fact_offer(offer_id),
		skill_id INTEGER NOT NULL REFERENCES dim_skill(skill_id),
		PRIMARY KEY (offer_id, skill_id)
	)`,
}

// EnsureSchema creates all warehouse tables if they don't exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
