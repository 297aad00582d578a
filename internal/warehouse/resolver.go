package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// UnknownSentinel is the placeholder value upstream enrichment emits for
// absent fields. It never creates a dimension row.
const UnknownSentinel = "unknown"

// Dimension describes one dimension table: its surrogate id column and
// the natural-key columns, in order
type Dimension struct {
	Table      string
	IDColumn   string
	KeyColumns []string

	// conflictTarget overrides the ON CONFLICT clause for dimensions
	// whose unique index is an expression (dim_location)
	conflictTarget string
}

var (
	DimContract   = Dimension{Table: "dim_contract", IDColumn: "contract_id", KeyColumns: []string{"contract_type"}}
	DimWorkType   = Dimension{Table: "dim_work_type", IDColumn: "work_type_id", KeyColumns: []string{"work_type"}}
	DimCompany    = Dimension{Table: "dim_company", IDColumn: "company_id", KeyColumns: []string{"company_name"}}
	DimProfile    = Dimension{Table: "dim_profile", IDColumn: "profile_id", KeyColumns: []string{"profile"}}
	DimEducation  = Dimension{Table: "dim_education", IDColumn: "education_id", KeyColumns: []string{"education_level"}}
	DimExperience = Dimension{Table: "dim_experience", IDColumn: "experience_id", KeyColumns: []string{"seniority"}}
	DimSector     = Dimension{Table: "dim_sector", IDColumn: "sector_id", KeyColumns: []string{"sector"}}
	DimSkill      = Dimension{Table: "dim_skill", IDColumn: "skill_id", KeyColumns: []string{"skill", "skill_type"}}
	DimLocation   = Dimension{
		Table:          "dim_location",
		IDColumn:       "location_id",
		KeyColumns:     []string{"city", "country"},
		conflictTarget: "(COALESCE(city, ''), COALESCE(country, ''))",
	}
)

// Resolver implements get-or-create over dimension tables. Callers must
// pass case-normalized values. Bind it to a transaction and the rows it
// creates roll back with that transaction; read created counts only
// after commit.
type Resolver struct {
	db      DBTX
	created map[string]int
}

// NewResolver creates a resolver bound to a database handle or transaction
func NewResolver(db DBTX) *Resolver {
	return &Resolver{
		db:      db,
		created: make(map[string]int),
	}
}

// Created returns rows created per dimension table since construction
func (r *Resolver) Created() map[string]int {
	return r.created
}

// Resolve returns the surrogate id for the given natural-key values,
// creating the row on first reference. Values must match dim.KeyColumns
// in order. Returns an invalid (NULL) id when every key value is empty
// or the unknown sentinel, so placeholders never pollute dimensions.
//
// The insert uses ON CONFLICT DO NOTHING with a re-select fallback, so
// concurrent resolutions of the same key converge on one row.
func (r *Resolver) Resolve(ctx context.Context, dim Dimension, values ...string) (sql.NullInt64, error) {
	if len(values) != len(dim.KeyColumns) {
		return sql.NullInt64{}, fmt.Errorf("%s: got %d key values, want %d", dim.Table, len(values), len(dim.KeyColumns))
	}

	keys := make([]string, len(values))
	empty := true
	for i, v := range values {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, UnknownSentinel) {
			v = ""
		}
		keys[i] = v
		if v != "" {
			empty = false
		}
	}
	if empty {
		return sql.NullInt64{}, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	var id int64
	err := r.db.QueryRowContext(ctx, dim.selectQuery(), args...).Scan(&id)
	if err == nil {
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}
	if err != sql.ErrNoRows {
		return sql.NullInt64{}, fmt.Errorf("lookup %s: %w", dim.Table, err)
	}

	err = r.db.QueryRowContext(ctx, dim.insertQuery(), args...).Scan(&id)
	if err == nil {
		r.created[dim.Table]++
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}
	if err != sql.ErrNoRows {
		return sql.NullInt64{}, fmt.Errorf("insert %s: %w", dim.Table, err)
	}

	// Lost the insert race; the row exists now
	if err := r.db.QueryRowContext(ctx, dim.selectQuery(), args...).Scan(&id); err != nil {
		return sql.NullInt64{}, fmt.Errorf("re-lookup %s: %w", dim.Table, err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

// selectQuery matches on COALESCE so NULL columns (empty key parts of a
// composite key) compare equal to the empty string we pass
func (d Dimension) selectQuery() string {
	conds := make([]string, len(d.KeyColumns))
	for i, col := range d.KeyColumns {
		conds[i] = fmt.Sprintf("COALESCE(%s, '') = $%d", col, i+1)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		d.IDColumn, d.Table, strings.Join(conds, " AND "))
}

// insertQuery stores empty key parts as NULL and returns no row on
// conflict (caller re-selects)
func (d Dimension) insertQuery() string {
	placeholders := make([]string, len(d.KeyColumns))
	for i := range d.KeyColumns {
		placeholders[i] = fmt.Sprintf("NULLIF($%d, '')", i+1)
	}
	target := d.conflictTarget
	if target == "" {
		target = "(" + strings.Join(d.KeyColumns, ", ") + ")"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT %s DO NOTHING RETURNING %s",
		d.Table, strings.Join(d.KeyColumns, ", "), strings.Join(placeholders, ", "),
		target, d.IDColumn)
}
