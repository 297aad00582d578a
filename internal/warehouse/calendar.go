package warehouse

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

// DefaultDate is the sentinel calendar row facts reference when an offer
// carries no parseable publication date
var DefaultDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// CalendarRow holds the derived attributes of one dim_calendar row
type CalendarRow struct {
	Date        time.Time
	Year        int
	Quarter     int
	MonthNumber int
	MonthName   string
	Day         int
	YearMonth   string
	DayOfWeek   int // ISO, Monday=1
	WeekOfYear  int
	DateStr     string
}

// RowForDate derives the calendar attributes for a date
func RowForDate(d time.Time) CalendarRow {
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	_, week := d.ISOWeek()
	return CalendarRow{
		Date:        d,
		Year:        d.Year(),
		Quarter:     (int(d.Month())-1)/3 + 1,
		MonthNumber: int(d.Month()),
		MonthName:   d.Month().String(),
		Day:         d.Day(),
		YearMonth:   d.Format("2006-01"),
		DayOfWeek:   weekday,
		WeekOfYear:  week,
		DateStr:     d.Format("02/01/2006"),
	}
}

// DateRange returns the min and max publication dates in a batch; ok is
// false when no offer has a parseable date
func DateRange(offers []*domain.Offer) (start, end time.Time, ok bool) {
	for _, offer := range offers {
		if offer.PublicationDate == nil {
			continue
		}
		d := *offer.PublicationDate
		if !ok {
			start, end, ok = d, d, true
			continue
		}
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}
	return start, end, ok
}

// Calendar pre-materializes dim_calendar rows for a batch so fact
// insertion never races a missing date
type Calendar struct {
	db *DB
}

// NewCalendar creates a calendar populator
func NewCalendar(db *DB) *Calendar {
	return &Calendar{db: db}
}

// Populate ensures the sentinel row plus one row per date in the batch's
// [min, max] publication-date range. Idempotent; existing rows are left
// untouched. Commits (runs outside any offer transaction) before the
// fact loader touches the batch.
func (c *Calendar) Populate(ctx context.Context, offers []*domain.Offer) error {
	if err := EnsureDate(ctx, c.db, DefaultDate); err != nil {
		return err
	}

	start, end, ok := DateRange(offers)
	if !ok {
		return nil
	}

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := EnsureDate(ctx, c.db, d); err != nil {
			return err
		}
		days++
	}
	log.Printf("Calendar populated: %s..%s (%d days)",
		start.Format("2006-01-02"), end.Format("2006-01-02"), days)
	return nil
}

// EnsureDate upserts a single calendar row
func EnsureDate(ctx context.Context, db DBTX, d time.Time) error {
	row := RowForDate(d)
	_, err := db.ExecContext(ctx, `
		INSERT INTO dim_calendar (
			date_id, year, quarter, month_number, month_name,
			day, year_month, day_of_week, week_of_year, date_str
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (date_id) DO NOTHING`,
		row.Date, row.Year, row.Quarter, row.MonthNumber, row.MonthName,
		row.Day, row.YearMonth, row.DayOfWeek, row.WeekOfYear, row.DateStr,
	)
	if err != nil {
		return fmt.Errorf("ensure calendar row %s: %w", d.Format("2006-01-02"), err)
	}
	return nil
}
