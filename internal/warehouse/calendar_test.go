package warehouse_test

import (
	"testing"
	"time"

	"github.com/project-jmr/go-warehouse/internal/domain"
	"github.com/project-jmr/go-warehouse/internal/warehouse"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRowForDate(t *testing.T) {
	cases := []struct {
		date time.Time
		want warehouse.CalendarRow
	}{
		{
			// a Tuesday
			date: day(2025, time.July, 15),
			want: warehouse.CalendarRow{
				Year: 2025, Quarter: 3, MonthNumber: 7, MonthName: "July",
				Day: 15, YearMonth: "2025-07", DayOfWeek: 2, WeekOfYear: 29,
				DateStr: "15/07/2025",
			},
		},
		{
			// a Sunday maps to ISO weekday 7, not 0
			date: day(2025, time.January, 5),
			want: warehouse.CalendarRow{
				Year: 2025, Quarter: 1, MonthNumber: 1, MonthName: "January",
				Day: 5, YearMonth: "2025-01", DayOfWeek: 7, WeekOfYear: 1,
				DateStr: "05/01/2025",
			},
		},
		{
			date: day(2024, time.December, 31),
			want: warehouse.CalendarRow{
				Year: 2024, Quarter: 4, MonthNumber: 12, MonthName: "December",
				Day: 31, YearMonth: "2024-12", DayOfWeek: 2, WeekOfYear: 1,
				DateStr: "31/12/2024",
			},
		},
	}
	for _, c := range cases {
		got := warehouse.RowForDate(c.date)
		c.want.Date = c.date
		if got != c.want {
			t.Errorf("RowForDate(%s) = %+v, want %+v",
				c.date.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestRowForDate_Sentinel(t *testing.T) {
	row := warehouse.RowForDate(warehouse.DefaultDate)
	if row.Year != 2000 || row.Quarter != 1 || row.MonthNumber != 1 || row.Day != 1 {
		t.Errorf("sentinel row = %+v", row)
	}
	if row.DayOfWeek != 6 { // 2000-01-01 was a Saturday
		t.Errorf("sentinel DayOfWeek = %d, want 6", row.DayOfWeek)
	}
}

func offerOn(d *time.Time) *domain.Offer {
	return &domain.Offer{JobURL: "u", PublicationDate: d}
}

func TestDateRange(t *testing.T) {
	d1 := day(2025, time.July, 1)
	d2 := day(2025, time.July, 15)
	d3 := day(2025, time.June, 20)

	start, end, ok := warehouse.DateRange([]*domain.Offer{
		offerOn(&d1), offerOn(nil), offerOn(&d2), offerOn(&d3),
	})
	if !ok {
		t.Fatal("DateRange ok = false, want true")
	}
	if !start.Equal(d3) || !end.Equal(d2) {
		t.Errorf("DateRange = [%s, %s], want [2025-06-20, 2025-07-15]",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
}

func TestDateRange_NoDates(t *testing.T) {
	if _, _, ok := warehouse.DateRange([]*domain.Offer{offerOn(nil), offerOn(nil)}); ok {
		t.Error("DateRange ok = true for a batch with no parseable dates")
	}
	if _, _, ok := warehouse.DateRange(nil); ok {
		t.Error("DateRange ok = true for an empty batch")
	}
}
