// Package ledger holds the pure calendar-month aggregation and payment
// allocation logic. Nothing in here touches the database; services fetch
// records, call into this package, and persist the results.
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMonth is returned when a month string is not of the form YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

// Month is a calendar month in UTC.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the calendar month containing t (in UTC).
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

// Previous returns the month before m.
func (m Month) Previous() Month {
	start := m.Start().AddDate(0, 0, -1)
	return Month{Year: start.Year(), Month: start.Month()}
}

// Start returns the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month. Queries use
// [Start, End) so the last day of the month is covered in full.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	// Day zero of the next month is the last day of this one.
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day returns the date string (YYYY-MM-DD) for a 1-based day of the month.
func (m Month) Day(n int) string {
	return time.Date(m.Year, m.Month, n, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// Contains reports whether t falls within the month.
func (m Month) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(m.Start()) && u.Before(m.End())
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return m.Start().Format("2006-01")
}
