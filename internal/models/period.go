package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period identifies one calendar month of one year
type Period struct {
	Month time.Month
	Year  int
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// MonthName is the canonical form stored in budgets.month
func (p Period) MonthName() string {
	return p.Month.String()
}

// Bounds returns the half-open interval [start, end) covering the period in loc
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// ParseMonth accepts a full or three-letter English month name (any case)
// or a number from 1 to 12.
func ParseMonth(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range", n)
		}
		return time.Month(n), nil
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

// ResolvePeriod fills a missing month or year from now
func ResolvePeriod(month string, year int, now time.Time) (Period, error) {
	p := PeriodOf(now)
	if month != "" {
		m, err := ParseMonth(month)
		if err != nil {
			return Period{}, NewValidationError("month", err.Error())
		}
		p.Month = m
	}
	if year != 0 {
		if year < 1970 || year > 9999 {
			return Period{}, NewValidationError("year", "year out of range")
		}
		p.Year = year
	}
	return p, nil
}

// DayBounds returns [start of day, start of next day) for t in its location
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
