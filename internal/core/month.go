package core

import (
	"fmt"
	"strings"
	"time"
)

// Month identifies a budget month. Budgets are always anchored to the first
// of the month; Month keeps only year and month so the first-of-month
// invariant cannot be violated by construction.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth builds a Month from a year and a 1-12 month number.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: month %d out of range", ErrInvalid, month)
	}
	if year < 1 {
		return Month{}, fmt.Errorf("%w: year %d out of range", ErrInvalid, year)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// MonthOfDate validates that t is the first of a month and returns its Month.
// Budget rows must carry first-of-month dates.
func MonthOfDate(t time.Time) (Month, error) {
	if t.IsZero() {
		return Month{}, fmt.Errorf("%w: zero date", ErrInvalid)
	}
	if t.Day() != 1 {
		return Month{}, fmt.Errorf("%w: %s is not the first of a month", ErrInvalid, t.Format("2006-01-02"))
	}
	return MonthOf(t), nil
}

// ParseMonth parses "2006-01" or "2006-01-02" (day must be 01).
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return MonthOf(t), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: malformed month %q", ErrInvalid, s)
	}
	return MonthOfDate(t)
}

// Prev returns the immediately preceding calendar month. December of the
// prior year follows January; the wraparound is exact by construction rather
// than delegated to time.Time arithmetic.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Next returns the immediately following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// AddMonths returns the month n months after m (n may be negative).
func (m Month) AddMonths(n int) Month {
	months := m.Year*12 + int(m.Month) - 1 + n
	return Month{Year: months / 12, Month: time.Month(months%12 + 1)}
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Contains reports whether t falls within m, by calendar month and year.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// First returns midnight UTC on the first of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// String renders the month as "March 2024". The synthetic income category
// for a month is named from this form.
func (m Month) String() string {
	return fmt.Sprintf("%s %d", m.Month.String(), m.Year)
}

// Key renders the month as "2024-03-01", the storage representation.
func (m Month) Key() string {
	return m.First().Format("2006-01-02")
}

// IncomeCategoryName returns the name of the synthetic income category for
// this month, e.g. "Income for March 2024".
func (m Month) IncomeCategoryName() string {
	return "Income for " + m.String()
}
