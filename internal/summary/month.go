package summary

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidMonth is returned for a month that is not YYYY-MM.
var ErrInvalidMonth = errors.New("summary: month must be YYYY-MM")

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(raw string) (Month, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len("2006-01") {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, raw)
	}
	t, errParse := time.Parse("2006-01", raw)
	if errParse != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, raw)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Range returns the half-open interval [first day 00:00, first of next month 00:00) in loc.
func (m Month) Range(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	from := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

// Days returns the number of calendar days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
