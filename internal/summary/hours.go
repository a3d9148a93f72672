package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/settings"
)

// Clock is a local wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(raw string) (Clock, error) {
	t, errParse := time.Parse("15:04", strings.TrimSpace(raw))
	if errParse != nil {
		return Clock{}, fmt.Errorf("summary: parse clock %q: %w", raw, errParse)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On returns the clock's instant on the given day, in day's location.
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// OfficeHours holds the thresholds used to classify a day.
type OfficeHours struct {
	Start Clock // Arrivals after this are late.
	End   Clock // Departures before this are early, after it overtime.
	Noon  Clock // A lone punch before this is an arrival.
}

// DefaultOfficeHours returns 09:30 / 18:15 with a noon cut-off.
func DefaultOfficeHours() OfficeHours {
	hours, _ := ParseOfficeHours(settings.DefaultOfficeStart, settings.DefaultOfficeEnd, settings.DefaultNoon)
	return hours
}

// ParseOfficeHours builds OfficeHours from "HH:MM" strings.
func ParseOfficeHours(start, end, noon string) (OfficeHours, error) {
	s, errStart := ParseClock(start)
	if errStart != nil {
		return OfficeHours{}, errStart
	}
	e, errEnd := ParseClock(end)
	if errEnd != nil {
		return OfficeHours{}, errEnd
	}
	n, errNoon := ParseClock(noon)
	if errNoon != nil {
		return OfficeHours{}, errNoon
	}
	if e.Hour*60+e.Minute <= s.Hour*60+s.Minute {
		return OfficeHours{}, fmt.Errorf("summary: office end %s must follow start %s", end, start)
	}
	return OfficeHours{Start: s, End: e, Noon: n}, nil
}
