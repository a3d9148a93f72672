package summary

import (
	"sort"
	"time"
)

// DailyRecord is the derived attendance for one user on one day.
type DailyRecord struct {
	Date            string     `json:"date"`  // YYYY-MM-DD
	Label           string     `json:"label"` // dd-mm-yyyy
	InTime          *time.Time `json:"inTime"`
	OutTime         *time.Time `json:"outTime"`
	DurationMinutes int        `json:"durationMinutes"`
	LateMinutes     int        `json:"lateMinutes"`
	EarlyMinutes    int        `json:"earlyMinutes"`
	OvertimeMinutes int        `json:"overtimeMinutes"`
	Present         bool       `json:"present"`
}

// ClassifyDay derives the record for day from that day's punches.
//
// One punch is an arrival when it falls before noon and a departure
// otherwise. With two or more, the earliest is the arrival and the latest the
// departure; punches in between are ignored. A day is present only when both
// ends are known. Minutes are floored.
func ClassifyDay(day time.Time, punches []time.Time, hours OfficeHours) DailyRecord {
	loc := day.Location()
	rec := DailyRecord{
		Date:  day.Format("2006-01-02"),
		Label: day.Format("02-01-2006"),
	}

	sorted := make([]time.Time, len(punches))
	for i, p := range punches {
		sorted[i] = p.In(loc)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var in, out *time.Time
	switch len(sorted) {
	case 0:
	case 1:
		only := sorted[0]
		if only.Before(hours.Noon.On(day)) {
			in = &only
		} else {
			out = &only
		}
	default:
		first, last := sorted[0], sorted[len(sorted)-1]
		in, out = &first, &last
	}
	rec.InTime, rec.OutTime = in, out

	if in != nil {
		if start := hours.Start.On(day); in.After(start) {
			rec.LateMinutes = minutes(in.Sub(start))
		}
	}
	if in != nil && out != nil {
		end := hours.End.On(day)
		rec.DurationMinutes = minutes(out.Sub(*in))
		if out.Before(end) {
			rec.EarlyMinutes = minutes(end.Sub(*out))
		}
		if out.After(end) {
			rec.OvertimeMinutes = minutes(out.Sub(end))
		}
		rec.Present = true
	}
	return rec
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}
