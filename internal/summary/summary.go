// Package summary rebuilds daily in/out sessions from raw punches and rolls
// them up into monthly attendance per active user.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"github.com/bhaskarRao-22/attendance-sync/internal/settings"
	"github.com/bhaskarRao-22/attendance-sync/internal/store"

	"gorm.io/gorm"
)

// MonthlySummary is one active user's attendance for one month.
type MonthlySummary struct {
	BioID                string        `json:"bioId"`
	BioName              string        `json:"bioName"`
	Designation          string        `json:"designation"`
	Avatar               *string       `json:"avatar"`
	PresentDays          int           `json:"presentDays"`
	AbsentDays           int           `json:"absentDays"`
	TotalWorkMinutes     int           `json:"totalWorkMinutes"`
	TotalOvertimeMinutes int           `json:"totalOvertimeMinutes"`
	Records              []DailyRecord `json:"records"`
}

// Summarize builds a summary for each user, in the order given, covering
// every day of month in loc. Punches of users not in users are ignored.
func Summarize(month Month, loc *time.Location, hours OfficeHours, users []models.BiometricUser, punches []models.AttendancePunch) []MonthlySummary {
	if loc == nil {
		loc = time.Local
	}
	from, to := month.Range(loc)

	byUser := make(map[string]map[string][]time.Time, len(users))
	for _, u := range users {
		byUser[u.BioID] = make(map[string][]time.Time)
	}
	for _, p := range punches {
		days, ok := byUser[p.BioID]
		if !ok {
			continue
		}
		at := p.AttTimestamp.In(loc)
		if at.Before(from) || !at.Before(to) {
			continue
		}
		key := at.Format("2006-01-02")
		days[key] = append(days[key], at)
	}

	out := make([]MonthlySummary, 0, len(users))
	for _, u := range users {
		designation := strings.TrimSpace(u.Designation)
		if designation == "" {
			designation = settings.DefaultDesignation
		}
		s := MonthlySummary{
			BioID:       u.BioID,
			BioName:     u.BioName,
			Designation: designation,
			Avatar:      u.Avatar,
			Records:     make([]DailyRecord, 0, month.Days()),
		}
		days := byUser[u.BioID]
		for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
			rec := ClassifyDay(day, days[day.Format("2006-01-02")], hours)
			if rec.Present {
				s.PresentDays++
			}
			s.TotalWorkMinutes += rec.DurationMinutes
			s.TotalOvertimeMinutes += rec.OvertimeMinutes
			s.Records = append(s.Records, rec)
		}
		s.AbsentDays = len(s.Records) - s.PresentDays
		out = append(out, s)
	}
	return out
}

// Service answers monthly summaries from the store. It only reads.
type Service struct {
	users   *store.GormUserStore
	punches *store.GormPunchStore
	loc     *time.Location
	hours   OfficeHours
}

// NewService constructs a Service. loc is the terminal's time zone.
func NewService(db *gorm.DB, loc *time.Location, hours OfficeHours) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		users:   store.NewGormUserStore(db),
		punches: store.NewGormPunchStore(db),
		loc:     loc,
		hours:   hours,
	}
}

// MonthlySummary returns one summary per active user, ordered by name.
func (s *Service) MonthlySummary(ctx context.Context, month Month) ([]MonthlySummary, error) {
	if s == nil {
		return nil, fmt.Errorf("summary: service not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	users, errUsers := s.users.Active(ctx, "")
	if errUsers != nil {
		return nil, fmt.Errorf("summary: load users: %w", errUsers)
	}
	if len(users) == 0 {
		return []MonthlySummary{}, nil
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.BioID)
	}
	from, to := month.Range(s.loc)
	punches, errPunches := s.punches.InRange(ctx, from, to, ids)
	if errPunches != nil {
		return nil, fmt.Errorf("summary: load punches: %w", errPunches)
	}
	return Summarize(month, s.loc, s.hours, users, punches), nil
}
