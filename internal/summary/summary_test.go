package summary

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/db"
	"github.com/bhaskarRao-22/attendance-sync/internal/models"
)

func TestSummarizeCoversEveryDay(t *testing.T) {
	month, _ := ParseMonth("2025-03")
	users := []models.BiometricUser{{BioID: "1", BioName: "Asha"}, {BioID: "2", BioName: "Ravi", Designation: "Programmer"}}
	punches := []models.AttendancePunch{
		{BioID: "1", AttTimestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, ist)},
		{BioID: "1", AttTimestamp: time.Date(2025, 3, 3, 18, 30, 0, 0, ist)},
		{BioID: "1", AttTimestamp: time.Date(2025, 3, 4, 10, 0, 0, 0, ist)},
		{BioID: "1", AttTimestamp: time.Date(2025, 3, 4, 19, 15, 0, 0, ist)},
		{BioID: "1", AttTimestamp: time.Date(2025, 4, 1, 9, 0, 0, 0, ist)},
		{BioID: "9", AttTimestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, ist)},
	}

	got := Summarize(month, ist, DefaultOfficeHours(), users, punches)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	for _, s := range got {
		if len(s.Records) != 31 {
			t.Fatalf("expected 31 records for %s, got %d", s.BioID, len(s.Records))
		}
		if s.Records[0].Date != "2025-03-01" || s.Records[30].Date != "2025-03-31" {
			t.Fatalf("unexpected record ordering for %s", s.BioID)
		}
	}

	asha := got[0]
	if asha.PresentDays != 2 || asha.AbsentDays != 29 {
		t.Fatalf("unexpected present/absent %d/%d", asha.PresentDays, asha.AbsentDays)
	}
	if asha.TotalWorkMinutes != 570+555 || asha.TotalOvertimeMinutes != 15+60 {
		t.Fatalf("unexpected totals work=%d overtime=%d", asha.TotalWorkMinutes, asha.TotalOvertimeMinutes)
	}
	if asha.Records[3].LateMinutes != 30 {
		t.Fatalf("expected 30 late minutes on the 4th, got %d", asha.Records[3].LateMinutes)
	}
	if asha.Designation != "Employee" {
		t.Fatalf("expected default designation, got %q", asha.Designation)
	}

	ravi := got[1]
	if ravi.PresentDays != 0 || ravi.AbsentDays != 31 || ravi.Designation != "Programmer" {
		t.Fatalf("unexpected summary for user without punches %+v", ravi)
	}
}

func TestServiceExcludesInactiveUsers(t *testing.T) {
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "summary-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	users := []models.BiometricUser{
		{BioID: "1", BioName: "Zara", Designation: "Employee", IsActive: true},
		{BioID: "2", BioName: "Arun", Designation: "Employee", IsActive: true},
		{BioID: "3", BioName: "Gone", Designation: "Employee", IsActive: true},
	}
	if errCreate := conn.Create(&users).Error; errCreate != nil {
		t.Fatalf("seed users: %v", errCreate)
	}
	if errUpdate := conn.Model(&models.BiometricUser{}).Where("bio_id = ?", "3").Update("is_active", false).Error; errUpdate != nil {
		t.Fatalf("deactivate: %v", errUpdate)
	}
	punches := []models.AttendancePunch{
		{BioID: "1", BioName: "Zara", DeviceIP: "ip", AttTimestamp: time.Date(2025, 2, 3, 9, 0, 0, 0, ist).UTC()},
		{BioID: "1", BioName: "Zara", DeviceIP: "ip", AttTimestamp: time.Date(2025, 2, 3, 18, 15, 0, 0, ist).UTC()},
		{BioID: "3", BioName: "Gone", DeviceIP: "ip", AttTimestamp: time.Date(2025, 2, 3, 9, 0, 0, 0, ist).UTC()},
	}
	if errCreate := conn.Create(&punches).Error; errCreate != nil {
		t.Fatalf("seed punches: %v", errCreate)
	}

	svc := NewService(conn, ist, DefaultOfficeHours())
	month, _ := ParseMonth("2025-02")
	got, err := svc.MonthlySummary(context.Background(), month)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected only active users, got %d", len(got))
	}
	if got[0].BioName != "Arun" || got[1].BioName != "Zara" {
		t.Fatalf("expected name ordering, got %s, %s", got[0].BioName, got[1].BioName)
	}
	if len(got[1].Records) != 28 {
		t.Fatalf("expected 28 records, got %d", len(got[1].Records))
	}
	day := got[1].Records[2]
	if !day.Present || day.DurationMinutes != 555 || day.EarlyMinutes != 0 || day.OvertimeMinutes != 0 {
		t.Fatalf("unexpected record %+v", day)
	}
}
