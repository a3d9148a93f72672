package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/db"
	"github.com/bhaskarRao-22/attendance-sync/internal/device"
	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"github.com/bhaskarRao-22/attendance-sync/internal/realtime"
	"gorm.io/gorm"
)

type fakeSource struct {
	mu      sync.Mutex
	users   []device.User
	punches []device.Punch
	err     error
	calls   int
	resets  int
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSource) Users(context.Context) ([]device.User, error) {
	f.mu.Lock()
	f.calls++
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, f.err
}

func (f *fakeSource) Punches(context.Context) ([]device.Punch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.punches, f.err
}

func (f *fakeSource) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "ingest-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func countPunches(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	if errCount := conn.Model(&models.AttendancePunch{}).Count(&n).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	return n
}

var day = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func sampleSource() *fakeSource {
	return &fakeSource{
		users: []device.User{{ID: "101", Name: "Asha"}, {ID: "102", Name: "Ravi"}},
		punches: []device.Punch{
			{Seq: 1, UserID: "101", IP: "10.0.0.5", RecordTime: day.Add(9 * time.Hour)},
			{Seq: 2, UserID: "101", IP: "10.0.0.5", RecordTime: day.Add(18*time.Hour + 30*time.Minute)},
			{Seq: 3, UserID: "102", IP: "10.0.0.5", RecordTime: day.Add(9*time.Hour + 45*time.Minute)},
		},
	}
}

func TestRunCycleIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	src := sampleSource()
	pub := &recordingPublisher{}
	ing := New(src, conn, pub)
	ctx := context.Background()

	first, err := ing.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if first.Stored != 3 || first.Fetched != 3 || first.Users != 2 || first.Upserted != 2 {
		t.Fatalf("unexpected first report %+v", first)
	}
	if len(pub.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(pub.events))
	}
	if pub.events[0].Type != "new-attendance" {
		t.Fatalf("unexpected event type %q", pub.events[0].Type)
	}
	if punch, ok := pub.events[0].Payload.(models.AttendancePunch); !ok || punch.BioName != "Asha" || punch.ID == 0 {
		t.Fatalf("unexpected event payload %#v", pub.events[0].Payload)
	}

	second, err := ing.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if second.Stored != 0 || second.Duplicates != 3 {
		t.Fatalf("expected no new punches on second cycle, got %+v", second)
	}
	if len(pub.events) != 3 {
		t.Fatalf("expected no further events, got %d", len(pub.events))
	}
	if n := countPunches(t, conn); n != 3 {
		t.Fatalf("expected 3 stored punches, got %d", n)
	}
}

func TestRunCycleUnknownUserAndMalformedTimestamp(t *testing.T) {
	conn := openTestDB(t)
	src := &fakeSource{
		users: []device.User{{ID: "101", Name: "Asha"}},
		punches: []device.Punch{
			{Seq: 1, UserID: "999", IP: "10.0.0.5", RecordTime: day.Add(10 * time.Hour)},
			{Seq: 2, UserID: "101", IP: "10.0.0.5"},
			{Seq: 3, UserID: "101", IP: "10.0.0.5", RecordTime: time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)},
			{Seq: 4, UserID: "", IP: "10.0.0.5", RecordTime: day.Add(11 * time.Hour)},
		},
	}
	report, err := New(src, conn, nil).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if report.Stored != 1 || report.Malformed != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	var punch models.AttendancePunch
	if errFind := conn.First(&punch).Error; errFind != nil {
		t.Fatalf("load punch: %v", errFind)
	}
	if punch.BioName != "Unknown" || punch.BioID != "999" {
		t.Fatalf("expected unknown user punch, got %+v", punch)
	}
}

func TestRunCycleDeviceFailureResetsSession(t *testing.T) {
	conn := openTestDB(t)
	src := &fakeSource{err: device.ErrUnreachable}
	report, err := New(src, conn, nil).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("expected contained failure, got %v", err)
	}
	if !errors.Is(report.Err, device.ErrUnreachable) {
		t.Fatalf("expected report to carry device error, got %v", report.Err)
	}
	if src.resets != 1 {
		t.Fatalf("expected 1 reset, got %d", src.resets)
	}
	if n := countPunches(t, conn); n != 0 {
		t.Fatalf("expected nothing stored, got %d", n)
	}
}

func TestRunCycleSkipsWhileBusy(t *testing.T) {
	conn := openTestDB(t)
	src := sampleSource()
	src.block = make(chan struct{})
	src.entered = make(chan struct{}, 1)
	ing := New(src, conn, nil)

	done := make(chan Report, 1)
	go func() {
		report, _ := ing.RunCycle(context.Background())
		done <- report
	}()
	<-src.entered

	src.mu.Lock()
	src.entered = nil
	src.mu.Unlock()

	overlapped, err := ing.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("overlapping cycle: %v", err)
	}
	if !overlapped.Skipped {
		t.Fatalf("expected overlapping cycle to be skipped, got %+v", overlapped)
	}
	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected device untouched by skipped cycle, got %d calls", calls)
	}

	close(src.block)
	first := <-done
	if first.Skipped || first.Stored != 3 {
		t.Fatalf("unexpected in-flight report %+v", first)
	}
}

func TestRunCycleDeactivatesMissingUsers(t *testing.T) {
	conn := openTestDB(t)
	src := sampleSource()
	ing := New(src, conn, nil)
	if _, err := ing.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	src.users = src.users[:1]
	report, err := ing.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if report.Deactivated != 1 {
		t.Fatalf("expected 1 deactivated, got %+v", report)
	}
}
