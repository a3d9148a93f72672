package attendance

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/config"
	"github.com/bhaskarRao-22/attendance-sync/internal/db"
	"github.com/bhaskarRao-22/attendance-sync/internal/ingest"
	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"github.com/bhaskarRao-22/attendance-sync/internal/realtime"
	"github.com/bhaskarRao-22/attendance-sync/internal/summary"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type fakeRunner struct {
	report ingest.Report
}

func (f *fakeRunner) RunCycle(context.Context) (ingest.Report, error) {
	return f.report, nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	runner *fakeRunner
	hub    *realtime.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "http-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	runner := &fakeRunner{}
	hub := realtime.NewHub()
	engine := NewEngine(config.HTTPConfig{})
	RegisterRoutes(engine, conn, summary.NewService(conn, time.UTC, summary.DefaultOfficeHours()), runner, hub)
	return &testServer{engine: engine, db: conn, runner: runner, hub: hub}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMonthlySummaryValidatesMonth(t *testing.T) {
	s := newTestServer(t)
	for _, target := range []string{
		"/v0/attendance/monthly-summary",
		"/v0/attendance/monthly-summary?month=2025-13",
		"/v0/attendance/monthly-summary?month=March",
	} {
		rec := s.do(http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"error"`) {
			t.Fatalf("%s: expected error body, got %s", target, rec.Body.String())
		}
	}
}

func TestMonthlySummaryReturnsActiveUsers(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(http.MethodPost, "/v0/biometric-users", `{"bioId":"1","bioName":"Asha"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed user: %d %s", rec.Code, rec.Body.String())
	}
	punches := []models.AttendancePunch{
		{BioID: "1", BioName: "Asha", DeviceIP: "ip", AttTimestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{BioID: "1", BioName: "Asha", DeviceIP: "ip", AttTimestamp: time.Date(2025, 3, 3, 18, 30, 0, 0, time.UTC)},
	}
	if errCreate := s.db.Create(&punches).Error; errCreate != nil {
		t.Fatalf("seed punches: %v", errCreate)
	}

	rec := s.do(http.MethodGet, "/v0/attendance/monthly-summary?month=2025-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got []summary.MonthlySummary
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &got); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(got) != 1 || len(got[0].Records) != 31 {
		t.Fatalf("unexpected summary %+v", got)
	}
	if got[0].PresentDays != 1 || got[0].TotalOvertimeMinutes != 15 {
		t.Fatalf("unexpected totals %+v", got[0])
	}
}

func TestBiometricUsersCreateAndList(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(http.MethodPost, "/v0/biometric-users", `{"bioId":"2","bioName":"Zara","avatar":"https://example.com/z.png"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodPost, "/v0/biometric-users", `{"bioId":"1","bioName":"Arun","designation":"Programmer"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodPost, "/v0/biometric-users", `{"bioId":"1","bioName":"Again"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/v0/biometric-users", `{"bioName":"NoID"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing id, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/v0/biometric-users", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rec.Code)
	}

	rec := s.do(http.MethodGet, "/v0/biometric-users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var users []struct {
		BioID       string  `json:"bioId"`
		BioName     string  `json:"bioName"`
		Designation string  `json:"designation"`
		Avatar      *string `json:"avatar"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &users); errDecode != nil {
		t.Fatalf("expected a JSON array, got %s: %v", rec.Body.String(), errDecode)
	}
	if len(users) != 2 || users[0].BioName != "Arun" || users[1].BioName != "Zara" {
		t.Fatalf("expected users sorted by name, got %+v", users)
	}
	if users[0].Designation != "Programmer" || users[1].Designation != "Employee" {
		t.Fatalf("unexpected designations %+v", users)
	}
	if users[1].Avatar == nil {
		t.Fatalf("expected avatar to round trip")
	}
}

func TestSyncTrigger(t *testing.T) {
	s := newTestServer(t)
	s.runner.report = ingest.Report{Fetched: 3, Stored: 2, Duplicates: 1}
	rec := s.do(http.MethodPost, "/v0/attendance/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"stored":2`) {
		t.Fatalf("expected report in body, got %s", rec.Body.String())
	}

	s.runner.report = ingest.Report{Skipped: true}
	if rec := s.do(http.MethodPost, "/v0/attendance/sync", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/v0/biometric-users", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS headers, got %v", rec.Header())
	}
}

func TestEventsStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v0/attendance/events", nil)
	if errReq != nil {
		t.Fatalf("request: %v", errReq)
	}
	resp, errDo := srv.Client().Do(req)
	if errDo != nil {
		t.Fatalf("do: %v", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, errRead := reader.ReadString('\n')
			if errRead != nil {
				t.Fatalf("read stream: %v", errRead)
			}
			line = strings.TrimRight(line, "\r\n")
			switch {
			case line == "":
				if name != "" {
					return name, data
				}
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		}
	}

	if name, _ := readEvent(); name != "ready" {
		t.Fatalf("expected ready event, got %q", name)
	}
	event := realtime.NewEvent("new-attendance", map[string]string{"bioId": "101"})
	if errPublish := s.hub.Publish(context.Background(), event); errPublish != nil {
		t.Fatalf("publish: %v", errPublish)
	}
	name, data := readEvent()
	if name != "new-attendance" {
		t.Fatalf("expected new-attendance event, got %q", name)
	}
	if !strings.Contains(data, event.ID) || !strings.Contains(data, `"bioId":"101"`) {
		t.Fatalf("unexpected event data %s", data)
	}
}
