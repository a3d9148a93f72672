// Package ingest pulls the terminal's buffered punches, reconciles the roster
// and stores each punch exactly once.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/device"
	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"github.com/bhaskarRao-22/attendance-sync/internal/realtime"
	"github.com/bhaskarRao-22/attendance-sync/internal/roster"
	"github.com/bhaskarRao-22/attendance-sync/internal/settings"
	"github.com/bhaskarRao-22/attendance-sync/internal/store"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrMalformedTimestamp marks a punch whose time could not be decoded.
var ErrMalformedTimestamp = errors.New("ingest: malformed punch timestamp")

// minValidTime is the earliest instant a terminal can legitimately report.
var minValidTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Source is the terminal as seen by one cycle. *device.Session implements it.
type Source interface {
	Users(ctx context.Context) ([]device.User, error)
	Punches(ctx context.Context) ([]device.Punch, error)
	Reset()
}

// Report summarises one cycle.
type Report struct {
	Skipped     bool  `json:"skipped"`     // Another cycle was in flight.
	Users       int   `json:"users"`       // Users listed by the terminal.
	Fetched     int   `json:"fetched"`     // Punches listed by the terminal.
	Stored      int   `json:"stored"`      // Punches newly written.
	Duplicates  int   `json:"duplicates"`  // Punches already stored.
	Malformed   int   `json:"malformed"`   // Punches skipped for bad data.
	Upserted    int   `json:"upserted"`    // Roster rows upserted.
	Deactivated int   `json:"deactivated"` // Roster rows deactivated.
	Err         error `json:"-"`           // First contained failure, if any.
}

// Ingestor runs ingestion cycles against one terminal session.
type Ingestor struct {
	source    Source
	db        *gorm.DB
	punches   *store.GormPunchStore
	publisher realtime.Publisher
	guard     cycleGuard
}

// New constructs an Ingestor. A nil publisher discards events.
func New(source Source, db *gorm.DB, publisher realtime.Publisher) *Ingestor {
	return &Ingestor{
		source:    source,
		db:        db,
		punches:   store.NewGormPunchStore(db),
		publisher: publisher,
	}
}

// RunCycle performs one ingestion pass. It returns immediately with
// Report.Skipped when another pass is running. Device and store failures are
// logged and recorded in Report.Err; the returned error is reserved for
// misconfiguration.
func (i *Ingestor) RunCycle(ctx context.Context) (Report, error) {
	if i == nil || i.source == nil || i.db == nil {
		return Report{}, fmt.Errorf("ingest: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !i.guard.TryAcquire() {
		return Report{Skipped: true}, nil
	}
	defer i.guard.Release()

	var report Report

	users, errUsers := i.source.Users(ctx)
	if errUsers != nil {
		i.deviceFailed(&report, errUsers)
		return report, nil
	}
	report.Users = len(users)

	punches, errPunches := i.source.Punches(ctx)
	if errPunches != nil {
		i.deviceFailed(&report, errPunches)
		return report, nil
	}
	report.Fetched = len(punches)

	res, errReconcile := roster.Reconcile(ctx, i.db, users)
	if errReconcile != nil {
		log.WithError(errReconcile).Warn("ingest: roster reconcile failed")
		report.record(errReconcile)
	}
	report.Upserted = res.Upserted
	report.Deactivated = res.Deactivated

	names := roster.Names(users)
	for _, p := range punches {
		i.ingestPunch(ctx, &report, names, p)
	}

	if report.Stored > 0 || report.Malformed > 0 {
		log.Infof("ingest: stored %d new punches (%d fetched, %d duplicates, %d malformed)",
			report.Stored, report.Fetched, report.Duplicates, report.Malformed)
	}
	return report, nil
}

func (i *Ingestor) ingestPunch(ctx context.Context, report *Report, names map[string]string, p device.Punch) {
	record, errConvert := toRecord(p, names)
	if errConvert != nil {
		report.Malformed++
		log.WithError(errConvert).Warnf("ingest: skipping punch seq %d for user %q", p.Seq, p.UserID)
		return
	}

	exists, errExists := i.punches.Exists(ctx, record)
	if errExists != nil {
		log.WithError(errExists).Warn("ingest: punch lookup failed")
		report.record(errExists)
		return
	}
	if exists {
		report.Duplicates++
		return
	}

	inserted, errInsert := i.punches.Insert(ctx, record)
	if errInsert != nil {
		log.WithError(errInsert).Warn("ingest: punch insert failed")
		report.record(errInsert)
		return
	}
	if !inserted {
		report.Duplicates++
		return
	}
	report.Stored++

	if i.publisher == nil {
		return
	}
	event := realtime.NewEvent(settings.EventNewAttendance, *record)
	if errPublish := i.publisher.Publish(ctx, event); errPublish != nil {
		log.WithError(errPublish).Warn("ingest: publish new attendance failed")
	}
}

func (i *Ingestor) deviceFailed(report *Report, err error) {
	i.source.Reset()
	report.record(err)
	log.WithError(err).Warn("ingest: device fetch failed, connection reset")
}

func (r *Report) record(err error) {
	if r.Err == nil {
		r.Err = err
	}
}

// toRecord maps a device punch to a storable row. Unknown users are named
// "Unknown".
func toRecord(p device.Punch, names map[string]string) (*models.AttendancePunch, error) {
	bioID := strings.TrimSpace(p.UserID)
	if bioID == "" {
		return nil, fmt.Errorf("ingest: punch without user id")
	}
	if p.RecordTime.IsZero() || p.RecordTime.Before(minValidTime) {
		return nil, ErrMalformedTimestamp
	}
	name, ok := names[bioID]
	if !ok || name == "" {
		name = settings.UnknownName
	}
	return &models.AttendancePunch{
		UID:          p.Seq,
		BioID:        bioID,
		BioName:      name,
		DeviceIP:     strings.TrimSpace(p.IP),
		AttTimestamp: p.RecordTime.UTC().Truncate(time.Second),
		Extra: store.ExtraJSON(map[string]any{
			"status": p.Status,
			"punch":  p.PunchType,
		}),
	}, nil
}
