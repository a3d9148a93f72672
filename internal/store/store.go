package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// punchTupleColumns is the natural key of a stored punch.
var punchTupleColumns = []clause.Column{
	{Name: "bio_id"},
	{Name: "bio_name"},
	{Name: "device_ip"},
	{Name: "att_timestamp"},
}

// GormPunchStore persists attendance punches via GORM.
type GormPunchStore struct {
	db *gorm.DB
}

// NewGormPunchStore constructs a GormPunchStore.
func NewGormPunchStore(db *gorm.DB) *GormPunchStore {
	return &GormPunchStore{db: db}
}

// Exists reports whether a punch with the same tuple is already stored.
func (s *GormPunchStore) Exists(ctx context.Context, punch *models.AttendancePunch) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("gorm punch store: not initialized")
	}
	if punch == nil {
		return false, fmt.Errorf("gorm punch store: punch is nil")
	}
	var existing models.AttendancePunch
	errFind := s.db.WithContext(ctx).
		Select("id").
		Where("bio_id = ? AND bio_name = ? AND device_ip = ? AND att_timestamp = ?",
			punch.BioID, punch.BioName, punch.DeviceIP, punch.AttTimestamp.UTC()).
		Take(&existing).Error
	if errFind == nil {
		return true, nil
	}
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("gorm punch store: lookup: %w", errFind)
}

// Insert stores the punch unless its tuple is already present. It reports
// whether a row was written; a conflicting tuple is not an error.
func (s *GormPunchStore) Insert(ctx context.Context, punch *models.AttendancePunch) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("gorm punch store: not initialized")
	}
	if punch == nil {
		return false, fmt.Errorf("gorm punch store: punch is nil")
	}
	if strings.TrimSpace(punch.BioID) == "" {
		return false, fmt.Errorf("gorm punch store: missing bio id")
	}
	punch.AttTimestamp = punch.AttTimestamp.UTC().Truncate(time.Second)

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   punchTupleColumns,
		DoNothing: true,
	}).Create(punch)
	if res.Error != nil {
		return false, fmt.Errorf("gorm punch store: insert: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// InRange returns punches with from <= att_timestamp < to, oldest first.
// When bioIDs is non-empty only those users are returned.
func (s *GormPunchStore) InRange(ctx context.Context, from, to time.Time, bioIDs []string) ([]models.AttendancePunch, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm punch store: not initialized")
	}
	q := s.db.WithContext(ctx).
		Where("att_timestamp >= ? AND att_timestamp < ?", from.UTC(), to.UTC())
	if len(bioIDs) > 0 {
		q = q.Where("bio_id IN ?", bioIDs)
	}
	var rows []models.AttendancePunch
	if errFind := q.Order("att_timestamp ASC").Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("gorm punch store: range: %w", errFind)
	}
	return rows, nil
}

// Count returns the number of stored punches.
func (s *GormPunchStore) Count(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm punch store: not initialized")
	}
	var n int64
	if errCount := s.db.WithContext(ctx).Model(&models.AttendancePunch{}).Count(&n).Error; errCount != nil {
		return 0, fmt.Errorf("gorm punch store: count: %w", errCount)
	}
	return n, nil
}

// ExtraJSON encodes raw device attributes for AttendancePunch.Extra. Empty
// maps produce nil so the column stays NULL.
func ExtraJSON(attrs map[string]any) datatypes.JSON {
	if len(attrs) == 0 {
		return nil
	}
	payload, errMarshal := json.Marshal(attrs)
	if errMarshal != nil || len(payload) == 0 {
		return nil
	}
	return datatypes.JSON(payload)
}
