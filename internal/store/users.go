package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dbutil "github.com/bhaskarRao-22/attendance-sync/internal/db"
	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"github.com/bhaskarRao-22/attendance-sync/internal/settings"

	"gorm.io/gorm"
)

// ErrUserExists is returned when creating a user whose bio id is taken.
var ErrUserExists = errors.New("gorm user store: user already exists")

// GormUserStore reads and writes the stored roster.
type GormUserStore struct {
	db *gorm.DB
}

// NewGormUserStore constructs a GormUserStore.
func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

// Active returns active users ordered by name. A non-empty search filters
// on name or bio id, case-insensitively.
func (s *GormUserStore) Active(ctx context.Context, search string) ([]models.BiometricUser, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm user store: not initialized")
	}
	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	if search = strings.TrimSpace(search); search != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+search+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(s.db, "bio_name")+" OR "+dbutil.CaseInsensitiveLikeExpr(s.db, "bio_id"),
			pattern,
			pattern,
		)
	}
	var rows []models.BiometricUser
	if errFind := q.Order("bio_name ASC").Order("bio_id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("gorm user store: list active: %w", errFind)
	}
	return rows, nil
}

// FindByBioID loads one user. It returns gorm.ErrRecordNotFound when absent.
func (s *GormUserStore) FindByBioID(ctx context.Context, bioID string) (*models.BiometricUser, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm user store: not initialized")
	}
	var user models.BiometricUser
	if errFind := s.db.WithContext(ctx).Where("bio_id = ?", strings.TrimSpace(bioID)).First(&user).Error; errFind != nil {
		return nil, errFind
	}
	return &user, nil
}

// Create inserts a manually enrolled user.
func (s *GormUserStore) Create(ctx context.Context, user *models.BiometricUser) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm user store: not initialized")
	}
	if user == nil {
		return fmt.Errorf("gorm user store: user is nil")
	}
	user.BioID = strings.TrimSpace(user.BioID)
	user.BioName = strings.TrimSpace(user.BioName)
	if user.BioID == "" || user.BioName == "" {
		return fmt.Errorf("gorm user store: missing bio id or name")
	}
	if strings.TrimSpace(user.Designation) == "" {
		user.Designation = settings.DefaultDesignation
	}
	user.IsActive = true

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if errCount := tx.Model(&models.BiometricUser{}).Where("bio_id = ?", user.BioID).Count(&count).Error; errCount != nil {
			return fmt.Errorf("gorm user store: lookup: %w", errCount)
		}
		if count > 0 {
			return ErrUserExists
		}
		if errCreate := tx.Create(user).Error; errCreate != nil {
			return fmt.Errorf("gorm user store: create: %w", errCreate)
		}
		return nil
	})
}
