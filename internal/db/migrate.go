package db

import (
	"fmt"

	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"github.com/bhaskarRao-22/attendance-sync/internal/settings"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, DialectMySQL, "":
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.BiometricUser{},
		&models.AttendancePunch{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errBackfill := backfillDesignation(conn); errBackfill != nil {
		return errBackfill
	}
	return nil
}

// backfillDesignation fills rows created before designation had a default.
func backfillDesignation(conn *gorm.DB) error {
	if errUpdate := conn.Model(&models.BiometricUser{}).
		Where("designation IS NULL OR designation = ?", "").
		Update("designation", settings.DefaultDesignation).Error; errUpdate != nil {
		return fmt.Errorf("db: backfill designation: %w", errUpdate)
	}
	return nil
}
