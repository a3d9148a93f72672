package app

import (
	"fmt"

	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"gorm.io/gorm"
)

// RosterCounts reports how many stored users are active and in total.
func RosterCounts(conn *gorm.DB) (active int64, total int64, err error) {
	if conn == nil {
		return 0, 0, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.BiometricUser{}) {
		return 0, 0, nil
	}
	if errCount := conn.Model(&models.BiometricUser{}).Count(&total).Error; errCount != nil {
		return 0, 0, errCount
	}
	if errCount := conn.Model(&models.BiometricUser{}).Where("is_active = ?", true).Count(&active).Error; errCount != nil {
		return 0, 0, errCount
	}
	return active, total, nil
}
