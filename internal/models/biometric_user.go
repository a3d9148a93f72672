package models

import "time"

// BiometricUser represents one identity enrolled on the biometric terminal.
type BiometricUser struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BioID       string  `gorm:"column:bio_id;type:varchar(64);not null;uniqueIndex"` // Device-assigned identifier.
	BioName     string  `gorm:"column:bio_name;type:varchar(255);not null;index"`    // Display name from the device.
	Designation string  `gorm:"type:varchar(255);not null;default:'Employee'"`       // Role label, kept across syncs.
	Avatar      *string `gorm:"type:text"`                                           // Optional avatar URL.
	IsActive    bool    `gorm:"column:is_active;not null;default:true;index"`        // Present on the device roster.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (BiometricUser) TableName() string {
	return "biometric_users"
}
