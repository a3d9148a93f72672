package models

import (
	"time"

	"gorm.io/datatypes"
)

// AttendancePunch is one raw clock event captured from a terminal.
// The (bio_id, bio_name, device_ip, att_timestamp) tuple is unique.
type AttendancePunch struct {
	ID  uint64 `gorm:"primaryKey;autoIncrement" json:"id"`       // Primary key.
	UID int    `gorm:"column:uid;not null;default:0" json:"uid"` // Device-internal sequence number.

	BioID        string    `gorm:"column:bio_id;type:varchar(64);not null;uniqueIndex:idx_attendance_punch_tuple,priority:1;index" json:"bioId"`
	BioName      string    `gorm:"column:bio_name;type:varchar(255);not null;uniqueIndex:idx_attendance_punch_tuple,priority:2" json:"bioName"`
	DeviceIP     string    `gorm:"column:device_ip;type:varchar(64);not null;uniqueIndex:idx_attendance_punch_tuple,priority:3" json:"deviceIp"`
	AttTimestamp time.Time `gorm:"column:att_timestamp;not null;uniqueIndex:idx_attendance_punch_tuple,priority:4;index" json:"attTimestamp"`

	Extra datatypes.JSON `gorm:"type:json" json:"extra,omitempty"` // Raw device attributes (verify state, punch type).

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Capture timestamp.
}

// TableName overrides the default table name.
func (AttendancePunch) TableName() string {
	return "attendance_punches"
}
