package zk

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/device"
)

const (
	userRecordLen       = 72
	attendanceRecordLen = 40
)

// decodeTime unpacks the terminal's packed wall-clock encoding in loc.
func decodeTime(t uint32, loc *time.Location) time.Time {
	second := int(t % 60)
	t /= 60
	minute := int(t % 60)
	t /= 60
	hour := int(t % 24)
	t /= 24
	day := int(t%31) + 1
	t /= 31
	month := time.Month(t%12) + 1
	t /= 12
	year := int(t) + 2000
	return time.Date(year, month, day, hour, minute, second, 0, loc)
}

// cString returns b up to its first NUL, trimmed.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}

// decodeUsers parses a user table: a 4-byte size followed by 72-byte records.
func decodeUsers(data []byte) []device.User {
	if len(data) < 4 {
		return nil
	}
	data = data[4:]
	users := make([]device.User, 0, len(data)/userRecordLen)
	for len(data) >= userRecordLen {
		rec := data[:userRecordLen]
		data = data[userRecordLen:]
		users = append(users, device.User{
			UID:  int(binary.LittleEndian.Uint16(rec[0:])),
			Role: int(rec[2]),
			Name: cString(rec[11:35]),
			ID:   cString(rec[48:72]),
		})
	}
	return users
}

// decodePunches parses an attendance table: a 4-byte size followed by 40-byte records.
func decodePunches(data []byte, ip string, loc *time.Location) []device.Punch {
	if len(data) < 4 {
		return nil
	}
	data = data[4:]
	punches := make([]device.Punch, 0, len(data)/attendanceRecordLen)
	for len(data) >= attendanceRecordLen {
		rec := data[:attendanceRecordLen]
		data = data[attendanceRecordLen:]
		punch := device.Punch{
			Seq:       int(binary.LittleEndian.Uint16(rec[0:])),
			UserID:    cString(rec[2:26]),
			IP:        ip,
			Status:    int(rec[26]),
			PunchType: int(rec[31]),
		}
		if raw := binary.LittleEndian.Uint32(rec[27:]); raw != 0 {
			punch.RecordTime = decodeTime(raw, loc)
		}
		punches = append(punches, punch)
	}
	return punches
}
