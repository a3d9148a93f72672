package settings

import "time"

// Domain defaults shared by ingestion, aggregation and the HTTP surface.
const (
	// DefaultDesignation is the role label given to newly discovered device users.
	DefaultDesignation = "Employee"
	// UnknownName is stored for punches whose device user is not on the roster.
	UnknownName = "Unknown"
	// EventNewAttendance is the event type published per newly stored punch.
	EventNewAttendance = "new-attendance"
	// DefaultDeviceHost is the fallback terminal address.
	DefaultDeviceHost = "192.168.10.201"
	// DefaultDevicePort is the fallback terminal TCP port.
	DefaultDevicePort = 4370
	// DefaultDeviceTimeout bounds every socket operation against the terminal.
	DefaultDeviceTimeout = 10 * time.Second
	// DefaultReconnectInterval is the minimum spacing between dial attempts.
	DefaultReconnectInterval = 5 * time.Second
	// DefaultDeviceTimezone is the zone device-local timestamps are read in.
	DefaultDeviceTimezone = "Local"
	// DefaultSyncInterval is how often the ingestor polls the terminal.
	DefaultSyncInterval = 15 * time.Second
	// DefaultOfficeStart is the lateness threshold (local wall clock).
	DefaultOfficeStart = "09:30"
	// DefaultOfficeEnd is the early-leave/overtime threshold (local wall clock).
	DefaultOfficeEnd = "18:15"
	// DefaultNoon splits a lone punch into an in or out punch.
	DefaultNoon = "12:00"
	// DefaultRedisChannel is the pub/sub channel for attendance events.
	DefaultRedisChannel = "attendance:events"
	// DefaultHTTPPort is the fallback API port.
	DefaultHTTPPort = 5000
)
