// Package device abstracts the biometric clock-in terminal behind a single
// long-lived session shared by every ingestion cycle.
package device

import (
	"context"
	"errors"
	"time"
)

// Errors reported by terminal clients.
var (
	// ErrUnreachable means the terminal could not be dialed or stopped answering.
	ErrUnreachable = errors.New("device: unreachable")
	// ErrUnauthorized means the terminal requires a communication key.
	ErrUnauthorized = errors.New("device: unauthorized")
	// ErrProtocol means the terminal replied with an unexpected frame.
	ErrProtocol = errors.New("device: protocol error")
)

// User is one identity enrolled on the terminal.
type User struct {
	UID  int    // Device-internal slot number.
	ID   string // Stable enrolled identifier (bioId).
	Name string // Display name as stored on the terminal.
	Role int    // Privilege level.
}

// Punch is one attendance record buffered on the terminal.
type Punch struct {
	Seq        int       // Device-internal sequence number.
	UserID     string    // Enrolled identifier of the puncher.
	IP         string    // Address of the terminal that produced the record.
	RecordTime time.Time // Punch instant; zero when the device sent garbage.
	Status     int       // Verify mode reported by the terminal.
	PunchType  int       // Punch state (check-in, check-out, ...) as reported.
}

// Client is a connected terminal.
type Client interface {
	Users(ctx context.Context) ([]User, error)
	Punches(ctx context.Context) ([]Punch, error)
	Disconnect() error
}

// Dialer opens a new connected Client.
type Dialer func(ctx context.Context) (Client, error)
