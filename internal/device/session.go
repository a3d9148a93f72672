package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Session owns the single connection to a terminal. The connection is opened
// lazily, reused across calls, and dropped by Reset after a failure.
type Session struct {
	addr    string
	dial    Dialer
	limiter *rate.Limiter

	mu     sync.Mutex
	client Client
}

// NewSession constructs a Session. reconnectInterval spaces out dial attempts;
// zero disables throttling.
func NewSession(addr string, dial Dialer, reconnectInterval time.Duration) *Session {
	limit := rate.Inf
	if reconnectInterval > 0 {
		limit = rate.Every(reconnectInterval)
	}
	return &Session{
		addr:    addr,
		dial:    dial,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Addr returns the terminal address this session targets.
func (s *Session) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Connected reports whether a live connection is held.
func (s *Session) Connected() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Connect establishes the connection, or reuses the one already held.
func (s *Session) Connect(ctx context.Context) error {
	_, err := s.acquire(ctx)
	return err
}

// Users returns the terminal's enrolled users.
func (s *Session) Users(ctx context.Context) ([]User, error) {
	client, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	users, err := client.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", ErrUnreachable, err)
	}
	return users, nil
}

// Punches returns every punch currently buffered on the terminal.
func (s *Session) Punches(ctx context.Context) ([]Punch, error) {
	client, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	punches, err := client.Punches(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list punches: %w", ErrUnreachable, err)
	}
	return punches, nil
}

// Reset drops the current connection so the next call dials again.
func (s *Session) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return
	}
	if errDisconnect := client.Disconnect(); errDisconnect != nil {
		log.WithError(errDisconnect).Debug("device session: disconnect after failure")
	}
}

// Close releases the connection. Safe to call when not connected.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	if errDisconnect := client.Disconnect(); errDisconnect != nil {
		return fmt.Errorf("device session: disconnect: %w", errDisconnect)
	}
	return nil
}

func (s *Session) acquire(ctx context.Context) (Client, error) {
	if s == nil || s.dial == nil {
		return nil, fmt.Errorf("%w: session not configured", ErrUnreachable)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if !s.limiter.Allow() {
		return nil, fmt.Errorf("%w: reconnect to %s throttled", ErrUnreachable, s.addr)
	}
	client, err := s.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrUnreachable, s.addr, err)
	}
	s.client = client
	log.Infof("device session: connected to %s", s.addr)
	return client, nil
}
