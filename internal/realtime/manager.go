package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisBreakerDuration = 30 * time.Second

// SettingsProvider supplies the latest relay settings.
type SettingsProvider func() RedisSettings

// Manager always publishes to the in-process hub and relays to Redis when
// enabled. Redis failures open a breaker during which only the hub is used.
type Manager struct {
	hub            *Hub
	provider       SettingsProvider
	nowFn          func() time.Time
	newRedisClient RedisClientFactory
	breaker        *breaker

	mu    sync.Mutex
	relay *RedisPublisher
}

// NewManager constructs a Manager with default dependencies when nil.
func NewManager(hub *Hub, provider SettingsProvider, nowFn func() time.Time, newRedisClient RedisClientFactory) *Manager {
	if hub == nil {
		hub = NewHub()
	}
	if provider == nil {
		provider = func() RedisSettings { return RedisSettings{} }
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if newRedisClient == nil {
		newRedisClient = redis.NewClient
	}
	return &Manager{
		hub:            hub,
		provider:       provider,
		nowFn:          nowFn,
		newRedisClient: newRedisClient,
		breaker:        newBreaker(redisBreakerDuration),
	}
}

// Hub returns the in-process hub.
func (m *Manager) Hub() *Hub {
	if m == nil {
		return nil
	}
	return m.hub
}

// Publish delivers event to the hub and, best effort, to Redis. It only
// fails when the hub does.
func (m *Manager) Publish(ctx context.Context, event Event) error {
	if m == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errHub := m.hub.Publish(ctx, event); errHub != nil {
		return errHub
	}
	settings := m.provider().normalized()
	if !settings.Enabled {
		return nil
	}
	now := m.nowFn()
	if m.breaker.Open(now) {
		return nil
	}
	if errRelay := m.relayTo(ctx, settings, event); errRelay != nil && m.breaker.Trip(now) {
		log.WithError(errRelay).Warn("realtime: redis unavailable, publishing in-process only")
	}
	return nil
}

// BreakerOpen reports whether Redis is currently bypassed.
func (m *Manager) BreakerOpen() bool {
	if m == nil {
		return false
	}
	return m.breaker.Open(m.nowFn())
}

// Close releases the Redis client, if any.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	relay := m.relay
	m.relay = nil
	return relay.Close()
}

// relayTo publishes through the current relay, replacing it first when the
// settings changed since it was opened.
func (m *Manager) relayTo(ctx context.Context, settings RedisSettings, event Event) error {
	m.mu.Lock()
	relay := m.relay
	if relay == nil || relay.settings != settings {
		if relay != nil {
			_ = relay.Close()
			m.relay = nil
		}
		opened, errOpen := OpenRedisPublisher(ctx, m.newRedisClient, settings)
		if errOpen != nil {
			m.mu.Unlock()
			return errOpen
		}
		m.relay = opened
		relay = opened
	}
	m.mu.Unlock()
	return relay.Publish(ctx, event)
}
