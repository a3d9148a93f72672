package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 2 * time.Second

// RedisSettings configures the optional Redis relay.
type RedisSettings struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Channel  string
}

func (s RedisSettings) normalized() RedisSettings {
	s.Addr = strings.TrimSpace(s.Addr)
	s.Password = strings.TrimSpace(s.Password)
	s.Channel = strings.TrimSpace(s.Channel)
	if s.DB < 0 {
		s.DB = 0
	}
	return s
}

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// RedisPublisher publishes JSON-encoded events on a Redis channel.
type RedisPublisher struct {
	client   *redis.Client
	channel  string
	settings RedisSettings
}

// NewRedisPublisher constructs a RedisPublisher.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: strings.TrimSpace(channel),
	}
}

// OpenRedisPublisher builds a client from settings and pings it before
// returning a publisher for settings.Channel. A nil factory uses redis.NewClient.
func OpenRedisPublisher(ctx context.Context, newClient RedisClientFactory, settings RedisSettings) (*RedisPublisher, error) {
	settings = settings.normalized()
	if settings.Addr == "" {
		return nil, errors.New("realtime redis: missing address")
	}
	if newClient == nil {
		newClient = redis.NewClient
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client := newClient(&redis.Options{
		Addr:     settings.Addr,
		Password: settings.Password,
		DB:       settings.DB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if errPing := client.Ping(ctxPing).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("realtime redis: ping %s: %w", settings.Addr, errPing)
	}
	pub := NewRedisPublisher(client, settings.Channel)
	pub.settings = settings
	return pub, nil
}

// Publish sends the event to the configured channel.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.client == nil {
		return errors.New("realtime redis: not initialized")
	}
	if p.channel == "" {
		return errors.New("realtime redis: missing channel")
	}
	payload, errMarshal := json.Marshal(event)
	if errMarshal != nil {
		return fmt.Errorf("realtime redis: marshal event: %w", errMarshal)
	}
	if errPublish := p.client.Publish(ctx, p.channel, payload).Err(); errPublish != nil {
		return fmt.Errorf("realtime redis: publish: %w", errPublish)
	}
	return nil
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
